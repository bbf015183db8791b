package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisms-score/prisms/metrics"
)

func TestFromEnvWithoutDSN(t *testing.T) {
	t.Setenv(metrics.EnvSentryDSN, "")
	m, flush, err := metrics.FromEnv("test")
	require.NoError(t, err)
	defer flush()
	assert.False(t, m.Enabled())

	ctx, finish := m.StartCommand(context.Background(), "prisms-assemble")
	defer finish()
	assert.Equal(t, context.Background(), ctx)
	m.RecordPass(ctx, "assemble", "a.musicxml", 10, 10, time.Millisecond, nil)
	m.CaptureError(errors.New("ignored"))
}

func TestFromEnvInvalidDSN(t *testing.T) {
	t.Setenv(metrics.EnvSentryDSN, "not a dsn")
	m, flush, err := metrics.FromEnv("test")
	require.Error(t, err)
	defer flush()
	assert.False(t, m.Enabled())
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.SentryMetrics
	assert.False(t, m.Enabled())
	m.RecordPass(context.Background(), "engrave", "b.musicxml", 1, 2, 0, nil)
}
