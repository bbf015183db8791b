// Package metrics reports assembly and engraving passes to Sentry. Reporting
// is opt-in: without PRISMS_SENTRY_DSN every call is a no-op.
package metrics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

const EnvSentryDSN = "PRISMS_SENTRY_DSN"

// SentryMetrics handles pass tracing and error capture for Sentry
type SentryMetrics struct {
	enabled bool
}

// Disabled returns metrics that record nothing.
func Disabled() *SentryMetrics {
	return &SentryMetrics{}
}

// FromEnv initializes Sentry from PRISMS_SENTRY_DSN. The returned flush
// function must be called before the program exits.
func FromEnv(release string) (*SentryMetrics, func(), error) {
	dsn := os.Getenv(EnvSentryDSN)
	if dsn == "" {
		return Disabled(), func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return Disabled(), func() {}, fmt.Errorf("sentry init: %w", err)
	}
	flush := func() { sentry.Flush(2 * time.Second) }
	return &SentryMetrics{enabled: true}, flush, nil
}

// Enabled reports whether anything is sent.
func (m *SentryMetrics) Enabled() bool {
	return m != nil && m.enabled
}

// StartCommand starts a transaction for a whole command run. The returned
// function finishes it.
func (m *SentryMetrics) StartCommand(ctx context.Context, name string) (context.Context, func()) {
	if !m.Enabled() {
		return ctx, func() {}
	}
	tx := sentry.StartTransaction(ctx, name)
	tx.Op = "command"
	return tx.Context(), tx.Finish
}

// RecordPass records one pass over a document with the measure totals before
// and after it.
func (m *SentryMetrics) RecordPass(ctx context.Context, pass, file string, before, after int, duration time.Duration, err error) {
	if !m.Enabled() {
		return
	}
	span := sentry.StartSpan(ctx, "prisms."+pass)
	defer span.Finish()

	span.SetTag("file", file)
	span.SetTag("measures_preserved", fmt.Sprintf("%t", before == after))

	span.SetData("measures_before", before)
	span.SetData("measures_after", after)
	span.SetData("duration_ms", duration.Milliseconds())

	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Description = fmt.Sprintf("%s: %s", pass, file)
}

// CaptureError sends an error event.
func (m *SentryMetrics) CaptureError(err error) {
	if !m.Enabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}
