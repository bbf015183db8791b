package cmd

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/prisms-score/prisms/logging"
	"github.com/prisms-score/prisms/metrics"
	"github.com/prisms-score/prisms/version"
)

// Setup configures logging and the optional Sentry reporting for the named
// command. The returned function flushes the reports and must run before the
// program exits.
func Setup(name string) (context.Context, *metrics.SentryMetrics, func()) {
	logging.ConfigureRuntime()
	m, flush, err := metrics.FromEnv(version.VersionOrHash)
	if err != nil {
		log.Warn().Err(err).Msg("sentry disabled")
	}
	ctx, finish := m.StartCommand(context.Background(), name)
	return ctx, m, func() {
		finish()
		flush()
	}
}
