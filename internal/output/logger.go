package output

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/config"
	"github.com/calldepth/trade-guard/pkg/types"
)

// Setup configures the global zerolog logger from config.
func Setup(cfg config.LoggingConfig) {
	switch cfg.Format {
	case "json":
		// Default JSON output
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}

// LogResult logs a pipeline result with its step timings.
func (l *Logger) LogResult(route string, result *types.PipelineResult, duration time.Duration) {
	event := log.Info()
	if !result.OK {
		event = log.Warn()
	}

	steps := zerolog.Arr()
	for _, step := range result.Trace {
		entry := zerolog.Dict().
			Str("step", step.Step).
			Int64("offsetMs", step.OffsetMs).
			Bool("ok", step.OK)
		if step.Skipped {
			entry = entry.Bool("skipped", true)
		}
		if step.Reason != "" {
			entry = entry.Str("reason", step.Reason)
		}
		steps = steps.Dict(entry)
	}

	event.
		Str("route", route).
		Bool("ok", result.OK).
		Str("reason", result.Reason).
		Array("steps", steps).
		Dur("duration", duration).
		Msg("Pipeline run complete")
}

// Logger tracks run statistics alongside structured output.
type Logger struct {
	runs      uint64
	approved  uint64
	rejected  uint64
	startTime time.Time
}

// NewLogger creates a run logger.
func NewLogger() *Logger {
	return &Logger{startTime: time.Now()}
}

// Count records one run outcome.
func (l *Logger) Count(ok bool) {
	l.runs++
	if ok {
		l.approved++
	} else {
		l.rejected++
	}
}

// LogStats logs cumulative run statistics.
func (l *Logger) LogStats() {
	log.Info().
		Uint64("runs", l.runs).
		Uint64("approved", l.approved).
		Uint64("rejected", l.rejected).
		Dur("uptime", time.Since(l.startTime)).
		Msg("Guard engine stats")
}
