package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/result"
)

// newLogger creates the logger shared by the commands, the pipeline and the
// solver. Solver traces requested with --trace are logged at debug level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one classify or render step.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with a took field holding the elapsed time, rounded to the
// millisecond. keyvals follow as further fields.
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append([]any{"took", time.Since(p.start).Round(time.Millisecond)}, keyvals...)...)
}

// classified logs the outcome of a classify run. Runs that leave packages
// unresolved or record conflicts are logged as warnings.
func (p *progress) classified(st result.Stats, cached bool) {
	keyvals := []any{
		"took", time.Since(p.start).Round(time.Millisecond),
		"packages", st.Packages,
		"solved", st.Solved,
		"unresolved", st.Unresolved,
		"conflicts", st.Conflicts,
		"cached", cached,
	}
	if st.Unresolved > 0 || st.Conflicts > 0 {
		p.logger.Warn("Classified packages with open placements", keyvals...)
		return
	}
	p.logger.Info("Classified packages", keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() for contexts built outside of it, as in tests.
func loggerFromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
			return l
		}
	}
	return log.Default()
}
