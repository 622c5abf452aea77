package dpix

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/dpix/gpucore"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for dpix and its sub-packages.
// By default dpix produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by dpix:
//   - [slog.LevelDebug]: buffer sizes, pass counts, rebuilds
//   - [slog.LevelInfo]: device selection and lifecycle events
//   - [slog.LevelWarn]: capacity limits reached (lines dropped)
//   - [slog.LevelError]: device faults that abort a frame
//
// Example:
//
//	dpix.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpucore.SetLogger(l)
}

// Logger returns the current logger. Sub-packages call this to share the
// same configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
