package taskerr

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives every Error passed to Report, giving callers a single
// place to hook alerting or audit logging without threading a logger
// through every node.
type Handler interface {
	Handle(err *Error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(err *Error)

func (f HandlerFunc) Handle(err *Error) { f(err) }

var (
	handlerMu     sync.RWMutex
	globalHandler Handler = HandlerFunc(defaultHandle)
)

func defaultHandle(err *Error) {
	level := slog.LevelError
	switch err.Severity() {
	case SeverityInfo:
		level = slog.LevelInfo
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}
	slog.Default().Log(context.Background(), level, err.Message,
		"kind", string(err.Kind),
		"code", err.Code(),
		"category", string(err.Category()),
		"correlation_id", err.CorrelationID,
	)
}

// SetHandler replaces the global error handler. Intended to be called once
// during process startup.
func SetHandler(h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	globalHandler = h
}

// HandlerFor returns the currently installed global handler.
func HandlerFor() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return globalHandler
}

// Report routes err through the global handler. Nodes and the engine call
// this at the point an error is finalized (not on every intermediate wrap).
func Report(err *Error) {
	HandlerFor().Handle(err)
}
