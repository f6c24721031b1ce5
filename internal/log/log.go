// Package log holds the process wide zerolog loggers.
package log

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

var (
	// Logger is the default logger, it includes the caller.
	Logger zerolog.Logger

	// LoggerWithoutCaller is used where the caller would only point at a
	// middleware or other shared helper.
	LoggerWithoutCaller zerolog.Logger
)

// FromRequest returns the logger set on r by the hlog middleware.
func FromRequest(r *http.Request) *zerolog.Logger {
	return hlog.FromRequest(r)
}

// WithIDWithoutCaller returns a logger context without caller that carries
// the request id from ctx if there is one.
func WithIDWithoutCaller(ctx context.Context) zerolog.Context {
	c := LoggerWithoutCaller.With()
	if id, ok := hlog.IDFromCtx(ctx); ok {
		c = c.Str("req_id", id.String())
	}
	return c
}

func Debug() *zerolog.Event { return Logger.Debug() }

func Info() *zerolog.Event { return Logger.Info() }

func Warn() *zerolog.Event { return Logger.Warn() }

func Error() *zerolog.Event { return Logger.Error() }

// Fatal logs at fatal level and exits the process after the message is written.
func Fatal() *zerolog.Event { return Logger.Fatal() }
