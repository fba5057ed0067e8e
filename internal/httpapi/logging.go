package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Nil disables request logs.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) {
	l = l.With().Str("component", "http").Logger()
	zlog = &l
}

// LogLevel controls per-request logging of /generate.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel applies when a request carries no override.
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("HDI1D_HTTP_LOG_LEVEL"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel overrides the per-request default ("off", "error", "info", "debug").
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logEvent returns a log event for r at lvl, or nil when the request level
// or the missing logger suppresses it.
func logEvent(r *http.Request, lvl LogLevel, want LogLevel) *zerolog.Event {
	if zlog == nil || lvl < want {
		return nil
	}
	var ev *zerolog.Event
	switch want {
	case LevelError:
		ev = zlog.Error()
	case LevelDebug:
		ev = zlog.Debug()
	default:
		ev = zlog.Info()
	}
	ev = ev.Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	return ev
}

func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	want := LevelInfo
	if status >= http.StatusInternalServerError {
		want = LevelError
	}
	ev := logEvent(r, lvl, want)
	if ev == nil {
		return
	}
	ev = ev.Int("status", status).Dur("dur", time.Since(start))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("generate end")
}
