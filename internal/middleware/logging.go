package middleware

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dukerupert/choreboard/internal/auth"
)

// statusRecorder wraps http.ResponseWriter to capture the status code and
// response size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack lets websocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger logs each request with method, path, status, size, duration
// and client address. Server errors log at error level, client errors at
// warn. The caller, if any, is recorded by the auth middleware further in.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			caller := &callerRef{}

			next.ServeHTTP(rec, r.WithContext(withCallerRef(r.Context(), caller)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", RealIP(r)),
			}
			if caller.ac.UserID != "" {
				attrs = append(attrs, slog.String("user", caller.ac.UserID))
			}
			if caller.ac.SensorID != "" {
				attrs = append(attrs, slog.String("sensor", caller.ac.SensorID))
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}
		})
	}
}

type callerKey struct{}

// callerRef carries the authenticated caller back out to RequestLogger.
type callerRef struct {
	ac auth.AuthContext
}

func withCallerRef(ctx context.Context, ref *callerRef) context.Context {
	return context.WithValue(ctx, callerKey{}, ref)
}

// withCaller stores ac in the request context and notes it for the logger.
func withCaller(r *http.Request, ac auth.AuthContext) *http.Request {
	if ref, ok := r.Context().Value(callerKey{}).(*callerRef); ok {
		ref.ac = ac
	}
	return r.WithContext(auth.WithAuth(r.Context(), ac))
}
