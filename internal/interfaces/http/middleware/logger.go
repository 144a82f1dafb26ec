package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// Пробы оркестратора идут каждые несколько секунд и засоряют INFO
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// Logger логирует запрос после ответа: 5xx на WARN, пробы на DEBUG
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			args := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"route", r.Pattern,
				"status", recorder.statusCode,
				"bytes", recorder.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"request_id", RequestIDFromContext(r.Context()),
			}

			switch _, quiet := quietPaths[r.URL.Path]; {
			case recorder.statusCode >= http.StatusInternalServerError:
				log.Warn("HTTP request failed", args...)
			case quiet:
				log.Debug("HTTP request", args...)
			default:
				log.Info("HTTP request", args...)
			}
		})
	}
}

// responseWriter запоминает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack нужен gorilla/websocket для Upgrade
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
