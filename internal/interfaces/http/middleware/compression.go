package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

const minCompressSize = 1024

// gzipResponseWriter buffers the first bytes so small and non-JSON bodies pass through untouched.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	buf         []byte
	status      int
	wroteHeader bool
	compress    bool
	decided     bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.decided {
		if w.compress {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) >= minCompressSize {
		if err := w.decide(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (w *gzipResponseWriter) decide() error {
	w.decided = true
	w.compress = len(w.buf) >= minCompressSize && compressible(w.Header().Get("Content-Type"))

	if w.compress {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
		w.gz.Reset(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.status)

	buffered := w.buf
	w.buf = nil
	if len(buffered) == 0 {
		return nil
	}
	if w.compress {
		_, err := w.gz.Write(buffered)
		return err
	}
	_, err := w.ResponseWriter.Write(buffered)
	return err
}

func (w *gzipResponseWriter) finish() {
	if !w.wroteHeader {
		return
	}
	if !w.decided {
		_ = w.decide()
	}
	if w.compress {
		_ = w.gz.Close()
	}
}

func compressible(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "application/yaml") ||
		strings.HasPrefix(contentType, "text/")
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, 5)
		return w
	},
}

// Compression gzips JSON and text responses larger than 1KB.
// WebSocket upgrades and /metrics (promhttp compresses itself) are skipped.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipWriterPool.Get().(*gzip.Writer)
		defer func() {
			gz.Reset(nil)
			gzipWriterPool.Put(gz)
		}()

		gzw := &gzipResponseWriter{ResponseWriter: w, gz: gz}
		next.ServeHTTP(gzw, r)
		gzw.finish()
	})
}
