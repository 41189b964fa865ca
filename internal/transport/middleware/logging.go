package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/pkg/logger"
)

const (
	maxLoggedBody = 4 << 10
	redacted      = "[FILTERED]"
)

// Key fragments that mark a header or JSON field as secret.
var secretMarkers = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"credential",
	"cookie",
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line per request and one per response using
// the request scoped logger. It must run after RequestID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		lg := logger.From(r.Context()).With(
			"trace_id", internal.TraceIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)

		lg.Info("incoming request",
			"query", r.URL.RawQuery,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
			"headers", redactHeaders(r.Header),
			"body", redactBody(peekBody(r)),
		)

		rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		lg.Log(r.Context(), levelFor(rec.status), "response",
			"status_code", rec.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"response_size", rec.size,
			"body", redactBody(rec.head.Bytes()),
		)
	})
}

// peekBody reads up to maxLoggedBody bytes and restores the stream.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// capturingWriter records the status and the first maxLoggedBody bytes.
type capturingWriter struct {
	http.ResponseWriter
	status int
	size   int
	head   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - c.head.Len(); room > 0 {
		c.head.Write(b[:min(room, len(b))])
	}
	n, err := c.ResponseWriter.Write(b)
	c.size += n
	return n, err
}

func (c *capturingWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSecretKey(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// redactBody masks secret fields of a JSON body. Non-JSON bodies that
// mention a secret marker are dropped whole.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSecretKey(string(body)) {
			return redacted
		}
		return string(body)
	}

	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return redacted
	}
	return string(out)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if isSecretKey(k) {
				t[k] = redacted
			} else {
				t[k] = redactValue(inner)
			}
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}
