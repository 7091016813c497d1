// Package httpmw has the HTTP middlewares shared by the execgate servers.
package httpmw

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/slok/execgate/internal/log"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = "X-Request-Id"

// RequestID sets the request id on the response and in the context log values.
// Requests without one get a new ULID.
func RequestID(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logger.SetValuesOnCtx(r.Context(), log.Kv{"request-id": id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger logs every request at debug level once it has been served.
func Logger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.WithCtxValues(r.Context()).WithValues(log.Kv{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
				"bytes":    ww.BytesWritten(),
			}).Debugf("http request")
		})
	}
}
