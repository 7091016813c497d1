package gateway

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/utils/httpmw"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = httpmw.RequestIDHeader

type internalErrorResponse struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	Timestamp float64 `json:"timestamp"`
}

// recoverer converts unhandled panics into a 500 JSON response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // Sentinel value used as panic value.
				panic(rec)
			}

			s.logger.WithCtxValues(r.Context()).Errorf("unhandled error: %v", rec)
			s.writeInternalError(w)
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
		Success:   false,
		Error:     "Internal server error",
		Timestamp: model.EpochSeconds(s.timeNow()),
	})
}

// corsAllowAll lets any origin call the gateway.
func corsAllowAll() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders:       []string{"*"},
		OptionsSuccessStatus: http.StatusNoContent,
	})
}
