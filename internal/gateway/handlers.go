package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/slok/execgate/internal/model"
)

// MaxBodyBytes is the largest command request body accepted.
const MaxBodyBytes = 100 << 10

type healthResponse struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: model.EpochSeconds(s.timeNow()),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCommandRequest(w, r)
	if err != nil {
		s.logger.WithCtxValues(r.Context()).Warningf("could not decode request body: %s", err)
		s.writeInternalError(w)
		return
	}

	// Clients can't cancel a running command, the only limit is the executor timeout.
	ctx := context.WithoutCancel(r.Context())
	resp := s.service.Handle(ctx, req)

	writeJSON(w, http.StatusOK, resp)
}

// decodeCommandRequest reads a JSON command request. Bodies that aren't JSON or
// are empty decode to a request without command.
func decodeCommandRequest(w http.ResponseWriter, r *http.Request) (model.CommandRequest, error) {
	var req model.CommandRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return req, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return req, fmt.Errorf("could not read body: %w", err)
	}
	if len(body) == 0 {
		return req, nil
	}

	// Only objects and arrays are accepted as top level values, an array has no command.
	switch trimmed := bytes.TrimSpace(body); {
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return req, fmt.Errorf("invalid json body: %w", err)
		}
	case len(trimmed) > 0 && trimmed[0] == '[':
		if !json.Valid(trimmed) {
			return req, fmt.Errorf("invalid json body")
		}
	default:
		return req, fmt.Errorf("json body must be an object")
	}

	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
