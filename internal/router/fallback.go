package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/slok/execgate/internal/model"
)

// FallbackMessage is the message returned when an instance can't be reached.
const FallbackMessage = "Backend instance is currently unavailable, please retry later"

// isoMillis is the ISO 8601 format with millisecond precision used on the fallback timestamps.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type fallbackResponse struct {
	Message              string           `json:"message"`
	Timestamp            string           `json:"timestamp"`
	LastRequestTimestamp *string          `json:"lastRequestTimestamp"`
	Instance             model.InstanceID `json:"instance"`
	Pool                 string           `json:"pool"`
	Error                bool             `json:"error"`
}

// writeFallback answers in place of an unreachable instance with the contact
// time that was recorded before the failed request.
func writeFallback(w http.ResponseWriter, now time.Time, pool string, id model.InstanceID, previous *time.Time) {
	resp := fallbackResponse{
		Message:   FallbackMessage,
		Timestamp: now.UTC().Format(isoMillis),
		Instance:  id,
		Pool:      pool,
		Error:     true,
	}
	if previous != nil {
		ts := previous.UTC().Format(isoMillis)
		resp.LastRequestTimestamp = &ts
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(resp)
}
