package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/platform"
)

type kvResponse struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

func (s *Server) handleKV(w http.ResponseWriter, r *http.Request) {
	key := s.cfg.Routes.KVKey
	value, err := s.cfg.KV.GetValue(r.Context(), key)
	if err != nil {
		s.logger.WithCtxValues(r.Context()).Errorf("could not get kv key %s: %s", key, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, kvResponse{Key: key, Value: value})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	imgCfg := s.cfg.Routes.Image
	blob, err := s.cfg.Blobs.Get(r.Context(), imgCfg.Key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "Image not found", http.StatusNotFound)
			return
		}
		s.logger.WithCtxValues(r.Context()).Errorf("could not get image %s: %s", imgCfg.Key, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	opts := platform.ImageOptions{
		Width:  positiveIntOr(q.Get("width"), imgCfg.Width),
		Height: positiveIntOr(q.Get("height"), imgCfg.Height),
		Fit:    string(imgCfg.Fit),
		Format: imgCfg.Format,
	}

	out, err := s.cfg.Images.Transform(r.Context(), blob, opts)
	if err != nil {
		if errors.Is(err, model.ErrNotValid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.WithCtxValues(r.Context()).Errorf("could not transform image %s: %s", imgCfg.Key, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		prompt = s.cfg.Routes.AI.DefaultPrompt
	}

	result, err := s.cfg.Inference.Run(r.Context(), s.cfg.Routes.AI.Model, prompt)
	if err != nil {
		s.logger.WithCtxValues(r.Context()).Errorf("inference failed: %s", err)
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// positiveIntOr returns the parsed value or def when it's missing, not a number or not positive.
func positiveIntOr(raw string, def int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
