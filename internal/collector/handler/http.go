// Package handler exposes the collector HTTP surface the tracker SDK posts
// to: POST /track for events, POST /session/end for end signals.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/collector/enricher"
	"github.com/modernmarket/telemetry/internal/collector/validation"
)

// EventSink receives accepted traffic, normally the Kafka producer.
type EventSink interface {
	PublishEvent(ctx context.Context, sessionID string, event map[string]any) error
	PublishSessionEnd(ctx context.Context, sessionID string) error
}

type response struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

type HTTPHandler struct {
	sink      EventSink
	validator *validation.Validator
	enricher  *enricher.Enricher
}

func New(sink EventSink, v *validation.Validator, e *enricher.Enricher) *HTTPHandler {
	return &HTTPHandler{sink: sink, validator: v, enricher: e}
}

// Router assembles the collector routes with the standard middleware stack.
func Router(h *HTTPHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)

	r.Get("/health", HealthCheck)
	r.Post("/track", h.HandleTrack)
	r.Post("/session/end", h.HandleSessionEnd)
	return r
}

func (h *HTTPHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var event map[string]any
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.validator.ValidateEvent(event); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Errors: []string{err.Error()}})
		return
	}

	appType, _ := event["app_type"].(string)
	clientIP := clientIP(r)
	if !h.validator.CheckRateLimit(appType, clientIP) {
		writeJSON(w, http.StatusTooManyRequests, response{Success: false, Errors: []string{"Rate limit exceeded"}})
		return
	}

	if event["event_id"] == nil {
		event["event_id"] = uuid.New().String()
	}
	h.enricher.Enrich(event, r.Header.Get("User-Agent"), clientIP)

	sessionID, _ := event["session_id"].(string)
	if err := h.sink.PublishEvent(r.Context(), sessionID, event); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish event")
		writeJSON(w, http.StatusInternalServerError, response{Success: false, Errors: []string{"Failed to record event"}})
		return
	}

	writeJSON(w, http.StatusAccepted, response{Success: true})
}

func (h *HTTPHandler) HandleSessionEnd(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var signal map[string]any
	if err := json.Unmarshal(body, &signal); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.validator.ValidateEndSignal(signal); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Errors: []string{err.Error()}})
		return
	}

	// Trackers signal at least once per session; duplicates pass through
	// and are resolved downstream.
	sessionID := signal["session_id"].(string)
	if err := h.sink.PublishSessionEnd(r.Context(), sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish session end")
		writeJSON(w, http.StatusInternalServerError, response{Success: false, Errors: []string{"Failed to record session end"}})
		return
	}

	writeJSON(w, http.StatusAccepted, response{Success: true})
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// CORSMiddleware allows browser trackers to POST cross-origin.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
