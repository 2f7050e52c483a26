// Ground station HTTP surface: health/readiness endpoints, the text
// ingestion endpoint, and the satellite WebSocket endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grvsrs/groundstation/pkg/config"
	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/messages"
	"github.com/grvsrs/groundstation/pkg/session"
)

// Server is the HTTP server fronting the bridge.
type Server struct {
	config   *config.Config
	registry *session.Registry
	broker   session.Broker
	sessions *session.Handler
	server   *http.Server
}

func NewServer(cfg *config.Config, registry *session.Registry, brk session.Broker, sessions *session.Handler) *Server {
	return &Server{
		config:   cfg,
		registry: registry,
		broker:   brk,
		sessions: sessions,
	}
}

// Start begins listening on the configured host:port. ctx bounds every
// satellite session the WebSocket endpoint spawns.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/acceptsConnections", s.handleAcceptsConnections)
	mux.Handle("/text", authMiddleware(s.config.APIToken, http.HandlerFunc(s.handleText)))
	mux.HandleFunc("/satellite", s.handleSatellite(ctx))

	addr := fmt.Sprintf("%s:%d", s.config.HTTPHost, s.config.HTTPPort)
	s.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		IdleTimeout: 120 * time.Second,
	}

	logger.InfoCF("api", "Ground station API starting", map[string]interface{}{
		"addr": addr,
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("api", "Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// handleAcceptsConnections is the readiness surface satellites poll before
// dialing the WebSocket endpoint.
func (s *Server) handleAcceptsConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ready",
		"active_connections": s.registry.Count(),
		"max_connections":    s.config.MaxConnections,
	})
}

// handleText ingests already-transcribed text from non-audio devices and
// publishes it the same way a spoken command would be.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "PUT required"})
		return
	}

	var req struct {
		Text     string `json:"text"`
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text and device_id required"})
		return
	}

	if !s.broker.Connected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "broker unavailable"})
		return
	}

	request := messages.NewClientRequest(req.Text, req.DeviceID, session.OutputTopicForRoom(req.DeviceID))
	payload, err := request.Encode()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode failed"})
		return
	}
	if err := s.broker.Publish(s.config.InputTopic(), payload); err != nil {
		logger.ErrorCF("api", "Text ingestion publish failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "broker unavailable"})
		return
	}

	logger.InfoCF("api", "Text request ingested", map[string]interface{}{
		"device_id":  req.DeviceID,
		"request_id": request.ID.String(),
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "accepted",
		"request_id": request.ID.String(),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
