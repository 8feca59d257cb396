package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/Chative-Support-Router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// GenericFailure is the only failure text a caller ever sees.
const GenericFailure = "Something went wrong while processing your request. Please try again."

const (
	liveMessage     = "AI Customer Support Backend is running!"
	maxRequestBytes = 1 << 20
)

type TurnHandler interface {
	HandleMessage(ctx context.Context, in orchestratorx.TurnInput) (orchestratorx.TurnOutput, error)
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type ChatRequest struct {
	Message     string               `json:"message"`
	ChatHistory []contractx.ChatTurn `json:"chat_history"`
	SessionID   string               `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	RequiresAction bool   `json:"requires_action"`
	ActionType     string `json:"action_type,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	turns      TurnHandler
	router     *chi.Mux
	httpServer *http.Server
}

func New(cfg Config, turns TurnHandler) *Server {
	s := &Server{
		turns:  turns,
		router: chi.NewRouter(),
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   normalizeOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	s.router.Get("/", s.handleRoot)
	s.router.Post("/chat", s.handleChat)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 90*time.Second),
		IdleTimeout:  orDefault(cfg.IdleTimeout, 60*time.Second),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called. A clean
// shutdown returns nil.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server: listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": liveMessage})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		log.Debug().Err(err).Msg("server: malformed chat request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON chat request"})
		return
	}

	out, err := s.turns.HandleMessage(r.Context(), orchestratorx.TurnInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		History:   req.ChatHistory,
	})
	if err != nil {
		if errors.Is(err, orchestratorx.ErrInvalidMessage) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message must not be empty"})
			return
		}
		log.Error().Err(err).Str("session_id", out.SessionID).Msg("server: chat turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: GenericFailure})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:       out.Response,
		SessionID:      out.SessionID,
		RequiresAction: out.RequiresAction,
		ActionType:     out.ActionType,
	})
}

// normalizeOrigins drops blanks and trailing slashes from configured
// origins, since browsers send them without one.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("server: write response")
	}
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
