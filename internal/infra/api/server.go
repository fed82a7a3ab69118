// File: internal/infra/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
	"chat-continuity/internal/infra/logging"
	"chat-continuity/internal/usecase"
)

// Server exposes the continuity operations over HTTP. Each route maps onto
// exactly one use-case call; there is no required ordering between them.
type Server struct {
	chat         usecase.ChatUseCase
	history      usecase.HistoryUseCase
	auth         *AuthManager // nil leaves the API open
	recentWindow int
	log          *zerolog.Logger
}

func NewServer(chat usecase.ChatUseCase, history usecase.HistoryUseCase, auth *AuthManager, recentWindow int, logger *zerolog.Logger) *Server {
	if recentWindow <= 0 {
		recentWindow = 5
	}
	return &Server{
		chat:         chat,
		history:      history,
		auth:         auth,
		recentWindow: recentWindow,
		log:          logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/chat/{userID}", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}
		r.Post("/message", s.handleMessage)
		r.Post("/turns", s.handleRecordTurn)
		r.Get("/messages", s.handleRecentMessages)
		r.Get("/followup", s.handleFollowUp)
	})
	return r
}

// traceMiddleware stamps every request with a trace id so log lines from one
// call can be correlated.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type messageRequest struct {
	Question string `json:"question"`
}

type messageResponse struct {
	Reply    string `json:"reply"`
	FollowUp bool   `json:"followUp"`
	Saved    bool   `json:"saved"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ctx := logging.WithUserID(r.Context(), userID)
	res, err := s.chat.HandleMessage(ctx, userID, req.Question)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{
		Reply:    res.Reply,
		FollowUp: res.FollowUp,
		Saved:    res.Saved,
	})
}

type recordTurnRequest struct {
	UserMessage      string `json:"userMessage"`
	AssistantMessage string `json:"assistantMessage"`
}

type recordTurnResponse struct {
	Saved bool `json:"saved"`
}

func (s *Server) handleRecordTurn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req recordTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ctx := logging.WithUserID(r.Context(), userID)
	if err := s.history.RecordTurn(ctx, userID, req.UserMessage, req.AssistantMessage); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrTurnInProgress):
			s.writeJSON(w, http.StatusConflict, recordTurnResponse{Saved: false})
		default:
			// The turn is not durably saved; the caller can retry or keep
			// showing the reply without history.
			logging.With(ctx, s.log).Warn().Err(err).Msg("record turn failed")
			s.writeJSON(w, http.StatusInternalServerError, recordTurnResponse{Saved: false})
		}
		return
	}
	s.writeJSON(w, http.StatusOK, recordTurnResponse{Saved: true})
}

type messagesResponse struct {
	Messages []model.Message `json:"messages"`
}

func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	count := s.recentWindow
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = n
	}

	ctx := logging.WithUserID(r.Context(), userID)
	msgs, err := s.history.RecentMessages(ctx, userID, count)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	s.writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

type followupResponse struct {
	FollowUp bool `json:"followUp"`
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	question := r.URL.Query().Get("q")
	if question == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	ctx := logging.WithUserID(r.Context(), userID)
	followup, err := s.history.IsFollowUp(ctx, userID, question)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, followupResponse{FollowUp: followup})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrMalformedDocument):
		logging.With(ctx, s.log).Error().Err(err).Msg("malformed session document")
		http.Error(w, "stored session document is malformed", http.StatusInternalServerError)
	default:
		logging.With(ctx, s.log).Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
