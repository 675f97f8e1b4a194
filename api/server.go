// Package api is the read-only query surface: thin passthroughs to the
// message store and the presence set, with no business logic of their own.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

type Server struct {
	log         *slog.Logger
	store       repositories.IMessageRepository
	presence    *runtime.Presence
	recentLimit int
}

func NewServer(log *slog.Logger, store repositories.IMessageRepository,
	presence *runtime.Presence, recentLimit int) *Server {
	return &Server{log: log, store: store, presence: presence, recentLimit: recentLimit}
}

// Routes builds the HTTP surface: history and recent-activity queries, the
// online-user set, Prometheus metrics and the WebSocket endpoint. The rate
// limiter only guards the query endpoints; the WebSocket transport has its
// own per-connection limiter.
func (s *Server) Routes(limiter *RateLimiter, gatherer prometheus.Gatherer,
	wsHandler http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Get("/api/chat/history/{userA}/{userB}", s.handleHistory)
		r.Get("/api/chat/recent/{userID}", s.handleRecent)
		r.Get("/api/users/online", s.handleOnline)
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", wsHandler)

	return r
}

// messageResponse mirrors the wire shape of a persisted record.
type messageResponse struct {
	ID         uint64    `json:"id"`
	Content    string    `json:"content"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userA := chi.URLParam(r, "userA")
	userB := chi.URLParam(r, "userB")

	messages, err := s.store.GetConversation(userA, userB)
	if err != nil {
		s.log.Error("Conversation query failed",
			"user_a", userA, "user_b", userB, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, toMessageResponse(messages))
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	messages, err := s.store.GetRecentForUser(userID, s.recentLimit)
	if err != nil {
		s.log.Error("Recent-activity query failed", "user_id", userID, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, toMessageResponse(messages))
}

func (s *Server) handleOnline(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.presence.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("Response encoding failed", "error", err)
	}
}

func toMessageResponse(messages []domain.Message) []messageResponse {
	return lo.Map(messages, func(item domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:         item.ID,
			Content:    item.Content,
			SenderID:   item.SenderID,
			ReceiverID: item.ReceiverID,
			Kind:       string(item.Kind),
			Timestamp:  item.Timestamp,
		}
	})
}
