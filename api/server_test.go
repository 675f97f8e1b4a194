package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"chat-relay/domain"
	"chat-relay/runtime"
)

type stubStore struct {
	conversation []domain.Message
	recent       []domain.Message
	lastLimit    int
	failWith     error
}

func (s *stubStore) PersistMessage(domain.Message) (uint64, error) {
	return 0, fmt.Errorf("not used")
}

func (s *stubStore) GetConversation(_, _ string) ([]domain.Message, error) {
	return s.conversation, s.failWith
}

func (s *stubStore) GetRecentForUser(_ string, limit int) ([]domain.Message, error) {
	s.lastLimit = limit
	return s.recent, s.failWith
}

func newTestHandler(t *testing.T, store *stubStore, presence *runtime.Presence) http.Handler {
	t.Helper()
	server := NewServer(slog.Default(), store, presence, 50)
	limiter := NewRateLimiter(rate.Limit(1000), 1000)
	t.Cleanup(limiter.Stop)
	return server.Routes(limiter, prometheus.NewRegistry(),
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHistory_Returns_Conversation_JSON(t *testing.T) {
	req := require.New(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{conversation: []domain.Message{
		{ID: 1, SenderID: "u1", ReceiverID: "ADMIN_001", Content: "hi", Kind: domain.KindChat, Timestamp: at},
	}}
	handler := newTestHandler(t, store, runtime.NewPresence())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history/u1/ADMIN_001", nil))

	req.Equal(http.StatusOK, w.Code)
	var body []map[string]any
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Len(body, 1)
	req.Equal("u1", body[0]["sender_id"])
	req.Equal("CHAT", body[0]["kind"])
	req.Equal(float64(1), body[0]["id"])
}

func TestRecent_Uses_Configured_Limit(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	handler := newTestHandler(t, store, runtime.NewPresence())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/recent/u1", nil))

	req.Equal(http.StatusOK, w.Code)
	req.Equal(50, store.lastLimit)
}

func TestOnline_Returns_Presence_Snapshot(t *testing.T) {
	req := require.New(t)
	presence := runtime.NewPresence()
	presence.MarkOnline("u2")
	presence.MarkOnline("u1")
	handler := newTestHandler(t, &stubStore{}, presence)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/online", nil))

	req.Equal(http.StatusOK, w.Code)
	var body []string
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Equal([]string{"u1", "u2"}, body)
}

func TestHistory_Store_Failure_Is_500(t *testing.T) {
	req := require.New(t)
	store := &stubStore{failWith: fmt.Errorf("disk on fire")}
	handler := newTestHandler(t, store, runtime.NewPresence())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history/u1/u2", nil))

	req.Equal(http.StatusInternalServerError, w.Code)
}

func TestRateLimiter_Rejects_Over_Budget(t *testing.T) {
	req := require.New(t)
	server := NewServer(slog.Default(), &stubStore{}, runtime.NewPresence(), 50)
	limiter := NewRateLimiter(rate.Limit(1), 2)
	t.Cleanup(limiter.Stop)
	handler := server.Routes(limiter, prometheus.NewRegistry(),
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users/online", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, r)
		last = w.Code
	}

	// Burst of 2 exhausted: the third request is rejected
	req.Equal(http.StatusTooManyRequests, last)
}

func TestMetrics_Endpoint_Is_Not_Rate_Limited(t *testing.T) {
	req := require.New(t)
	server := NewServer(slog.Default(), &stubStore{}, runtime.NewPresence(), 50)
	limiter := NewRateLimiter(rate.Limit(1), 1)
	t.Cleanup(limiter.Stop)
	handler := server.Routes(limiter, prometheus.NewRegistry(),
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, r)
		req.Equal(http.StatusOK, w.Code)
	}
}
