package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans workflow diffs out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // workflow id -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for id. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Broadcast sends a diff to every subscriber of its workflow. Slow clients
// lose messages instead of blocking the publisher.
func (sm *StreamManager) Broadcast(diff *domain.SpecDiff) {
	if diff == nil {
		return
	}
	payload, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("Failed to encode diff", "workflow", diff.ID, "error", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[diff.ID] {
		select {
		case ch <- string(payload):
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "workflow", diff.ID)
		}
	}
}

// Subscribers returns the number of subscribers of id.
func (sm *StreamManager) Subscribers(id string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[id])
}

// subscribeWorkflow handles GET /workflows/{id}/events.
func (s *Server) subscribeWorkflow(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: Subscribed to workflow", "workflow", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "workflow", id)
			return
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
