package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/p-n-ai/pai-testlab/internal/progress"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
)

// BadgeMessage is pushed to stream subscribers when badges are earned.
type BadgeMessage struct {
	Type   string               `json:"type"`
	Badges []progress.UserBadge `json:"badges"`
}

// Hub fans newly earned badges out to WebSocket subscribers. It implements
// learner.Notifier.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// NotifyBadges queues a message for every subscriber. Subscribers whose
// buffer is full miss the message.
func (h *Hub) NotifyBadges(_ context.Context, badges []progress.UserBadge) {
	if len(badges) == 0 {
		return
	}
	msg, err := json.Marshal(BadgeMessage{Type: "badges_earned", Badges: badges})
	if err != nil {
		slog.Error("failed to encode badge message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			slog.Warn("badge stream subscriber is slow, dropping message")
		}
	}
}

// Subscribers returns the number of connected streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams badge messages until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}()

	slog.Debug("badge stream connected", "remote_addr", r.RemoteAddr)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("badge stream closed", "error", err)
				return
			}
		}
	}
}
