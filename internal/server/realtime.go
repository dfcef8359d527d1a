package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RealtimeEventSessionChanged = "session-change"
	realtimeEventHeartbeat      = "heartbeat"
	realtimeSourceBackend       = "cashgame-backend"
	defaultHeartbeatInterval    = 25 * time.Second
)

// RealtimeMessage announces a committed change to one session.
type RealtimeMessage struct {
	SessionID string
	EventType string
	Kind      games.ChangeKind
	RecordIDs []string
	Timestamp time.Time
}

// RealtimeDispatcher fans session changes out to stream subscribers. Slow subscribers
// miss messages rather than block publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

func (d *RealtimeDispatcher) Subscribe(ctx context.Context, sessionID string) (<-chan RealtimeMessage, func()) {
	if sessionID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(sessionID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(sessionID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.SessionID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.SessionID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SessionChanged publishes a games service mutation.
func (d *RealtimeDispatcher) SessionChanged(sessionID string, kind games.ChangeKind, recordIDs []string) {
	d.Publish(RealtimeMessage{
		SessionID: sessionID,
		EventType: RealtimeEventSessionChanged,
		Kind:      kind,
		RecordIDs: append([]string(nil), recordIDs...),
		Timestamp: d.clock().UTC(),
	})
}

func (d *RealtimeDispatcher) subscriberCount(sessionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[sessionID])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(sessionID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[sessionID]; !ok {
		d.subscribers[sessionID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[sessionID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(sessionID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[sessionID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, sessionID)
		}
	}
	d.mu.Unlock()
}

type realtimeEventPayload struct {
	SessionID string   `json:"sessionId"`
	Kind      string   `json:"kind"`
	RecordIDs []string `json:"recordIds"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
}

type heartbeatPayload struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

func (h *httpHandler) handleSessionStream(c *gin.Context) {
	session, err := h.games.GetSession(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, session.ID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	h.logger.Debug("session stream opened", zap.String("session_id", session.ID))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				SessionID: message.SessionID,
				Kind:      string(message.Kind),
				RecordIDs: message.RecordIDs,
				Timestamp: isoTime(message.Timestamp),
				Source:    realtimeSourceBackend,
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{
				Timestamp: isoTime(tick),
				Source:    realtimeSourceBackend,
			})
			return true
		}
	})
	h.logger.Debug("session stream closed", zap.String("session_id", session.ID))
}
