// Package progress fans ProgressReport events out to connected WebSocket
// clients, keyed by operation id. One writer goroutine per connection
// avoids concurrent conn.WriteJSON calls; a slow client drops reports
// rather than stalling the snapshot or restore that produced them.
package progress

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/windowanchor/workspaced/pkg/types"
)

// session is one connected integrator, fed through a buffered channel so
// the core's caller never blocks on a slow or stalled client.
type session struct {
	id   string
	conn *websocket.Conn
	ch   chan types.ProgressReport
	done chan struct{}
}

// Hub fans ProgressReport events out to every registered WebSocket
// session for a given operation id. ForOperation binds it to one id as a
// types.ProgressSink for a running snapshot or restore.
type Hub struct {
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string][]*session
}

// NewHub builds an empty fan-out hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, sessions: make(map[string][]*session)}
}

// Register attaches conn to operationID's fan-out list and starts its
// single writer goroutine. The returned function detaches and closes the
// session; callers should defer it.
func (h *Hub) Register(operationID string, conn *websocket.Conn) func() {
	s := &session{
		id:   operationID,
		conn: conn,
		ch:   make(chan types.ProgressReport, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.sessions[operationID] = append(h.sessions[operationID], s)
	h.mu.Unlock()

	go s.writeLoop(h.log)

	return func() {
		close(s.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		list := h.sessions[operationID]
		for i, cur := range list {
			if cur == s {
				h.sessions[operationID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(h.sessions[operationID]) == 0 {
			delete(h.sessions, operationID)
		}
	}
}

func (s *session) writeLoop(log *zap.Logger) {
	for {
		select {
		case <-s.done:
			return
		case report := <-s.ch:
			if err := s.conn.WriteJSON(report); err != nil {
				log.Debug("progress websocket write failed", zap.String("session", s.id), zap.Error(err))
				return
			}
		}
	}
}

// Report broadcasts r to every session registered under operationID. A
// session whose buffer is full drops the report rather than blocking the
// caller. Progress is best-effort, never a correctness requirement.
func (h *Hub) Report(operationID string, r types.ProgressReport) {
	h.mu.Lock()
	list := append([]*session(nil), h.sessions[operationID]...)
	h.mu.Unlock()

	for _, s := range list {
		select {
		case s.ch <- r:
		default:
			h.log.Debug("progress report dropped, session buffer full", zap.String("session", s.id))
		}
	}
}

// ForOperation returns a types.ProgressSink bound to one operationID, the
// shape SnapshotEngine/RestoreEngine expect.
func (h *Hub) ForOperation(operationID string) types.ProgressSink {
	return operationSink{hub: h, operationID: operationID}
}

type operationSink struct {
	hub         *Hub
	operationID string
}

func (o operationSink) Report(r types.ProgressReport) { o.hub.Report(o.operationID, r) }

var _ types.ProgressSink = operationSink{}
