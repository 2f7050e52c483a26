package session

import (
	"fmt"
	"sync"

	"github.com/grvsrs/groundstation/pkg/logger"
)

// ErrDuplicateSession is returned when a session id is already registered.
var ErrDuplicateSession = fmt.Errorf("session already registered")

// Registry is the process-wide coordinator for active satellite sessions:
// the session table and the topic-to-queue routing map. All mutation happens
// at session setup/teardown under one mutex; the router only reads.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string          // session ids in registration order, for broadcast fan-out
	topics   map[string]*Queue // per-session output topic -> delivery queue
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		topics:   make(map[string]*Queue),
	}
}

// Register inserts a session into the table. A duplicate id is rejected,
// never replaced.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return ErrDuplicateSession
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

// AddRoute maps a topic to a session's delivery queue.
func (r *Registry) AddRoute(topic string, q *Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[topic] = q
}

// Deregister removes the session and its topic route. Idempotent: removing
// an unknown id is a no-op, so error paths and outer cleanup can both call it.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if s.Config.OutputTopic != "" {
		delete(r.topics, s.Config.OutputTopic)
	}
}

// QueueFor looks up the delivery queue mapped to a topic.
func (r *Registry) QueueFor(topic string) (*Queue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.topics[topic]
	return q, ok
}

// BroadcastQueues returns every registered session's delivery queue in
// registration order. Broadcast messages fan out to all of them.
func (r *Registry) BroadcastQueues() []*Queue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queues := make([]*Queue, 0, len(r.order))
	for _, id := range r.order {
		if s, ok := r.sessions[id]; ok && s.Queue != nil {
			queues = append(queues, s.Queue)
		}
	}
	return queues
}

// Count reports the number of registered sessions (readiness surface).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll force-closes every registered session's transport. Invoked by the
// broker manager on connection loss: no session can make forward progress
// without the broker, so all must reconnect and re-register.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if err := s.Transport.Close(code, reason); err != nil {
			logger.DebugCF("session", "Force close failed", map[string]interface{}{
				"session": s.ID,
				"error":   err.Error(),
			})
		}
	}
	if len(sessions) > 0 {
		logger.InfoCF("session", "Force-closed all sessions", map[string]interface{}{
			"count":  len(sessions),
			"reason": reason,
		})
	}
}
