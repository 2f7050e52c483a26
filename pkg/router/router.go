// Package router classifies inbound broker messages as broadcast or direct
// and dispatches validated payloads into per-session delivery queues. It is
// driven sequentially by the broker listen path, one message at a time, so
// per-topic arrival order is preserved end to end.
package router

import (
	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/messages"
	"github.com/grvsrs/groundstation/pkg/session"
)

// Router dispatches broker messages into session queues via the registry.
type Router struct {
	registry       *session.Registry
	broadcastTopic string
}

func New(registry *session.Registry, broadcastTopic string) *Router {
	return &Router{
		registry:       registry,
		broadcastTopic: broadcastTopic,
	}
}

// Route handles one inbound broker message. It never panics and never
// returns an error: undeliverable or malformed messages are logged and
// dropped so the listen path keeps flowing.
func (r *Router) Route(topic string, payload []byte) {
	if topic == r.broadcastTopic {
		r.routeBroadcast(payload)
		return
	}

	queue, ok := r.registry.QueueFor(topic)
	if !ok {
		logger.WarnCF("router", "No queue for topic, discarding message", map[string]interface{}{
			"topic": topic,
		})
		return
	}

	msg, err := messages.DecodeResponse(payload)
	if err != nil {
		logger.ErrorCF("router", "Message failed validation", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
		return
	}
	queue.Enqueue(msg)
}

// routeBroadcast fans one message out to every registered session queue.
// Zero registered sessions is a normal no-op.
func (r *Router) routeBroadcast(payload []byte) {
	msg, err := messages.DecodeResponse(payload)
	if err != nil {
		logger.ErrorCF("router", "Broadcast message failed validation", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	queues := r.registry.BroadcastQueues()
	if len(queues) == 0 {
		logger.DebugC("router", "Broadcast with no registered sessions")
		return
	}
	for _, q := range queues {
		q.Enqueue(msg)
	}
	logger.DebugCF("router", "Broadcast fanned out", map[string]interface{}{
		"sessions": len(queues),
	})
}
