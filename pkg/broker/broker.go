// Package broker owns the single MQTT connection to the backend fabric: it
// connects with unbounded exponential-backoff retries, restores the tracked
// subscription set after every reconnect, and exposes publish/subscribe
// primitives plus a connected signal to the rest of the process.
package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/grvsrs/groundstation/pkg/logger"
)

// ErrNotConnected is returned by Publish while the broker link is down.
// Callers treat it as transient and degrade locally.
var ErrNotConnected = errors.New("broker not connected")

// Conn is one live broker connection.
type Conn interface {
	Subscribe(topic string) error
	Publish(topic string, payload []byte) error
	Close()
}

// Dialer establishes broker connections. onMessage receives every inbound
// message sequentially in arrival order; onLost fires once when the
// connection drops.
type Dialer interface {
	Dial(onMessage func(topic string, payload []byte), onLost func(error)) (Conn, error)
}

// MessageHandler consumes one inbound broker message.
type MessageHandler func(topic string, payload []byte)

// Manager is the broker connection manager. Run drives the
// connect / listen / backoff cycle until the context is cancelled.
type Manager struct {
	dialer       Dialer
	onMessage    MessageHandler
	onDisconnect func() // force-closes all sessions on connection loss

	backoff backoff

	mu        sync.RWMutex
	conn      Conn
	connected bool
	subs      []string // subscription set, insertion order, deduplicated
}

// NewManager wires a manager. onDisconnect may be nil.
func NewManager(dialer Dialer, initialDelay, maxDelay time.Duration, onMessage MessageHandler, onDisconnect func()) *Manager {
	return &Manager{
		dialer:       dialer,
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
		backoff:      newBackoff(initialDelay, maxDelay),
	}
}

// Connected reports whether the broker link is currently up.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Publish sends payload to topic with at-least-once delivery. Fails with
// ErrNotConnected while the link is down.
func (m *Manager) Publish(topic string, payload []byte) error {
	m.mu.RLock()
	conn, connected := m.conn, m.connected
	m.mu.RUnlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	return conn.Publish(topic, payload)
}

// Subscribe adds topic to the subscription set and, when connected, to the
// live connection. A set entry added while disconnected is picked up by the
// next successful reconnect.
func (m *Manager) Subscribe(topic string) error {
	m.mu.Lock()
	m.addToSet(topic)
	conn, connected := m.conn, m.connected
	m.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}
	if err := conn.Subscribe(topic); err != nil {
		return err
	}
	logger.DebugCF("broker", "Subscribed", map[string]interface{}{"topic": topic})
	return nil
}

// Unsubscribe removes topic from the subscription set only. A lingering
// broker-level subscription is harmless: the router drops unroutable topics.
func (m *Manager) Unsubscribe(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.subs {
		if t == topic {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// Subscriptions returns a copy of the subscription set.
func (m *Manager) Subscriptions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.subs))
	copy(out, m.subs)
	return out
}

func (m *Manager) addToSet(topic string) {
	for _, t := range m.subs {
		if t == topic {
			return
		}
	}
	m.subs = append(m.subs, topic)
}

// Run is the long-lived connect/listen loop. It never gives up; the only
// terminal state is context cancellation.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		logger.InfoC("broker", "Connecting to broker")
		lost := make(chan error, 1)
		conn, err := m.dialer.Dial(m.handleMessage, func(e error) {
			select {
			case lost <- e:
			default:
			}
		})
		if err != nil {
			delay := m.backoff.Next()
			logger.ErrorCF("broker", "Connect failed, retrying", map[string]interface{}{
				"error":         err.Error(),
				"retry_seconds": delay.Seconds(),
			})
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.connected = true
		topics := make([]string, len(m.subs))
		copy(topics, m.subs)
		m.mu.Unlock()

		for _, topic := range topics {
			if err := conn.Subscribe(topic); err != nil {
				logger.ErrorCF("broker", "Subscription restore failed", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
			}
		}
		m.backoff.Reset()
		logger.InfoCF("broker", "Connected and subscriptions restored", map[string]interface{}{
			"topics": len(topics),
		})

		select {
		case <-ctx.Done():
			m.markDisconnected()
			conn.Close()
			return
		case err := <-lost:
			m.markDisconnected()
			delay := m.backoff.Next()
			logger.ErrorCF("broker", "Connection lost, reconnecting", map[string]interface{}{
				"error":         errString(err),
				"retry_seconds": delay.Seconds(),
			})
			if m.onDisconnect != nil {
				m.onDisconnect()
			}
			if !sleepCtx(ctx, delay) {
				return
			}
		}
	}
}

func (m *Manager) markDisconnected() {
	m.mu.Lock()
	m.connected = false
	m.conn = nil
	m.mu.Unlock()
}

func (m *Manager) handleMessage(topic string, payload []byte) {
	if m.onMessage != nil {
		m.onMessage(topic, payload)
	}
}

// sleepCtx waits d or until ctx is cancelled; reports whether the full wait
// elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
