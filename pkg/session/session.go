// Package session implements the per-satellite session lifecycle: the
// registry of active sessions, the audio capture state machine, and the
// throttled delivery of backend responses back over the transport.
package session

import (
	"encoding/json"
	"fmt"
)

// WebSocket close statuses in the application range. Satellites distinguish
// them to decide whether to re-register immediately or back off.
const (
	CloseDuplicate           = 4000 // connection identity already registered
	CloseConfigError         = 4001 // first frame was not a valid client config
	CloseUpstreamUnavailable = 4002 // broker down at accept time
	CloseUpstreamLost        = 4003 // broker connection lost mid-session
)

// Transport abstracts the satellite-facing WebSocket connection so session
// logic can be tested without a network socket.
type Transport interface {
	// ReadMessage blocks for the next frame. text reports whether the frame
	// was a text frame (control signal / config) or binary (audio).
	ReadMessage() (text bool, data []byte, err error)
	SendText(msg string) error
	SendBinary(data []byte) error
	Close(code int, reason string) error
}

// ClientConfig is the one-time setup message a satellite sends after accept.
// OutputTopic is computed server-side, never satellite-supplied.
type ClientConfig struct {
	Samplerate     int    `json:"samplerate"`
	InputChannels  int    `json:"input_channels"`
	OutputChannels int    `json:"output_channels"`
	ChunkSize      int    `json:"chunk_size"`
	Room           string `json:"room"`
	OutputTopic    string `json:"-"`
}

// ParseClientConfig validates the first satellite frame into a ClientConfig
// and derives the session's output topic.
func ParseClientConfig(data []byte) (ClientConfig, error) {
	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse client config: %w", err)
	}
	if cfg.Room == "" {
		return ClientConfig{}, fmt.Errorf("client config: room must not be empty")
	}
	if cfg.Samplerate <= 0 {
		return ClientConfig{}, fmt.Errorf("client config: samplerate must be positive, got %d", cfg.Samplerate)
	}
	if cfg.InputChannels <= 0 || cfg.OutputChannels <= 0 {
		return ClientConfig{}, fmt.Errorf("client config: channel counts must be positive")
	}
	if cfg.ChunkSize <= 0 {
		return ClientConfig{}, fmt.Errorf("client config: chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	cfg.OutputTopic = OutputTopicForRoom(cfg.Room)
	return cfg, nil
}

// OutputTopicForRoom derives the broker topic carrying responses for a room.
func OutputTopicForRoom(room string) string {
	return fmt.Sprintf("assistant/%s/output", room)
}

// Session is one registered satellite connection. It is owned by its handler
// goroutine from accept to teardown.
type Session struct {
	ID        string
	Transport Transport
	Config    ClientConfig
	Queue     *Queue
	Capture   *Capture
}
