package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/speech"
)

const (
	// drainBatchSize bounds how many queued responses one drain activation
	// may deliver, so a burst of backend messages cannot starve audio I/O.
	drainBatchSize = 3
	// drainIdlePause is the sleep between drain activations.
	drainIdlePause = 10 * time.Millisecond

	// alertCue is the literal text frame a satellite plays before a response
	// when the backend requests it.
	alertCue = "alert_default"
)

// Broker is the connection-manager surface the session lifecycle needs.
type Broker interface {
	Publisher
	Connected() bool
	Subscribe(topic string) error
	Unsubscribe(topic string)
}

// Handler runs the full lifecycle of satellite sessions: accept checks,
// config handshake, registration, the reader/drain task pair, and idempotent
// teardown.
type Handler struct {
	registry    *Registry
	broker      Broker
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer

	inputTopic             string
	maxBufferSize          int
	maxCommandInputSeconds int
}

func NewHandler(
	registry *Registry,
	broker Broker,
	transcriber speech.Transcriber,
	synthesizer speech.Synthesizer,
	inputTopic string,
	maxBufferSize int,
	maxCommandInputSeconds int,
) *Handler {
	return &Handler{
		registry:               registry,
		broker:                 broker,
		transcriber:            transcriber,
		synthesizer:            synthesizer,
		inputTopic:             inputTopic,
		maxBufferSize:          maxBufferSize,
		maxCommandInputSeconds: maxCommandInputSeconds,
	}
}

// HandleSatellite owns one accepted transport until it closes. It returns
// only after teardown has completed.
func (h *Handler) HandleSatellite(ctx context.Context, transport Transport) {
	if !h.broker.Connected() {
		logger.WarnC("session", "Rejecting satellite: broker unavailable")
		_ = transport.Close(CloseUpstreamUnavailable, "upstream unavailable")
		return
	}

	s := &Session{
		ID:        uuid.NewString(),
		Transport: transport,
		Queue:     NewQueue(),
	}
	if err := h.registry.Register(s); err != nil {
		logger.WarnCF("session", "Rejecting satellite: duplicate session", map[string]interface{}{
			"session": s.ID,
		})
		_ = transport.Close(CloseDuplicate, "connection already exists")
		return
	}

	var once sync.Once
	drainCtx, cancelDrain := context.WithCancel(ctx)
	drainDone := make(chan struct{})
	close(drainDone) // replaced once the drain task starts

	teardown := func() {
		once.Do(func() {
			cancelDrain()
			<-drainDone
			h.registry.Deregister(s.ID)
			if s.Config.OutputTopic != "" {
				h.broker.Unsubscribe(s.Config.OutputTopic)
			}
			logger.InfoCF("session", "Session torn down", map[string]interface{}{
				"session": s.ID,
			})
		})
	}
	defer teardown()

	// One-time handshake: the first frame must be a valid client config.
	isText, data, err := transport.ReadMessage()
	if err != nil {
		logger.InfoC("session", "Satellite disconnected before handshake")
		return
	}
	if !isText {
		logger.ErrorC("session", "Configuration error: first frame was not text")
		_ = transport.Close(CloseConfigError, "expected client config")
		return
	}
	cfg, err := ParseClientConfig(data)
	if err != nil {
		logger.ErrorCF("session", "Configuration error", map[string]interface{}{
			"error": err.Error(),
		})
		_ = transport.Close(CloseConfigError, "invalid client config")
		return
	}

	s.Config = cfg
	s.Capture = NewCapture(cfg, h.maxBufferSize, h.maxCommandInputSeconds,
		h.transcriber, h.broker, transport, h.inputTopic)

	h.registry.AddRoute(cfg.OutputTopic, s.Queue)
	if err := h.broker.Subscribe(cfg.OutputTopic); err != nil {
		// Tracked in the subscription set; restored on the next reconnect.
		logger.WarnCF("session", "Output topic subscribe deferred", map[string]interface{}{
			"topic": cfg.OutputTopic,
			"error": err.Error(),
		})
	}

	logger.InfoCF("session", "Satellite registered", map[string]interface{}{
		"session":    s.ID,
		"room":       cfg.Room,
		"samplerate": cfg.Samplerate,
	})

	drainDone = make(chan struct{})
	go func() {
		defer close(drainDone)
		h.drainLoop(drainCtx, s)
	}()

	h.readLoop(ctx, s)
}

// readLoop receives satellite frames until the transport closes: text frames
// are control signals, binary frames are audio chunks.
func (h *Handler) readLoop(ctx context.Context, s *Session) {
	for {
		isText, data, err := s.Transport.ReadMessage()
		if err != nil {
			logger.InfoCF("session", "Satellite disconnected", map[string]interface{}{
				"session": s.ID,
			})
			return
		}
		if isText {
			s.Capture.HandleControlSignal(ctx, string(data))
		} else {
			s.Capture.HandleAudio(ctx, data)
		}
	}
}

// drainLoop periodically delivers queued backend responses to the satellite.
func (h *Handler) drainLoop(ctx context.Context, s *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		h.processQueue(ctx, s)

		select {
		case <-ctx.Done():
			return
		case <-time.After(drainIdlePause):
		}
	}
}

// processQueue drains up to drainBatchSize responses without blocking. A
// transport send failure abandons the rest of the batch; nothing is requeued.
func (h *Handler) processQueue(ctx context.Context, s *Session) {
	processed := 0
	for processed < drainBatchSize {
		msg, ok := s.Queue.TryDequeue()
		if !ok {
			break
		}
		processed++

		if msg.Alert != nil && msg.Alert.PlayBefore {
			if err := s.Transport.SendText(alertCue); err != nil {
				logger.DebugCF("session", "Alert cue send failed, stopping batch", map[string]interface{}{
					"session": s.ID,
				})
				return
			}
		}

		audioBytes, err := h.synthesizer.Synthesize(ctx, msg.Text, s.Config.Samplerate)
		if err != nil {
			logger.ErrorCF("session", "TTS failed", map[string]interface{}{
				"session": s.ID,
				"error":   err.Error(),
			})
			continue
		}
		if audioBytes == nil {
			// Transient synthesis failure, already logged by the client.
			continue
		}
		if err := s.Transport.SendBinary(audioBytes); err != nil {
			logger.DebugCF("session", "Audio send failed, stopping batch", map[string]interface{}{
				"session": s.ID,
			})
			return
		}
	}
	if processed > 0 {
		logger.DebugCF("session", "Processed output queue batch", map[string]interface{}{
			"session": s.ID,
			"count":   processed,
		})
	}
}
