package session

import (
	"context"

	"github.com/grvsrs/groundstation/pkg/audio"
	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/messages"
	"github.com/grvsrs/groundstation/pkg/speech"
)

// State is the audio capture state. The machine cycles for the life of the
// session; there is no terminal state.
type State int

const (
	Idle State = iota
	Collecting
	ProcessingSTT
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting_audio"
	case ProcessingSTT:
		return "processing_stt"
	default:
		return "?"
	}
}

// Signal is a satellite control signal. Unknown strings do not map to any
// Signal and are ignored by the caller.
type Signal int

const (
	SignalStart Signal = iota
	SignalEnd
	SignalCancel
)

// ParseSignal maps a text frame to a control signal.
func ParseSignal(raw string) (Signal, bool) {
	switch raw {
	case "START_COMMAND":
		return SignalStart, true
	case "END_COMMAND":
		return SignalEnd, true
	case "CANCEL_COMMAND":
		return SignalCancel, true
	default:
		return 0, false
	}
}

// Publisher is the broker-facing surface the capture machine needs: publish
// a payload to a topic with at-least-once delivery.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Capture buffers inbound audio frames under control-signal direction,
// enforces the byte and duration caps, and on flush submits the audio to the
// transcription service and publishes the result to the broker input topic.
// It decouples how long the satellite talks from how large a single STT
// request may be.
type Capture struct {
	state      State
	buffer     [][]byte
	bufferSize int

	maxBufferSize int
	maxSamples    int // samplerate * max_command_input_seconds

	transcriber speech.Transcriber
	publisher   Publisher
	transport   Transport
	clientCfg   ClientConfig
	inputTopic  string
}

// NewCapture builds the capture machine for one session.
func NewCapture(
	clientCfg ClientConfig,
	maxBufferSize int,
	maxCommandInputSeconds int,
	transcriber speech.Transcriber,
	publisher Publisher,
	transport Transport,
	inputTopic string,
) *Capture {
	return &Capture{
		state:         Idle,
		maxBufferSize: maxBufferSize,
		maxSamples:    maxCommandInputSeconds * clientCfg.Samplerate,
		transcriber:   transcriber,
		publisher:     publisher,
		transport:     transport,
		clientCfg:     clientCfg,
		inputTopic:    inputTopic,
	}
}

// State reports the current capture state.
func (c *Capture) State() State {
	return c.state
}

// BufferedBytes reports the current buffer fill.
func (c *Capture) BufferedBytes() int {
	return c.bufferSize
}

// HandleControlSignal drives the state machine from a satellite text frame.
// Signals arriving in the wrong state are logged no-ops.
func (c *Capture) HandleControlSignal(ctx context.Context, raw string) {
	signal, ok := ParseSignal(raw)
	if !ok {
		logger.WarnCF("capture", "Unknown control signal", map[string]interface{}{
			"signal": raw,
		})
		return
	}

	switch signal {
	case SignalStart:
		if c.state != Idle {
			logger.WarnCF("capture", "START_COMMAND while not idle, ignoring", map[string]interface{}{
				"state": c.state.String(),
			})
			return
		}
		c.state = Collecting
		c.reset()
		logger.InfoCF("capture", "Started collecting audio", map[string]interface{}{
			"room": c.clientCfg.Room,
		})

	case SignalEnd:
		if c.state != Collecting {
			logger.WarnCF("capture", "END_COMMAND while not collecting, ignoring", map[string]interface{}{
				"state": c.state.String(),
			})
			return
		}
		c.flush(ctx)

	case SignalCancel:
		if c.state != Collecting {
			logger.WarnCF("capture", "CANCEL_COMMAND while not collecting, ignoring", map[string]interface{}{
				"state": c.state.String(),
			})
			return
		}
		c.state = Idle
		c.reset()
		logger.InfoC("capture", "Cancelled audio collection")
	}
}

// HandleAudio appends an audio chunk while collecting. Chunks arriving in any
// other state are discarded. Exceeding the byte cap flushes the buffered
// audio without the offending chunk; exceeding the duration cap flushes
// after the append.
func (c *Capture) HandleAudio(ctx context.Context, chunk []byte) {
	if c.state != Collecting {
		logger.WarnC("capture", "Audio chunk while not collecting, discarding")
		return
	}

	if c.bufferSize+len(chunk) > c.maxBufferSize {
		logger.WarnCF("capture", "Audio buffer cap reached, flushing", map[string]interface{}{
			"buffered": c.bufferSize,
			"chunk":    len(chunk),
		})
		c.flush(ctx)
		return
	}

	c.buffer = append(c.buffer, chunk)
	c.bufferSize += len(chunk)

	// 16-bit samples: two bytes each.
	if c.bufferSize/2 > c.maxSamples {
		logger.InfoCF("capture", "Maximum audio duration reached, flushing", map[string]interface{}{
			"buffered": c.bufferSize,
		})
		c.flush(ctx)
	}
}

// flush submits buffered audio to STT and publishes the transcription.
// Whatever happens, the machine returns to Idle with an empty buffer.
func (c *Capture) flush(ctx context.Context) {
	defer func() {
		c.state = Idle
		c.reset()
	}()

	if len(c.buffer) == 0 {
		logger.WarnC("capture", "No audio data to process")
		return
	}
	c.state = ProcessingSTT

	full := make([]byte, 0, c.bufferSize)
	for _, chunk := range c.buffer {
		full = append(full, chunk...)
	}
	logger.InfoCF("capture", "Processing audio", map[string]interface{}{
		"bytes":   len(full),
		"samples": len(full) / 2,
	})

	result, err := c.transcriber.Transcribe(ctx, audio.Int16ToFloat32LE(full))
	if err != nil || result == nil {
		if err != nil {
			logger.ErrorCF("capture", "STT submission failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.ErrorC("capture", "Failed to get STT response")
		}
		c.sendErrorCue()
		return
	}
	logger.InfoCF("capture", "STT result", map[string]interface{}{
		"text": result.Text,
	})

	request := messages.NewClientRequest(result.Text, c.clientCfg.Room, c.clientCfg.OutputTopic)
	payload, err := request.Encode()
	if err != nil {
		logger.ErrorCF("capture", "Request encode failed", map[string]interface{}{
			"error": err.Error(),
		})
		c.sendErrorCue()
		return
	}
	if err := c.publisher.Publish(c.inputTopic, payload); err != nil {
		logger.ErrorCF("capture", "Publish failed", map[string]interface{}{
			"error": err.Error(),
		})
		c.sendErrorCue()
		return
	}
	logger.InfoC("capture", "Published transcription to broker")
}

// sendErrorCue plays the local error tone on the transport, bypassing TTS.
func (c *Capture) sendErrorCue() {
	beep := audio.ErrorBeep(c.clientCfg.Samplerate)
	if err := c.transport.SendBinary(beep); err != nil {
		logger.ErrorCF("capture", "Failed to send error cue", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.DebugC("capture", "Sent error cue to satellite")
}

func (c *Capture) reset() {
	c.buffer = nil
	c.bufferSize = 0
}
