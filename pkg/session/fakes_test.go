package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/grvsrs/groundstation/pkg/speech"
)

// frame is one scripted inbound transport frame.
type frame struct {
	text bool
	data []byte
}

func textFrame(s string) frame   { return frame{text: true, data: []byte(s)} }
func binaryFrame(b []byte) frame { return frame{text: false, data: b} }

// fakeTransport scripts inbound frames and records everything sent.
type fakeTransport struct {
	mu        sync.Mutex
	inbound   chan frame
	sentText  []string
	sentBin   [][]byte
	sendErr   error
	closed    bool
	closeCode int
	closeText string
}

func newFakeTransport(frames ...frame) *fakeTransport {
	t := &fakeTransport{inbound: make(chan frame, 64)}
	for _, f := range frames {
		t.inbound <- f
	}
	return t
}

func (t *fakeTransport) push(f frame) { t.inbound <- f }

// finish makes the next read fail, simulating a satellite disconnect.
func (t *fakeTransport) finish() { close(t.inbound) }

func (t *fakeTransport) ReadMessage() (bool, []byte, error) {
	f, ok := <-t.inbound
	if !ok {
		return false, nil, io.EOF
	}
	return f.text, f.data, nil
}

func (t *fakeTransport) SendText(msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sentText = append(t.sentText, msg)
	return nil
}

func (t *fakeTransport) SendBinary(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sentBin = append(t.sentBin, data)
	return nil
}

func (t *fakeTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCode = code
	t.closeText = reason
	return nil
}

func (t *fakeTransport) sentBinaries() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sentBin))
	copy(out, t.sentBin)
	return out
}

func (t *fakeTransport) sentTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sentText))
	copy(out, t.sentText)
	return out
}

func (t *fakeTransport) closeStatus() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.closeCode
}

func (t *fakeTransport) failSends() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = errors.New("transport closed")
}

// fakeBroker implements Broker with scripted connectivity.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	published    map[string][][]byte
	subscribed   []string
	unsubscribed []string
}

func newFakeBroker(connected bool) *fakeBroker {
	return &fakeBroker{connected: connected, published: make(map[string][][]byte)}
}

func (b *fakeBroker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *fakeBroker) Subscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = append(b.subscribed, topic)
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, topic)
}

func (b *fakeBroker) publishedTo(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.published[topic]))
	copy(out, b.published[topic])
	return out
}

// fakeTranscriber records submissions and returns a scripted result.
type fakeTranscriber struct {
	mu       sync.Mutex
	result   *speech.Transcription
	err      error
	received [][]byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioFloat32 []byte) (*speech.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, audioFloat32)
	return f.result, f.err
}

func (f *fakeTranscriber) submissions() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

// fakeSynthesizer returns scripted audio bytes per call.
type fakeSynthesizer struct {
	mu    sync.Mutex
	audio []byte
	err   error
	calls []string
	rates []int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, sampleRate int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	f.rates = append(f.rates, sampleRate)
	return f.audio, f.err
}

func (f *fakeSynthesizer) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
