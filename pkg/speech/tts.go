package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/grvsrs/groundstation/pkg/logger"
)

// minAudioBytes is the smallest usable synthesis result: one 16-bit sample.
const minAudioBytes = 2

// Synthesizer converts text into raw audio bytes at a given sample rate.
// A nil result with nil error means a transient service failure.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error)
}

// HTTPSynthesizer talks to the speech synthesis API over HTTP.
type HTTPSynthesizer struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPSynthesizer(endpoint, token string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// Synthesize posts {text, sample_rate} and returns the raw audio body.
// Service failures and too-short bodies are logged and collapse to (nil, nil).
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"text":        text,
		"sample_rate": sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("build TTS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build TTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("user-token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorCF("speech", "TTS request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.ErrorCF("speech", "TTS returned non-OK status", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(text),
		})
		return nil, nil
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.ErrorCF("speech", "TTS response read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}
	if len(audio) < minAudioBytes {
		logger.ErrorCF("speech", "TTS returned insufficient audio data", map[string]interface{}{
			"bytes": len(audio),
		})
		return nil, nil
	}
	return audio, nil
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)
