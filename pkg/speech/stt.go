// Package speech holds the HTTP clients for the external speech services.
// Both are consumed through small interfaces so session handling can be
// tested with mocks; failures are transient and reported as nil results,
// never as panics or process-level errors.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/grvsrs/groundstation/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Transcription is the STT service response.
type Transcription struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Transcriber converts raw float32 PCM into text. A nil result with nil
// error means the service failed transiently and the caller should degrade
// (error cue) instead of crashing.
type Transcriber interface {
	Transcribe(ctx context.Context, audioFloat32 []byte) (*Transcription, error)
}

// HTTPTranscriber talks to the speech transcription API over HTTP.
type HTTPTranscriber struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPTranscriber(endpoint, token string) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// Transcribe uploads the audio as a multipart file and decodes the JSON
// transcription. All failure modes are logged and collapse to (nil, nil).
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioFloat32 []byte) (*Transcription, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.raw")
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(audioFloat32); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build STT request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("user-token", t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		logger.ErrorCF("speech", "STT request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.ErrorCF("speech", "STT returned non-OK status", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(text),
		})
		return nil, nil
	}

	var result Transcription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.ErrorCF("speech", "STT response decode failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}
	return &result, nil
}

var _ Transcriber = (*HTTPTranscriber)(nil)
