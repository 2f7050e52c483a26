// Package messages defines the wire messages exchanged over the broker and
// the codec that validates inbound payloads. Malformed payloads produce
// errors, never panics; routing drops them and moves on.
package messages

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Alert carries playback directives attached to a backend response.
type Alert struct {
	PlayBefore bool `json:"play_before"`
}

// Response is a backend-generated message routed to satellite sessions.
type Response struct {
	Text  string `json:"text"`
	Alert *Alert `json:"alert"`
}

// ClientRequest is published to the broker input topic for every transcribed
// utterance (or text-ingestion request). Immutable once built.
type ClientRequest struct {
	ID          uuid.UUID `json:"id"`
	Text        string    `json:"text"`
	Room        string    `json:"room"`
	OutputTopic string    `json:"output_topic"`
}

// NewClientRequest builds a request with a fresh process-unique id.
func NewClientRequest(text, room, outputTopic string) ClientRequest {
	return ClientRequest{
		ID:          uuid.New(),
		Text:        text,
		Room:        room,
		OutputTopic: outputTopic,
	}
}

// Encode serializes the request as UTF-8 JSON for publishing.
func (r ClientRequest) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResponse validates payload as UTF-8 JSON and decodes it into a
// Response. The "text" field is required; "alert" is optional and may be
// null. Extra fields are tolerated so the backend can evolve its schema.
func DecodeResponse(payload []byte) (Response, error) {
	if !utf8.Valid(payload) {
		return Response{}, fmt.Errorf("payload is not valid UTF-8")
	}

	var raw struct {
		Text  *string `json:"text"`
		Alert *Alert  `json:"alert"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if raw.Text == nil {
		return Response{}, fmt.Errorf("decode response: missing required field \"text\"")
	}

	return Response{Text: *raw.Text, Alert: raw.Alert}, nil
}
