package messages

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Response
		wantErr bool
	}{
		{
			name:    "text only, alert null",
			payload: `{"text": "hi", "alert": null}`,
			want:    Response{Text: "hi"},
		},
		{
			name:    "alert omitted",
			payload: `{"text": "turn on lights"}`,
			want:    Response{Text: "turn on lights"},
		},
		{
			name:    "alert with play_before",
			payload: `{"text": "doorbell", "alert": {"play_before": true}}`,
			want:    Response{Text: "doorbell", Alert: &Alert{PlayBefore: true}},
		},
		{
			name:    "alert without play_before",
			payload: `{"text": "x", "alert": {"play_before": false}}`,
			want:    Response{Text: "x", Alert: &Alert{}},
		},
		{
			name:    "extra fields tolerated",
			payload: `{"text": "hi", "alert": null, "future_field": 42}`,
			want:    Response{Text: "hi"},
		},
		{
			name:    "empty text allowed",
			payload: `{"text": ""}`,
			want:    Response{Text: ""},
		},
		{
			name:    "missing text rejected",
			payload: `{"alert": {"play_before": true}}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			payload: `this is not json`,
			wantErr: true,
		},
		{
			name:    "wrong type for text",
			payload: `{"text": 42}`,
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponse([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeResponseRejectsInvalidUTF8(t *testing.T) {
	_, err := DecodeResponse([]byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UTF-8")
}

func TestClientRequestEncode(t *testing.T) {
	req := NewClientRequest("turn on lights", "kitchen", "assistant/kitchen/output")

	assert.NotEqual(t, uuid.Nil, req.ID)

	data, err := req.Encode()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, req.ID.String(), decoded["id"])
	assert.Equal(t, "turn on lights", decoded["text"])
	assert.Equal(t, "kitchen", decoded["room"])
	assert.Equal(t, "assistant/kitchen/output", decoded["output_topic"])
}

func TestClientRequestIDsAreUnique(t *testing.T) {
	a := NewClientRequest("x", "r", "t")
	b := NewClientRequest("x", "r", "t")
	assert.NotEqual(t, a.ID, b.ID)
}
