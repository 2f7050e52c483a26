package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeSuccess(t *testing.T) {
	var gotToken string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("user-token")
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "turn on lights", "message": "ok"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, "stt-token")
	result, err := tr.Transcribe(context.Background(), []byte{1, 2, 3, 4})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "turn on lights", result.Text)
	assert.Equal(t, "stt-token", gotToken)
	assert.Equal(t, []byte{1, 2, 3, 4}, gotFile)
}

func TestTranscribeFailuresReturnNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "invalid response body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr := NewHTTPTranscriber(srv.URL, "")
			result, err := tr.Transcribe(context.Background(), []byte{1, 2})

			assert.NoError(t, err, "transient failures must not surface as errors")
			assert.Nil(t, result)
		})
	}
}

func TestTranscribeUnreachableService(t *testing.T) {
	tr := NewHTTPTranscriber("http://127.0.0.1:1", "")
	result, err := tr.Transcribe(context.Background(), []byte{1, 2})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestSynthesizeSuccess(t *testing.T) {
	var gotBody []byte
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("user-token")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "tts-token")
	audio, err := s.Synthesize(context.Background(), "lights are on", 16000)

	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, audio)
	assert.Equal(t, "tts-token", gotToken)
	assert.JSONEq(t, `{"text": "lights are on", "sample_rate": 16000}`, string(gotBody))
}

func TestSynthesizeRejectsTooShortAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x01}) // below the one-sample minimum
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "")
	audio, err := s.Synthesize(context.Background(), "hi", 16000)

	assert.NoError(t, err)
	assert.Nil(t, audio)
}

func TestSynthesizeFailuresReturnNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, "")
	audio, err := s.Synthesize(context.Background(), "hi", 16000)

	assert.NoError(t, err)
	assert.Nil(t, audio)
}
