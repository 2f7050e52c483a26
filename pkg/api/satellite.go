package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Satellites are headless devices, not browsers; origin checks do not apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// handleSatellite upgrades the connection and hands it to the session
// handler, which owns it until teardown.
func (s *Server) handleSatellite(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorCF("api", "WebSocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		s.sessions.HandleSatellite(ctx, newWSTransport(conn))
	}
}

// wsTransport adapts a gorilla connection to the session.Transport
// interface. Gorilla permits only one concurrent writer, and frames are sent
// from the reader goroutine (error cue), the drain loop, and the broker's
// force-close path, so all writes share a mutex.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadMessage() (bool, []byte, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return false, nil, err
		}
		switch mt {
		case websocket.TextMessage:
			return true, data, nil
		case websocket.BinaryMessage:
			return false, data, nil
		default:
			// Control frames are handled by gorilla; skip anything else.
		}
	}
}

func (t *wsTransport) SendText(msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (t *wsTransport) SendBinary(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (t *wsTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := time.Now().Add(writeTimeout)
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	return t.conn.Close()
}

var _ session.Transport = (*wsTransport)(nil)
