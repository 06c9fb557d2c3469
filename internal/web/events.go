package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"subcue/internal/logging"
	"subcue/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Per-connection outbound buffer; slow consumers drop events rather
	// than stalling the session.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

type hub struct {
	mu     sync.Mutex
	conns  map[*wsConnection]struct{}
	logger *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		conns:  make(map[*wsConnection]struct{}),
		logger: logging.NewComponentLogger(logger, "ws"),
	}
}

// Broadcast fans a session event out to every connection. Sends never
// block: a consumer that cannot keep up loses events, not the session.
func (h *hub) Broadcast(event session.Event) {
	payload, err := json.Marshal(map[string]any{
		"type":     "change",
		"job_id":   event.JobID,
		"kind":     event.Kind,
		"dirty":    event.Dirty,
		"can_undo": event.CanUndo,
		"can_redo": event.CanRedo,
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		select {
		case conn.send <- payload:
		default:
			h.logger.Debug("dropping event for slow websocket consumer")
		}
	}
}

func (h *hub) register(conn *wsConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *hub) unregister(conn *wsConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	wsConn := &wsConnection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	s.hub.register(wsConn)

	go wsConn.writePump()
	go wsConn.readPump(s.hub)
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. Its job is pong
// handling and tearing the connection down when the peer goes away.
func (c *wsConnection) readPump(h *hub) {
	defer func() {
		h.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
