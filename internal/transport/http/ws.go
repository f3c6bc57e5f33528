package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hollisb/patter/internal/hub"
)

const (
	wsReadTimeout    = 60 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMaxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// observerMessage is the one message observers may send: a session bind.
type observerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// observerAck confirms a session bind.
type observerAck struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id"`
}

// HandleWebSocket upgrades the connection and mirrors events for the bound
// session. Binding comes from the session_id query parameter or a later
// {"type":"hello","session_id":...} message.
// GET /v1/ws
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return err
	}

	conn := h.hub.NewConnection(ws, c.QueryParam("session_id"))
	h.hub.Register(conn)

	ws.SetReadLimit(wsMaxMessageSize)

	go h.writePump(conn)
	go h.readPump(conn)

	return nil
}

// readPump consumes observer messages until the connection dies.
func (h *Handler) readPump(conn *hub.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("websocket error: %v", err)
			}
			break
		}
		h.handleObserverMessage(conn, message)
	}
}

// writePump drains the connection's send buffer and keeps the peer alive
// with pings.
func (h *Handler) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleObserverMessage rebinds the connection on hello. Everything else is
// ignored; the feed is one-way.
func (h *Handler) handleObserverMessage(conn *hub.Connection, data []byte) {
	var msg observerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type != "hello" || msg.SessionID == "" {
		return
	}
	h.hub.BindSession(conn, msg.SessionID)
	h.hub.SendJSONToConnection(conn, observerAck{
		Type:      "hello_ack",
		Ts:        time.Now().UnixMilli(),
		SessionID: msg.SessionID,
	})
}
