package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/chat"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

const (
	// wsWriteWait is the write deadline for each outbound frame.
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long a connection may go without a pong before
	// the read side gives up.
	wsPongWait = 60 * time.Second

	// wsPingInterval is how often the ping loop probes the peer. It must
	// be shorter than wsPongWait.
	wsPingInterval = 30 * time.Second

	// wsCloseGrace is the deadline for writing the close frame.
	wsCloseGrace = 5 * time.Second

	// wsMaxMessageSize is the read limit. Inbound frames are chat text.
	wsMaxMessageSize = 64 * 1024
)

// Websocket message types.
const (
	wsTypeChat  = "chat"
	wsTypeReply = "reply"
	wsTypeError = "error"
)

// wsUpgrader accepts any origin: clients are native apps and the device
// token is the gate, not the Origin header.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsMessage is the envelope for both directions of the socket. Inbound
// frames are {type:"chat", message, speak?, voice?}; outbound frames
// are {type:"reply", reply, model?} or {type:"error", error}.
type wsMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Speak   bool   `json:"speak,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Reply   string `json:"reply,omitempty"`
	Model   string `json:"model,omitempty"`
	Error   string `json:"error,omitempty"`
}

// wsConn wraps a websocket connection with the write serialization
// gorilla requires.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// writeJSON writes one JSON frame under the write deadline.
func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// ping writes a ping frame under the write deadline.
func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// close sends a close frame and tears down the connection.
func (c *wsConn) close() {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsCloseGrace))
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.writeMu.Unlock()

	_ = c.conn.Close()
}

// handleWS upgrades the request and serves chat over the socket until
// the peer disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &wsConn{conn: conn}
	s.trackWS(c)
	defer s.untrackWS(c)
	defer c.close()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.wsPingLoop(c, stop)

	logger.Info("🔌 WebSocket Connected", "remote", r.RemoteAddr)
	s.wsReadLoop(r, c)
	logger.Info("🔌 WebSocket Disconnected", "remote", r.RemoteAddr)
}

// wsPingLoop probes the peer until the connection handler returns or a
// ping fails.
func (s *Server) wsPingLoop(c *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

// wsReadLoop dispatches inbound frames until the peer closes or a read
// fails.
func (s *Server) wsReadLoop(r *http.Request, c *wsConn) {
	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		switch msg.Type {
		case wsTypeChat:
			s.wsChat(r, c, &msg)
		default:
			_ = c.writeJSON(wsMessage{
				Type:  wsTypeError,
				Error: fmt.Sprintf("unknown message type %q", msg.Type),
			})
		}
	}
}

// wsChat answers one chat frame. Errors come back as error frames on
// the same socket; the connection stays up.
func (s *Server) wsChat(r *http.Request, c *wsConn, msg *wsMessage) {
	if s.chat == nil {
		_ = c.writeJSON(wsMessage{Type: wsTypeError, Error: "chat is not configured"})
		return
	}

	reply, err := s.sendChat(r.Context(), msg.Message)
	if err != nil {
		text := "chat request failed"
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrNoAPIKey) {
			text = err.Error()
		}
		_ = c.writeJSON(wsMessage{Type: wsTypeError, Error: text})
		return
	}

	if msg.Speak && s.voice != nil {
		go s.speakReply(detachedContext(r.Context()), reply.Text, msg.Voice)
	}

	_ = c.writeJSON(wsMessage{Type: wsTypeReply, Reply: reply.Text, Model: reply.Model})
}
