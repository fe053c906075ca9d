package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// Client message types.
const (
	TypeCreate = "create"
	TypeWrite  = "write"
	TypeResize = "resize"
	TypeStop   = "stop"
	TypeList   = "list"
	TypePing   = "ping"
)

// ClientMessage is a request from the frontend.
type ClientMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	Config    *terminal.Config `json:"config,omitempty"`
	Data      string           `json:"data,omitempty"`
	Cols      uint16           `json:"cols,omitempty"`
	Rows      uint16           `json:"rows,omitempty"`
}

// ServerMessage is a reply to a ClientMessage. Session output is sent as
// terminal.Event instead.
type ServerMessage struct {
	Type         string         `json:"type"`
	ConnectionID string         `json:"connectionId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Session      *terminal.Info `json:"session,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// SessionsMessage answers a list request.
type SessionsMessage struct {
	Type     string          `json:"type"`
	Sessions []terminal.Info `json:"sessions"`
}

// Metrics counts connections and frames.
type Metrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

// Handler manages WebSocket connections
type Handler struct {
	launcher *launcher.Service
	metrics  Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(svc *launcher.Service, metrics Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Handler{
		launcher: svc,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The UI is served from a local scheme with no stable origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and serves the connection until
// either side closes it.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		metrics: h.metrics,
	}
	cl.logger = h.logger.With(zap.String("connection_id", cl.id))

	h.metrics.IncWSConnections()
	cl.logger.Debug("WebSocket connected")
	defer func() {
		cl.close()
		h.metrics.DecWSConnections()
		cl.logger.Debug("WebSocket disconnected")
	}()

	go cl.writePump()

	cl.reply(ServerMessage{Type: "connected", ConnectionID: cl.id})
	h.readPump(c.Request.Context(), cl)
}

func (h *Handler) readPump(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			cl.replyError("", fmt.Sprintf("invalid message: %v", err))
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		h.dispatch(ctx, cl, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, cl *client, msg ClientMessage) {
	switch msg.Type {
	case TypeCreate:
		if msg.Config == nil {
			cl.replyError("", "create requires a config")
			return
		}
		// The session streams straight into this connection, so its first
		// data events can arrive before the created reply.
		info, err := h.launcher.Launch(ctx, *msg.Config, cl)
		if err != nil {
			cl.replyError(msg.Config.ID, err.Error())
			return
		}
		cl.reply(ServerMessage{Type: "created", SessionID: info.ID, Session: &info})

	case TypeWrite:
		// Keystrokes are not acknowledged; only failures are reported.
		if err := h.launcher.Write(msg.SessionID, []byte(msg.Data)); err != nil {
			cl.replyError(msg.SessionID, err.Error())
		}

	case TypeResize:
		if err := h.launcher.Resize(msg.SessionID, msg.Cols, msg.Rows); err != nil {
			cl.replyError(msg.SessionID, err.Error())
		}

	case TypeStop:
		if err := h.launcher.Stop(ctx, msg.SessionID); err != nil {
			cl.replyError(msg.SessionID, err.Error())
			return
		}
		cl.reply(ServerMessage{Type: "stopped", SessionID: msg.SessionID})

	case TypeList:
		sessions := h.launcher.Sessions()
		if sessions == nil {
			sessions = []terminal.Info{}
		}
		cl.enqueue("sessions", SessionsMessage{Type: "sessions", Sessions: sessions})

	case TypePing:
		cl.reply(ServerMessage{Type: "pong"})

	default:
		cl.replyError(msg.SessionID, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// client is one connection. It is the terminal.Sink for every session
// created over it: Send blocks while the write buffer is full and drops
// events once the connection is gone.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	metrics Metrics
	logger  *zap.Logger
}

// Send implements terminal.Sink.
func (c *client) Send(e terminal.Event) {
	c.enqueue(string(e.Type), e)
}

func (c *client) reply(msg ServerMessage) {
	c.enqueue(msg.Type, msg)
}

func (c *client) replyError(sessionID, message string) {
	c.reply(ServerMessage{Type: "error", SessionID: sessionID, Message: message})
}

func (c *client) enqueue(msgType string, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.String("type", msgType), zap.Error(err))
		return
	}

	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
		c.metrics.RecordWSMessage("out", msgType)
	case <-c.done:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

type nopMetrics struct{}

func (nopMetrics) IncWSConnections()             {}
func (nopMetrics) DecWSConnections()             {}
func (nopMetrics) RecordWSMessage(string, string) {}
