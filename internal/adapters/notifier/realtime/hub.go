package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"medipal/internal/platform/logger"
	"medipal/internal/ports/notifier"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Mensajes del cliente.
const (
	MsgPing     = "ping"
	MsgPong     = "pong"
	MsgResponse = "response"
	MsgAck      = "ack"
	MsgError    = "error"
)

// ClientMessage es lo que un cliente puede mandar por el socket.
type ClientMessage struct {
	Type       string `json:"type"`
	InstanceID string `json:"instanceId,omitempty"`
	ActionID   string `json:"actionId,omitempty"`
}

// ServerMessage envuelve eventos y respuestas hacia el cliente.
type ServerMessage struct {
	Type       string          `json:"type"`
	Event      *notifier.Event `json:"event,omitempty"`
	InstanceID string          `json:"instanceId,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RespondFunc procesa la acción de un usuario sobre una notificación entregada.
type RespondFunc func(ctx context.Context, instanceID, actionID string) error

// Hub mantiene los clientes websocket conectados y les publica los eventos
// del scheduler. Implementa notifier.Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	upgrader websocket.Upgrader
	respond  RespondFunc
	log      logger.Logger
}

type client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan ServerMessage
	closed bool
}

// trySend no bloquea; false = buffer lleno.
func (c *client) trySend(msg ServerMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func NewHub(respond RespondFunc, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cliente local (app / UI); la sesión se valida antes del upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		respond: respond,
		log:     log.With(map[string]any{"component": "realtime"}),
	}
}

// ServeHTTP hace el upgrade y arranca las pumps del cliente.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", map[string]any{"err": err})
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan ServerMessage, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Debug("websocket client connected", map[string]any{"client_id": c.id})

	go h.writePump(c)
	go h.readPump(c)
}

// Publish manda el evento a todos los clientes. Un cliente lento (buffer lleno)
// se desconecta en vez de bloquear al scheduler.
func (h *Hub) Publish(ctx context.Context, e notifier.Event) error {
	msg := ServerMessage{Type: string(e.Type), Event: &e}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var dropped int
	for _, c := range clients {
		if !c.trySend(msg) {
			dropped++
			h.remove(c)
		}
	}
	if dropped > 0 {
		return errors.New("realtime: dropped slow websocket clients")
	}
	return nil
}

// Count devuelve la cantidad de clientes conectados.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close desconecta a todos los clientes.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", map[string]any{"client_id": c.id, "err": err})
			}
			return
		}

		switch msg.Type {
		case MsgPing:
			h.reply(c, ServerMessage{Type: MsgPong})
		case MsgResponse:
			h.handleResponse(c, msg)
		default:
			h.reply(c, ServerMessage{Type: MsgError, Error: "unknown message type"})
		}
	}
}

func (h *Hub) handleResponse(c *client, msg ClientMessage) {
	if h.respond == nil {
		h.reply(c, ServerMessage{Type: MsgError, InstanceID: msg.InstanceID, Error: "responses not supported"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := h.respond(ctx, msg.InstanceID, msg.ActionID); err != nil {
		h.reply(c, ServerMessage{Type: MsgError, InstanceID: msg.InstanceID, Error: err.Error()})
		return
	}
	h.reply(c, ServerMessage{Type: MsgAck, InstanceID: msg.InstanceID})
}

func (h *Hub) reply(c *client, msg ServerMessage) {
	if !c.trySend(msg) {
		h.log.Warn("websocket reply dropped", map[string]any{"client_id": c.id, "type": msg.Type})
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

var _ notifier.Publisher = (*Hub)(nil)
