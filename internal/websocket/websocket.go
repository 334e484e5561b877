package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
)

// Message types
const (
	TypeSessionState = "session_state"
	TypeCameraReady  = "camera_ready"
	TypeCameraError  = "camera_error"
	TypeVisibility   = "visibility"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4 << 20 // one encoded camera frame
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 16 << 10,
	CheckOrigin: func(r *http.Request) bool {
		return true // kiosk pages are served from this process
	},
}

// SessionSource is the scan session as seen by kiosk pages
type SessionSource interface {
	Snapshot() models.SessionSnapshot
	HandleVisibility(hidden bool)
}

// CameraBridge receives what a page's camera produces
type CameraBridge interface {
	PushFrame(data []byte) error
	HandleReady(torch bool)
	HandleError(name, message string)
	HandleDisconnect()
}

// Hub maintains the set of active kiosk pages and broadcasts messages to them
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once

	session SessionSource
	camera  CameraBridge
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type cameraReadyPayload struct {
	Torch bool `json:"torch"`
}

type cameraErrorPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type visibilityPayload struct {
	Hidden bool `json:"hidden"`
}

// New creates a new Hub instance
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetSession sets the session whose state new pages receive and whose visibility pages report
func (h *Hub) SetSession(s SessionSource) {
	h.mutex.Lock()
	h.session = s
	h.mutex.Unlock()
}

// SetCamera sets where page camera events and frames go
func (h *Hub) SetCamera(c CameraBridge) {
	h.mutex.Lock()
	h.camera = c
	h.mutex.Unlock()
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and disconnects every page
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			session := h.session
			h.mutex.Unlock()
			h.log.Debug("Kiosk page connected", "total_clients", total)

			// the page renders from the current state immediately
			if session != nil {
				client.send <- models.WSMessage{Type: TypeSessionState, Payload: session.Snapshot()}
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			_, known := h.clients[client]
			if known {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			cam := h.camera
			h.mutex.Unlock()
			h.log.Debug("Kiosk page disconnected", "total_clients", total)

			// the pages own the camera; with none left the stream is dead
			if known && total == 0 && cam != nil {
				cam.HandleDisconnect()
			}

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						select {
						case h.unregister <- c:
						case <-h.done:
						}
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastMessage sends a message to all connected pages
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// BroadcastSession implements scanner.Broadcaster
func (h *Hub) BroadcastSession(snapshot models.SessionSnapshot) {
	h.BroadcastMessage(TypeSessionState, snapshot)
}

// SendCommand implements camera.Commander. Commands go to every connected page.
func (h *Hub) SendCommand(msgType string, payload interface{}) {
	h.BroadcastMessage(msgType, payload)
}

// ClientCount returns the number of connected pages
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// handleText dispatches a JSON message from a page
func (h *Hub) handleText(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug("Ignoring malformed message", "error", err)
		return
	}

	h.mutex.RLock()
	session, cam := h.session, h.camera
	h.mutex.RUnlock()

	switch msg.Type {
	case TypeCameraReady:
		var p cameraReadyPayload
		json.Unmarshal(msg.Payload, &p)
		if cam != nil {
			cam.HandleReady(p.Torch)
		}
	case TypeCameraError:
		var p cameraErrorPayload
		json.Unmarshal(msg.Payload, &p)
		h.log.Info("Kiosk camera error", "name", p.Name, "message", p.Message)
		if cam != nil {
			cam.HandleError(p.Name, p.Message)
		}
	case TypeVisibility:
		var p visibilityPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.log.Debug("Ignoring malformed visibility message", "error", err)
			return
		}
		if session != nil {
			session.HandleVisibility(p.Hidden)
		}
	default:
		h.log.Debug("Received message", "type", msg.Type)
	}
}

// handleFrame forwards an encoded camera frame
func (h *Hub) handleFrame(data []byte) {
	h.mutex.RLock()
	cam := h.camera
	h.mutex.RUnlock()
	if cam == nil {
		return
	}
	if err := cam.PushFrame(data); err != nil {
		h.log.Debug("Dropping undecodable frame", "bytes", len(data), "error", err)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}
		// frames keep the connection alive as well as pongs do
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch kind {
		case websocket.BinaryMessage:
			c.hub.handleFrame(message)
		case websocket.TextMessage:
			c.hub.handleText(message)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from kiosk pages
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
