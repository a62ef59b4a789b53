package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playone/server/internal/auth"
	"github.com/playone/server/internal/game"
	"github.com/playone/server/internal/gameredis"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is checked by middleware.WebSocketCORSCheck upstream
	},
}

// Client is one connected WebSocket player.
type Client struct {
	conn           *websocket.Conn
	externalUserID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue hands data to the client's write pump without ever blocking the
// fanout goroutine; a full buffer or a closed client drops the message.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for user %s, dropping message", c.externalUserID)
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// fanoutMsg is one queued EventFanout call. Routing (room membership, seat
// resolution) happens on the Hub's own goroutine, never on the session
// writer that produced the event.
type fanoutMsg struct {
	roomCode string
	seatID   string
	userID   string
	ev       game.Event
}

// Hub maintains the set of connected clients and routes EventFanout calls
// from internal/game onto the right sockets. It is the concrete realization
// of spec §4.12's EventFanout, the transport half of which lives here.
//
// Fan-out is asynchronous through a single ordered queue: the session writer
// only enqueues, so it can never deadlock against the registry mutex or its
// own intent queue, and the single consumer preserves the per-subscriber
// ordering spec §5 demands (PUBLIC_STATE before PRIVATE_HAND per action).
type Hub struct {
	registry     *game.RoomRegistry
	snapshots    *gameredis.SnapshotCache
	leavingGuard *gameredis.LeavingGuard

	queue chan fanoutMsg

	clients map[string]*Client // externalUserId -> Client
	mu      sync.RWMutex
}

// NewHub constructs a Hub and starts its fanout goroutine. The registry is
// wired in afterwards via SetRegistry, since RoomRegistry itself needs a Hub
// (as its EventFanout) at construction time.
func NewHub(snapshots *gameredis.SnapshotCache, leavingGuard *gameredis.LeavingGuard) *Hub {
	h := &Hub{
		snapshots:    snapshots,
		leavingGuard: leavingGuard,
		queue:        make(chan fanoutMsg, 1024),
		clients:      make(map[string]*Client),
	}
	go h.run()
	return h
}

// SetRegistry completes the Hub<->RoomRegistry wiring. Must be called once,
// before any WebSocket traffic is served.
func (h *Hub) SetRegistry(registry *game.RoomRegistry) {
	h.registry = registry
}

// envelope is the wire framing for both directions: {type, requestId, data}.
type envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Broadcast implements game.EventFanout.
func (h *Hub) Broadcast(roomCode string, ev game.Event) {
	h.post(fanoutMsg{roomCode: roomCode, ev: ev})
}

// ToSeat implements game.EventFanout: deliver only to the seat's own client
// (used for PRIVATE_HAND).
func (h *Hub) ToSeat(roomCode, seatID string, ev game.Event) {
	h.post(fanoutMsg{roomCode: roomCode, seatID: seatID, ev: ev})
}

// ToUser implements game.EventFanout: used for ERROR and cross-room notices.
func (h *Hub) ToUser(externalUserID string, ev game.Event) {
	h.post(fanoutMsg{userID: externalUserID, ev: ev})
}

func (h *Hub) post(msg fanoutMsg) {
	select {
	case h.queue <- msg:
	default:
		log.Printf("[WS] fanout queue full, dropping %s for room %q", msg.ev.Type, msg.roomCode)
	}
}

func (h *Hub) run() {
	for msg := range h.queue {
		switch {
		case msg.userID != "":
			h.deliverToUser(msg.userID, h.encode(msg.ev))
		case msg.seatID != "":
			h.deliverToSeat(msg.roomCode, msg.seatID, msg.ev)
		default:
			h.deliverBroadcast(msg.roomCode, msg.ev)
		}
	}
}

func (h *Hub) deliverBroadcast(roomCode string, ev game.Event) {
	// The registry has already removed a closed room by the time its
	// ROOM_CLOSED is drained here, so the cache is updated before the lookup.
	if h.snapshots != nil {
		ctx := context.Background()
		if ev.Type == game.EventRoomClosed {
			h.snapshots.Drop(ctx, roomCode)
		} else if state, ok := ev.Payload.(game.PublicStatePayload); ok && ev.Type == game.EventPublicState {
			h.snapshots.Store(ctx, roomCode, state)
		}
	}
	room, ok := h.registry.FindRoom(roomCode)
	if !ok {
		return
	}
	data := h.encode(ev)
	for _, seat := range room.Session.Snapshot().Seats {
		if seat.Kind != game.SeatHuman {
			continue
		}
		h.deliverToUser(room.Session.UserIDForSeat(seat.SeatID), data)
	}
}

func (h *Hub) deliverToSeat(roomCode, seatID string, ev game.Event) {
	room, ok := h.registry.FindRoom(roomCode)
	if !ok {
		return
	}
	h.deliverToUser(room.Session.UserIDForSeat(seatID), h.encode(ev))
}

func (h *Hub) deliverToUser(userID string, data []byte) {
	if userID == "" || data == nil {
		return
	}
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if ok {
		client.enqueue(data)
	}
}

func (h *Hub) encode(ev game.Event) []byte {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		log.Printf("[WS] marshal event %s failed: %v", ev.Type, err)
		return nil
	}
	out, _ := json.Marshal(envelope{Type: string(ev.Type), Data: data})
	return out
}

// Register attaches a client, replacing any prior connection for that user
// (the earlier connection's writer loop is closed so stale sockets don't
// linger).
func (h *Hub) Register(externalUserID string, conn *websocket.Conn) *Client {
	client := &Client{conn: conn, externalUserID: externalUserID, send: make(chan []byte, 64)}

	h.mu.Lock()
	old := h.clients[externalUserID]
	h.clients[externalUserID] = client
	h.mu.Unlock()
	if old != nil {
		old.closeSend()
	}

	go client.writePump()
	return client
}

// Unregister drops the client if it is still the current one for its user
// (a newer Register call for the same user must win).
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[client.externalUserID]; ok && cur == client {
		delete(h.clients, client.externalUserID)
	}
	h.mu.Unlock()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for user %s: %v", c.externalUserID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for user %s: %v", c.externalUserID, err)
				return
			}
		}
	}
}

// ReadPump decodes inbound envelopes and forwards them to the Dispatcher
// until the connection closes, at which point it posts a LeaveRoom intent
// so spec §4.9's player-leave path runs uniformly on disconnect.
func (c *Client) ReadPump(dispatcher *game.Dispatcher, hub *Hub) {
	defer hub.handleDisconnect(c.externalUserID)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[WS] bad envelope from user %s: %v", c.externalUserID, err)
			continue
		}
		roomCode, inRoom := hub.registry.CurrentRoomOf(c.externalUserID)
		seatID := ""
		if inRoom {
			if room, ok := hub.registry.FindRoom(roomCode); ok {
				seatID = room.Session.SeatIDForUser(c.externalUserID)
			}
		}
		dispatcher.Handle(c.externalUserID, seatID, game.IntentType(env.Type), env.Data)
	}
}

// handleDisconnect runs spec §4.9's leave path for a dropped socket. The
// redis leaving-guard single-flights duplicate disconnect races within this
// process — e.g. a stale socket's read pump and a fresh reconnect both
// tearing down the same seat — and its TTL clears a guard left behind by a
// crash mid-leave. The registry's in-memory guard remains the enforcement
// of record; losing the race here just means the leave is already running.
func (h *Hub) handleDisconnect(externalUserID string) {
	roomCode, inRoom := h.registry.CurrentRoomOf(externalUserID)
	if !inRoom {
		return
	}
	seatID := ""
	if room, ok := h.registry.FindRoom(roomCode); ok {
		seatID = room.Session.SeatIDForUser(externalUserID)
	}
	if seatID != "" && h.leavingGuard != nil {
		ctx := context.Background()
		if !h.leavingGuard.TryAcquire(ctx, roomCode, seatID) {
			return
		}
		defer h.leavingGuard.Release(ctx, roomCode, seatID)
	}
	h.registry.LeaveRoom(externalUserID)
}

// ServeWS upgrades the HTTP request to a WebSocket connection. The bearer
// token travels as a "token" query parameter since browsers cannot set
// Authorization headers on the WebSocket handshake.
func ServeWS(hub *Hub, dispatcher *game.Dispatcher, authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		externalUserID, _, err := authn.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade failed for user %s: %v", externalUserID, err)
			return
		}

		client := hub.Register(externalUserID, conn)
		defer hub.Unregister(client)

		client.ReadPump(dispatcher, hub)
	}
}
