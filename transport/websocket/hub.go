package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/game/presence"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/syncer"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for one inbound action to commit.
	actionTimeout = 10 * time.Second

	// Outbound queue per client and for the hub itself.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Inbound actions a client may send
const (
	ActionJoin   = "join"
	ActionStart  = "start"
	ActionRoll   = "roll"
	ActionMove   = "move"
	ActionResign = "resign"
	ActionPass   = "pass"
)

// Inbound is a message received from a client
type Inbound struct {
	Action    string `json:"action"`
	PawnIndex *int   `json:"pawn_index,omitempty"`
	ActionID  string `json:"action_id,omitempty"`
}

// Actions is the subset of the game service a socket can drive
type Actions interface {
	Join(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)
	Start(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)
	Roll(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)
	Move(ctx context.Context, gameID, playerID string, pawnIndex int) (*service.ActionResult, error)
	Resign(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)
	Pass(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)
}

// Client represents a WebSocket client
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	gameID   string
	playerID string
	actions  Actions
}

type outbound struct {
	gameID string
	data   []byte
}

// Hub maintains the set of active clients and broadcasts advisory events.
// Delivery is best effort: a client whose queue is full is dropped and is
// expected to reconnect and re-fetch.
type Hub struct {
	mu    sync.RWMutex
	games map[string]map[*Client]bool

	// Outbound events for a game
	broadcast chan outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	presence *presence.Registry
	log      logrus.FieldLogger
}

// Option configures a Hub
type Option func(*Hub)

// WithPresence sets the registry that tracks online players
func WithPresence(p *presence.Registry) Option {
	return func(h *Hub) { h.presence = p }
}

// WithLogger sets the hub logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Hub) { h.log = log }
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		presence:   presence.NewRegistry(),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// ServeWS upgrades the request and attaches the socket to gameID as playerID.
// The caller has already authenticated playerID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID, playerID string, actions Actions) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		gameID:   gameID,
		playerID: playerID,
		actions:  actions,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Broadcast queues ev for every client of gameID. It never blocks; events
// are dropped when the hub is saturated.
func (h *Hub) Broadcast(gameID string, ev syncer.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Name).Error("Failed to marshal WebSocket event")
		return
	}

	select {
	case h.broadcast <- outbound{gameID: gameID, data: data}:
	default:
		h.log.WithFields(logrus.Fields{"game_id": gameID, "event": ev.Name}).Warn("Hub queue full, dropping event")
	}
}

// ClientCount returns the number of sockets attached to gameID
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Online lists the players connected to gameID
func (h *Hub) Online(gameID string) []presence.Entry {
	return h.presence.Online(gameID)
}

// registerClient adds a client to a game
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true
	total := len(h.games[client.gameID])
	h.mu.Unlock()

	h.presence.Connect(client.gameID, client.playerID)

	h.log.Debugf("Client registered for game %s (total clients: %d)", client.gameID, total)
}

// unregisterClient removes a client from a game. When it was the player's
// last socket the remaining clients are told the player went offline.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.games[client.gameID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty games
	remaining := len(clients)
	if remaining == 0 {
		delete(h.games, client.gameID)
	}
	h.mu.Unlock()

	h.log.Debugf("Client unregistered from game %s (remaining clients: %d)", client.gameID, remaining)

	if h.presence.Disconnect(client.gameID, client.playerID) && remaining > 0 {
		ev := syncer.PlayerDisconnected(client.gameID, client.playerID)
		if data, err := json.Marshal(ev); err == nil {
			h.deliver(outbound{gameID: client.gameID, data: data})
		}
	}
}

// deliver sends a message to all clients of a game
func (h *Hub) deliver(message outbound) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.games[message.gameID] {
		select {
		case client.send <- message.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.WithField("game_id", message.gameID).Warn("Client send queue full, disconnecting")
		h.unregisterClient(client)
	}
}

// closeAll drops every client on shutdown
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for gameID, clients := range h.games {
		for client := range clients {
			close(client.send)
			h.presence.Disconnect(gameID, client.playerID)
		}
		delete(h.games, gameID)
	}
}

// reply sends ev to this client only
func (c *Client) reply(ev syncer.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.games[c.gameID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// handle runs one inbound action. Successful commits reach clients through
// the publisher; failures are reported to this client alone.
func (c *Client) handle(raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.reply(syncer.MoveError(c.gameID, fmt.Errorf("invalid message: %w", err), nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if in.ActionID != "" {
		ctx = service.WithActionID(ctx, in.ActionID)
	}

	var err error
	switch in.Action {
	case ActionJoin:
		_, err = c.actions.Join(ctx, c.gameID, c.playerID)
	case ActionStart:
		_, err = c.actions.Start(ctx, c.gameID, c.playerID)
	case ActionRoll:
		_, err = c.actions.Roll(ctx, c.gameID, c.playerID)
	case ActionMove:
		if in.PawnIndex == nil {
			err = errors.New("pawn_index is required")
			break
		}
		_, err = c.actions.Move(ctx, c.gameID, c.playerID, *in.PawnIndex)
	case ActionResign:
		_, err = c.actions.Resign(ctx, c.gameID, c.playerID)
	case ActionPass:
		_, err = c.actions.Pass(ctx, c.gameID, c.playerID)
	default:
		err = fmt.Errorf("unknown action %q", in.Action)
	}

	if err != nil {
		c.hub.log.WithFields(logrus.Fields{
			"game_id":   c.gameID,
			"player_id": c.playerID,
			"action":    in.Action,
		}).WithError(err).Debug("Socket action rejected")
		c.reply(syncer.MoveError(c.gameID, err, in.PawnIndex))
	}
}

// readPump pumps messages from the WebSocket connection to the game service
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("WebSocket error")
			}
			break
		}
		if c.actions == nil {
			continue
		}
		c.handle(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
