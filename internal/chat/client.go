package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iniduniaku/anon/internal/geo"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Media never travels over the
	// socket (only upload metadata does), so 64 KB covers the largest SDP.
	maxMessageSize = 64 * 1024

	// Outbound buffer per connection. The hub drops events for a consumer
	// that falls this far behind instead of stalling everyone else.
	sendBuffer = 256
)

// Client is a wrapper for a single websocket connection.
type Client struct {
	// ID is the server-assigned connection id, unique for the lifetime of
	// the connection.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// ip is the client's network address, used for geolocation at join.
	ip string

	// send is the buffered channel of outbound events. The hub writes to
	// it and writePump drains it onto the websocket.
	send chan *Envelope
}

// NewClient wraps an upgraded websocket connection. Call Start to begin
// pumping messages.
func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		ID:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		ip:   ip,
		send: make(chan *Envelope, sendBuffer),
	}
}

// Start launches the read and write pumps. There is at most one reader and
// one writer per connection, each owned by its pump goroutine.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps events from the websocket connection to the hub.
//
// A "join" event additionally resolves the client's location here, in the
// connection's own goroutine, so the hub loop never blocks on geolocation
// I/O.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", "conn", c.ID, "error", err)
			}
			break
		}
		in := &inbound{client: c, env: &env}
		if env.Type == EventJoin {
			in.location = c.resolveLocation()
		}

		c.hub.Inbound <- in
	}
}

// resolveLocation asks the hub's locator for this client's location. Any
// failure degrades to an absent location; join never fails because of it.
func (c *Client) resolveLocation() *geo.Location {
	if c.hub.locator == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), locateTimeout)
	defer cancel()

	loc, err := c.hub.locator.Locate(ctx, c.ip)
	if err != nil {
		c.hub.logger.Debug("geolocation failed", "conn", c.ID, "error", err)
		return nil
	}
	return loc
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(env); err != nil {
				c.hub.logger.Debug("websocket write failed", "conn", c.ID, "error", err)
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
