package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one live socket. rooms is guarded by the hub's mutex; only the
// hub touches it.
type Client struct {
	ID     string
	UserID uuid.UUID

	conn *websocket.Conn
	send chan []byte

	// bearer is the raw token the socket authenticated with, forwarded to
	// the profile service on sends from this connection.
	bearer string

	rooms map[uuid.UUID]struct{}
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, bearer string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		bearer: bearer,
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// Send queues an outbound frame without blocking. A client whose buffer is
// full loses the frame; durable state lives in the store, not the socket.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings. One goroutine per client; all writes go through here.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				if c.conn != nil {
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				}
				return
			}
			if c.conn == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if c.conn == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
