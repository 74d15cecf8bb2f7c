package statusfeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected UI.
type client struct {
	server      *Server
	conn        *websocket.Conn
	send        chan *Message
	updates     <-chan struct{}
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	once        sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		c.unsubscribe()
		c.conn.Close()
	})
}

// readPump reads commands and queues their replies. Commands run one at a
// time in arrival order.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("status feed read failed", "err", err)
			}
			return
		}

		reply := c.server.dispatch(c.ctx, cmd)
		select {
		case c.send <- reply:
		case <-c.done:
			return
		}
	}
}

// writePump pushes replies, a fresh snapshot per store change, and pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		var msg *Message
		select {
		case msg = <-c.send:
		case <-c.updates:
			msg = statusMessage(c.server.store.Snapshot())
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
