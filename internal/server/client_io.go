package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	maxMessage   = 1 << 20 // a saved window can carry hundreds of tabs
)

// Client is one connected popup.
type Client struct {
	conn *websocket.Conn

	// send queues outgoing messages for writePump.
	send chan Message

	// done is closed exactly once, by closeSend, to stop writePump.
	done     chan struct{}
	sendOnce sync.Once

	// ctx is cancelled when the connection goes away.
	ctx    context.Context
	cancel context.CancelFunc

	server  *Server
	limiter *rate.Limiter
	logger  *zap.Logger
}

// closeSend signals the client to shut down. Safe to call more than once.
// Only done is closed, never send, so concurrent replies cannot panic.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() {
		close(c.done)
	})
}

// reply queues msg for delivery, giving up once the client is shutting down.
func (c *Client) reply(msg Message) {
	select {
	case <-c.done:
	case c.send <- msg:
	}
}

// replyError sends err to the client using its stable code.
func (c *Client) replyError(id string, err error) {
	code, message := apperrors.ToCodeAndMessage(err)
	c.reply(NewErrorMessage(id, code, message))
}

// writePump sends queued messages and a ping every 30 seconds.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeSend() // unblocks reply after a write error
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("failed to marshal message", zap.String("type", string(msg.Type)), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
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

// readPump reads requests and answers them one at a time, in order.
func (c *Client) readPump() {
	defer func() {
		c.server.mu.Lock()
		delete(c.server.clients, c)
		c.server.mu.Unlock()

		c.cancel()
		c.closeSend()

		c.logger.Info("client disconnected", zap.Int("clients", c.server.ClientCount()))
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			c.replyError("", apperrors.InvalidMessage("message is not valid JSON"))
			continue
		}
		if req.Type == "" {
			c.replyError(req.ID, apperrors.InvalidMessage("message type is required"))
			continue
		}

		if !c.limiter.Allow() {
			c.replyError(req.ID, apperrors.New(apperrors.CodeBridgeRateLimited, "too many requests"))
			continue
		}

		c.handle(req)
	}
}
