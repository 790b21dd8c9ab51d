package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Messages cap at 5000 characters; the frame envelope and multi-byte
	// runes need headroom on top of that.
	maxFrameSize = 32 * 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte
}

// SendFrame queues an outbound frame for this connection only. Frames for a
// connection the hub has already torn down are dropped; the hub closes Send
// under the same lock, so the membership check makes the enqueue safe.
func (c *Client) SendFrame(data []byte) {
	c.Hub.mu.RLock()
	if !c.Hub.clients[c] {
		c.Hub.mu.RUnlock()
		return
	}
	select {
	case c.Send <- data:
		c.Hub.mu.RUnlock()
	default:
		c.Hub.mu.RUnlock()
		// writePump is stuck; unregister tears the connection down
		c.Hub.Unregister(c)
	}
}

// readPump pumps inbound frames from the websocket connection to the
// coordinator.
func (c *Client) readPump(coordinator *Coordinator) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				})
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.SendFrame(encodeFrame(EventError, ErrorPayload{
				Code:    "VALIDATION_FAILURE",
				Message: "malformed frame",
			}))
			continue
		}
		coordinator.Dispatch(c, frame)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain queued frames onto the wire while we hold the writer.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
