package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/krishangMittal/PlayMyJam/internal/config"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one live connection. Outbound frames are queued on a bounded
// buffer drained by WritePump.
type Client struct {
	ID       string
	RoomCode string
	JoinedAt time.Time

	conn   *websocket.Conn
	send   chan []byte
	config config.WebSocketConfig
	logger zerolog.Logger

	mu        sync.Mutex
	closed    bool
	closeCode int
	closeText string
}

func NewClient(id, roomCode string, conn *websocket.Conn, cfg config.WebSocketConfig, logger zerolog.Logger) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		ID:        id,
		RoomCode:  roomCode,
		conn:      conn,
		send:      make(chan []byte, size),
		config:    cfg,
		logger:    logger,
		closeCode: websocket.CloseNormalClosure,
	}
}

// Enqueue queues a frame without blocking.
func (c *Client) Enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendMessage marshals message and queues it for this client only.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.Enqueue(data)
}

// Close stops the client after already queued frames are written. Safe to call more than once.
func (c *Client) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith is Close with an explicit close frame code and reason.
func (c *Client) CloseWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeText = text
	close(c.send)
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Outbox exposes the queued frames. WritePump is the only consumer in production.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// ReadPump reads frames until the connection fails or closes and passes each
// one to handler. It blocks; the caller owns the disconnect that follows.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		handler(c, message)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.mu.Lock()
				code, text := c.closeCode, c.closeText
				c.mu.Unlock()
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
