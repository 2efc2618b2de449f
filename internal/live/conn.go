package live

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long the connection may stay silent; clients heartbeat every 30s.
	pongWait = 90 * time.Second

	maxMessageSize = 4096

	// sendBufferSize frames may queue before a slow client is dropped.
	sendBufferSize = 64
)

// Conn serves one WebSocket connection: a read loop handling client frames
// and a write loop draining queued state frames.
type Conn struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	seq     atomic.Int64
	mu      sync.Mutex
	onQuery func(q string)
}

func NewConn(conn *websocket.Conn, logger *zap.Logger) *Conn {
	return &Conn{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// OnQuery registers the handler for OpQuery frames. Set it before Run.
func (c *Conn) OnQuery(fn func(q string)) {
	c.onQuery = fn
}

// Send queues a frame without blocking. A client whose buffer is full is
// disconnected. Frames sent after the connection closed are dropped.
func (c *Conn) Send(op string, data any) {
	raw, err := json.Marshal(Event{Op: op, Data: data, Seq: c.seq.Add(1)})
	if err != nil {
		c.logger.Error("Failed to marshal live event", zap.String("op", op), zap.Error(err))
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- raw:
	default:
		c.logger.Warn("Live send buffer full, dropping connection")
		c.Close()
	}
}

// Close ends the connection. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Run serves the connection until the client goes away or Close is called.
func (c *Conn) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Conn) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Live connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		var event struct {
			Op   string          `json:"op"`
			Data json.RawMessage `json:"d"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Debug("Invalid live frame", zap.Error(err))
			continue
		}
		c.handle(event.Op, event.Data)
	}
}

func (c *Conn) handle(op string, data json.RawMessage) {
	switch op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.Close()
			return
		}
		c.Send(OpHeartbeatAck, nil)
	case OpQuery:
		if c.onQuery == nil {
			return
		}
		var q QueryData
		if err := json.Unmarshal(data, &q); err != nil {
			c.logger.Debug("Invalid query frame", zap.Error(err))
			return
		}
		c.onQuery(q.Q)
	default:
		c.logger.Debug("Unknown live op", zap.String("op", op))
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.done:
			c.write(websocket.CloseMessage, nil)
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
