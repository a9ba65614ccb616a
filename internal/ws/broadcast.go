package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pps-player/tablewatch/internal/table"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

type Broadcaster struct {
	mu             sync.RWMutex
	clients        map[*client]bool
	maxConns       int
	seq            atomic.Uint64
	snapshotHook   func() SnapshotPayload
	snapshotTicker *time.Ticker
	done           chan struct{}
	stopOnce       sync.Once
}

// NewBroadcaster starts a loop that re-sends the full snapshot every
// snapshotInterval. maxConns <= 0 means unlimited.
func NewBroadcaster(snapshotInterval time.Duration, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		maxConns:       maxConns,
		snapshotTicker: time.NewTicker(snapshotInterval),
		done:           make(chan struct{}),
	}
	go b.snapshotLoop()
	return b
}

// SetSnapshotHook sets the function that produces the current board. It is
// called for every new client and every periodic snapshot.
func (b *Broadcaster) SetSnapshotHook(fn func() SnapshotPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshotHook = fn
}

// Snapshot returns the current board, or an empty one if no hook is set.
func (b *Broadcaster) Snapshot() SnapshotPayload {
	b.mu.RLock()
	hook := b.snapshotHook
	b.mu.RUnlock()
	if hook == nil {
		return SnapshotPayload{Tables: []table.Entry{}}
	}
	return hook()
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	if data, err := b.encode(MsgSnapshot, b.Snapshot()); err == nil {
		b.send(c, data)
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) BroadcastSnapshot() {
	b.broadcast(MsgSnapshot, b.Snapshot())
}

func (b *Broadcaster) BroadcastEvent(e EventPayload) {
	b.broadcast(MsgEvent, e)
}

func (b *Broadcaster) BroadcastHealth(h HealthPayload) {
	b.broadcast(MsgHealth, h)
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.snapshotTicker.C:
			b.BroadcastSnapshot()
		}
	}
}

func (b *Broadcaster) encode(typ MessageType, payload interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{Type: typ, Seq: b.seq.Add(1), Payload: payload})
}

func (b *Broadcaster) broadcast(typ MessageType, payload interface{}) {
	data, err := b.encode(typ, payload)
	if err != nil {
		log.Printf("[ws] broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		b.send(c, data)
	}
}

// send queues data for c, disconnecting it if its buffer is full. The
// membership check and the send happen under the read lock so a concurrent
// RemoveClient cannot close the channel in between.
func (b *Broadcaster) send(c *client, data []byte) {
	b.mu.RLock()
	if !b.clients[c] {
		b.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		b.mu.RUnlock()
		return
	default:
	}
	b.mu.RUnlock()

	log.Printf("[ws] client too slow, disconnecting")
	b.RemoveClient(c)
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop ends the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.snapshotTicker.Stop()
		close(b.done)

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}
