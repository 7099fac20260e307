package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"wifi-pose-backend/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// clients only send pongs and close frames
	maxMessageSize = 1024
)

// Feed broadcasts every inference response to connected websocket
// clients, for live dashboards
type Feed struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	done       chan struct{}
	mu         sync.RWMutex
}

// FeedMessage is one entry of the live prediction feed
type FeedMessage struct {
	Source    string                    `json:"source"`
	Timestamp time.Time                 `json:"timestamp"`
	Response  *models.InferenceResponse `json:"response"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewFeed() *Feed {
	return &Feed{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is cancelled. Slow clients whose
// buffer is full are dropped.
func (f *Feed) Run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			f.mu.Unlock()
			return

		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			count := len(f.clients)
			f.mu.Unlock()
			log.Printf("Feed: Client connected (%d total)", count)

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			count := len(f.clients)
			f.mu.Unlock()
			log.Printf("Feed: Client disconnected (%d remaining)", count)

		case message := <-f.broadcast:
			f.mu.Lock()
			for client := range f.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(f.clients, client)
					log.Println("Feed: Dropped slow client")
				}
			}
			f.mu.Unlock()
		}
	}
}

// Publish sends one inference response to the feed
func (f *Feed) Publish(source string, resp *models.InferenceResponse) {
	f.BroadcastJSON(FeedMessage{
		Source:    source,
		Timestamp: time.Now(),
		Response:  resp,
	})
}

// BroadcastJSON queues v for every client; it never blocks
func (f *Feed) BroadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Feed: Error marshaling message: %v", err)
		return
	}
	select {
	case f.broadcast <- data:
	default:
		log.Println("Feed: Broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// upgradeOnly rejects plain HTTP requests on websocket routes
func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// serve runs one websocket connection until it closes
func (f *Feed) serve(conn *websocket.Conn) {
	client := &feedClient{conn: conn, send: make(chan []byte, 64)}
	select {
	case f.register <- client:
	case <-f.done:
		return
	}

	go client.writePump()
	client.readPump()

	select {
	case f.unregister <- client:
	case <-f.done:
	}
}

// readPump only detects disconnection and keeps the read deadline fresh
func (c *feedClient) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer of the connection
func (c *feedClient) writePump() {
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
