// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package targetapp

import (
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeQOTD  = "QOTD"
	MsgTypePing  = "PING"
	MsgTypePong  = "PONG"
	MsgTypeError = "ERROR"
)

// Message is a WebSocket message.
type Message struct {
	Type     string    `json:"type"`
	Question *Question `json:"question,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// hub tracks the connected clients so that a new question reaches all of
// them.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.stop()
}

func (h *hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.sendJSON(msg)
	}
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send     chan Message
	done     chan struct{}
	stopOnce sync.Once
	userId   string
}

func (c *wsClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// readPump answers pings until the peer goes away.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		switch msg.Type {
		case MsgTypePing:
			c.sendJSON(Message{Type: MsgTypePong})
		default:
			log.Printf("Unknown message type: %s", msg.Type)
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
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

// sendJSON queues msg. It is dropped when the queue is full or the client
// is gone.
func (c *wsClient) sendJSON(msg Message) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

// serveWS pushes the question of the day to a signed in client once delay
// has passed, then keeps the connection open for later questions.
func (s *app) serveWS(w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)
	if userId == "" {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &wsClient{hub: s.hub, conn: conn, send: make(chan Message, 16), done: make(chan struct{}), userId: userId}
	s.hub.register(client)
	s.debugf("websocket connected: %s (%d clients)", maskEmail(userId), s.hub.size())

	go client.writePump()
	go client.readPump()

	time.AfterFunc(s.opts.QOTDDelay, func() {
		if s.opts.FailQOTD {
			client.sendJSON(Message{Type: MsgTypeError, Error: "Failed to fetch question"})
			return
		}
		q, ok := s.store.Question()
		if !ok {
			client.sendJSON(Message{Type: MsgTypeError, Error: "No question available today"})
			return
		}
		client.sendJSON(Message{Type: MsgTypeQOTD, Question: &q})
	})
}
