package panel

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// ClientCount returns the number of connected event clients.
func (p *Panel) ClientCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Panel) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Printf("[panel] websocket upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}

	p.mu.Lock()
	if p.last != nil {
		if data, err := json.Marshal(p.last); err == nil {
			c.send <- data
		}
	}
	p.clients[c] = struct{}{}
	p.mu.Unlock()

	go p.writePump(c)
	go p.readPump(c)
}

func (p *Panel) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Printf("[panel] marshal event: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.clients {
		select {
		case c.send <- data:
		default:
			// slow client, drop the event
		}
	}
}

func (p *Panel) remove(c *client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[c]; ok {
		delete(p.clients, c)
		close(c.send)
	}
}

// readPump only handles control frames; clients do not send commands over
// the event stream.
func (p *Panel) readPump(c *client) {
	defer func() {
		p.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Printf("[panel] websocket: %v", err)
			}
			return
		}
	}
}

func (p *Panel) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
