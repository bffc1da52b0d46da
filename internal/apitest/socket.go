package apitest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message on the push channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// hub holds the connected push clients. Frames a client emits are recorded;
// "ping" is answered with "pong".
type hub struct {
	mu       sync.Mutex
	clients  map[*peer]bool
	received []Frame
}

type peer struct {
	conn *websocket.Conn
	send chan Frame
}

func newHub() *hub {
	return &hub{clients: map[*peer]bool{}}
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); !ok {
		Unauthorized(w)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn, send: make(chan Frame, 16)}
	s.hub.add(p)

	go p.writePump()
	p.readPump(s.hub)
}

func (h *hub) add(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[p] = true
}

func (h *hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[p] {
		delete(h.clients, p)
		close(p.send)
	}
}

func (h *hub) broadcast(event string, data any) {
	raw, _ := json.Marshal(data)
	f := Frame{Event: event, Data: raw}

	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.clients {
		select {
		case p.send <- f:
		default:
			delete(h.clients, p)
			close(p.send)
		}
	}
}

func (h *hub) record(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, f)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.clients))
	for p := range h.clients {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.Close()
	}
}

func (p *peer) readPump(h *hub) {
	defer func() {
		h.remove(p)
		_ = p.conn.Close()
	}()
	for {
		var f Frame
		if err := p.conn.ReadJSON(&f); err != nil {
			return
		}
		h.record(f)
		if f.Event == "ping" {
			h.mu.Lock()
			if h.clients[p] {
				select {
				case p.send <- Frame{Event: "pong"}:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}

func (p *peer) writePump() {
	for f := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteJSON(f); err != nil {
			return
		}
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcast pushes an event to every connected client.
func (s *Server) Broadcast(event string, data any) {
	s.hub.broadcast(event, data)
}

// SocketClients returns the number of connected push clients.
func (s *Server) SocketClients() int {
	return s.hub.count()
}

// Received returns the frames clients emitted, in arrival order.
func (s *Server) Received() []Frame {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return append([]Frame(nil), s.hub.received...)
}
