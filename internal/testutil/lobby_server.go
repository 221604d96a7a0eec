// Package testutil provides a scripted lobby server for exercising clients
// over a real websocket.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"quiz-session-client/internal/packet"
)

// Script produces the packets the server answers a client packet with.
type Script func(p packet.Outbound) []packet.Inbound

// LobbyServer accepts client connections on /ws, decodes every client frame
// with the server-side codec and pushes scripted client-bound packets.
type LobbyServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	received chan packet.Outbound
	rejected chan []byte

	mu     sync.Mutex
	peers  map[*peer]struct{}
	script Script
	joined chan struct{}
}

type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// NewLobbyServer starts a server that is closed when the test ends.
func NewLobbyServer(t testing.TB) *LobbyServer {
	t.Helper()
	s := &LobbyServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		received: make(chan packet.Outbound, 64),
		rejected: make(chan []byte, 64),
		peers:    make(map[*peer]struct{}),
		joined:   make(chan struct{}, 64),
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.serveWS)
	s.server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("lobby server not ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lobby server not ready: %s", resp.Status)
	}
	return s
}

// URL is the websocket URL clients dial.
func (s *LobbyServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

// Endpoint is the base URL without the /ws path.
func (s *LobbyServer) Endpoint() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// Reply installs a script run for every decoded client packet.
func (s *LobbyServer) Reply(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
}

// Push sends a client-bound packet to every connected client.
func (s *LobbyServer) Push(p packet.Inbound) {
	s.PushRaw(packet.EncodeInbound(p))
}

// PushRaw sends an arbitrary frame to every connected client.
func (s *LobbyServer) PushRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		p.send <- data
	}
}

// Next returns the next packet a client sent, failing the test on timeout.
func (s *LobbyServer) Next(t testing.TB) packet.Outbound {
	t.Helper()
	select {
	case p := <-s.received:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for client packet")
		return nil
	}
}

// ExpectNone fails the test if a client sends anything within d.
func (s *LobbyServer) ExpectNone(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case p := <-s.received:
		t.Fatalf("expected no client packet, got %T %+v", p, p)
	case <-time.After(d):
	}
}

// Rejected returns the next client frame the server codec could not decode.
func (s *LobbyServer) Rejected(t testing.TB) []byte {
	t.Helper()
	select {
	case data := <-s.rejected:
		return data
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for rejected frame")
		return nil
	}
}

// WaitConnections blocks until n connections have been accepted in total.
func (s *LobbyServer) WaitConnections(t testing.TB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.joined:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for connection %d", i+1)
		}
	}
}

// Connections reports how many clients are currently connected.
func (s *LobbyServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// DropAll closes every client connection without a close handshake.
func (s *LobbyServer) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		_ = p.conn.Close()
	}
}

// Close drops all clients and stops the server.
func (s *LobbyServer) Close() {
	s.DropAll()
	s.server.Close()
}

func (s *LobbyServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	p := &peer{conn: conn, send: make(chan []byte, 16)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range p.send {
			// keep draining after a failed write so pushes never block
			if failed {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = true
			}
		}
	}()

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	s.joined <- struct{}{}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		out, err := packet.DecodeOutbound(data)
		if err != nil {
			s.rejected <- data
			continue
		}
		s.received <- out

		s.mu.Lock()
		script := s.script
		s.mu.Unlock()
		if script == nil {
			continue
		}
		for _, reply := range script(out) {
			p.send <- packet.EncodeInbound(reply)
		}
	}

	s.mu.Lock()
	delete(s.peers, p)
	close(p.send)
	s.mu.Unlock()
	<-writerDone
}
