package gaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cursork/glimpsh/logger"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// MockPath is the endpoint the mock server upgrades.
const MockPath = "/ws/gaze"

// Direction is a step for MockServer.Move.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// MockServer speaks the gaze protocol from a position moved by Move, for
// driving glimpsh without an eye tracker. It reports pixel coordinates.
type MockServer struct {
	name     string
	version  string
	width    float64
	height   float64
	step     float64
	interval time.Duration
	log      logger.Logger

	mu      sync.Mutex
	x, y    float64 // normalized
	seq     uint64
	clients map[net.Conn]struct{}

	ln     net.Listener
	srv    *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MockOption configures a MockServer.
type MockOption func(*MockServer)

// WithScreen sets the simulated screen size in pixels.
func WithScreen(width, height float64) MockOption {
	return func(s *MockServer) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithInterval sets the broadcast period.
func WithInterval(d time.Duration) MockOption {
	return func(s *MockServer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMockLogger sets the server logger.
func WithMockLogger(l logger.Logger) MockOption {
	return func(s *MockServer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewMockServer returns a server with gaze at the screen center.
func NewMockServer(opts ...MockOption) *MockServer {
	s := &MockServer{
		name:     "MockGaze",
		version:  "1.0",
		width:    1920,
		height:   1080,
		step:     0.08,
		interval: 33 * time.Millisecond,
		log:      logger.Nop(),
		x:        0.5,
		y:        0.5,
		clients:  make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and begins
// broadcasting.
func (s *MockServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mock gaze server: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(MockPath, s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(ctx, "mock gaze server stopped", logger.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.broadcast(ctx)
	}()

	s.log.Info(ctx, "mock gaze server listening", logger.String("url", s.URL()))
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *MockServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// URL returns the WebSocket URL clients should dial.
func (s *MockServer) URL() string {
	return "ws://" + s.Addr() + MockPath
}

// Close stops the server and drops every client.
func (s *MockServer) Close() error {
	if s.srv == nil {
		return nil
	}
	s.cancel()
	err := s.srv.Close()

	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// Move steps the simulated gaze, clamped to the screen.
func (s *MockServer) Move(d Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch d {
	case Up:
		s.y = max(0, s.y-s.step)
	case Down:
		s.y = min(1, s.y+s.step)
	case Left:
		s.x = max(0, s.x-s.step)
	case Right:
		s.x = min(1, s.x+s.step)
	}
}

// SetPosition places the simulated gaze at normalized coordinates.
func (s *MockServer) SetPosition(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = min(1, max(0, x))
	s.y = min(1, max(0, y))
}

// SetScreen changes the size positions are reported in, e.g. when the
// terminal hosting the mock is resized. Non-positive sizes are ignored.
func (s *MockServer) SetScreen(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Position returns the simulated gaze in normalized coordinates.
func (s *MockServer) Position() (x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// ClientCount returns the number of clients receiving broadcasts.
func (s *MockServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}

	hello, _ := json.Marshal(map[string]string{"type": "hello", "name": s.name, "version": s.version})
	if err := wsutil.WriteServerMessage(conn, ws.OpText, hello); err != nil {
		conn.Close()
		return
	}
	// The initial position goes out before the client joins the broadcast
	// set, so only one goroutine ever writes to conn at a time.
	s.mu.Lock()
	pos := s.positionLocked()
	s.mu.Unlock()
	if err := wsutil.WriteServerMessage(conn, ws.OpText, pos); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Drain until the client goes away.
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *MockServer) broadcast(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if len(s.clients) == 0 {
			s.mu.Unlock()
			continue
		}
		msg := s.positionLocked()
		for conn := range s.clients {
			if err := wsutil.WriteServerMessage(conn, ws.OpText, msg); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.mu.Unlock()
	}
}

// positionLocked encodes the next position message. s.mu must be held.
func (s *MockServer) positionLocked() []byte {
	s.seq++
	msg, _ := json.Marshal(struct {
		X   int    `json:"x_px"`
		Y   int    `json:"y_px"`
		Seq uint64 `json:"seq"`
	}{int(s.x * s.width), int(s.y * s.height), s.seq})
	return msg
}
