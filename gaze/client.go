package gaze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cursork/glimpsh/logger"
	"github.com/cursork/glimpsh/metrics"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// DefaultURL is where gaze providers listen unless configured otherwise.
const DefaultURL = "ws://127.0.0.1:8001/"

// ErrTransport wraps dial and read failures. They are never fatal; the
// client reconnects.
var ErrTransport = errors.New("gaze transport")

// ClientConfig controls where and how the client connects.
type ClientConfig struct {
	URL            string
	ReconnectDelay time.Duration // pause between connection attempts
	DialTimeout    time.Duration
	StopGrace      time.Duration // how long Stop waits for the loop to exit
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 500 * time.Millisecond
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.StopGrace <= 0 {
		c.StopGrace = time.Second
	}
	return c
}

// Handlers receive client events. Every field is optional. All callbacks run
// on the client goroutine.
type Handlers struct {
	OnSample     func(Sample)
	OnConnect    func()
	OnDisconnect func()
	OnIdentity   func(ServerIdentity)
	OnStatus     func(string)
	OnError      func(error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records transport and decode counters on m.
func WithMetrics(m *metrics.Manager) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithClock replaces time.Now for stamping samples without a timestamp.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client keeps a WebSocket connection to a gaze source open, decoding each
// message and dispatching it to the handlers.
type Client struct {
	cfg     ClientConfig
	h       Handlers
	log     logger.Logger
	metrics *metrics.Manager
	now     func() time.Time

	running   atomic.Bool
	connected atomic.Bool

	mu        sync.Mutex
	latest    Sample
	hasLatest bool

	ctl    sync.Mutex // guards cancel and done across Start/Stop
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a client. It does not connect until Start.
func NewClient(cfg ClientConfig, h Handlers, opts ...ClientOption) *Client {
	c := &Client{
		cfg: cfg.withDefaults(),
		h:   h,
		log: logger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client connects to.
func (c *Client) URL() string { return c.cfg.URL }

// Start launches the connection loop. Calling Start on a running client does
// nothing.
func (c *Client) Start() {
	c.ctl.Lock()
	defer c.ctl.Unlock()
	if c.running.Load() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running.Store(true)
	go c.run(ctx, c.done)
}

// Stop ends the connection loop, waiting up to StopGrace for it to exit.
func (c *Client) Stop() {
	c.ctl.Lock()
	defer c.ctl.Unlock()
	if !c.running.Load() {
		return
	}
	c.running.Store(false)
	c.cancel()

	select {
	case <-c.done:
	case <-time.After(c.cfg.StopGrace):
		c.log.Warn(context.Background(), "gaze client did not stop in time; abandoning",
			logger.String("url", c.cfg.URL))
	}
}

// Running reports whether the connection loop is active.
func (c *Client) Running() bool { return c.running.Load() }

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

// Latest returns the most recent sample, if any has arrived.
func (c *Client) Latest() (Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		c.session(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// session dials once and reads until the connection ends or ctx is done.
func (c *Client) session(ctx context.Context) {
	id := uuid.NewString()
	log := c.log.Named("gaze")
	fields := []logger.Field{logger.String("conn", id), logger.String("url", c.cfg.URL)}

	dialer := ws.Dialer{Timeout: c.cfg.DialTimeout}
	conn, br, _, err := dialer.Dial(ctx, c.cfg.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Debug(ctx, "dial failed", append(fields, logger.Error(err))...)
		c.fail(fmt.Errorf("%w: dial %s: %v", ErrTransport, c.cfg.URL, err))
		return
	}

	// Closing the connection unblocks the read below when Stop is called.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			io.Reader
			io.Writer
		}{io.MultiReader(br, conn), conn}
		defer ws.PutReader(br)
	}

	c.connected.Store(true)
	c.metrics.Connected()
	log.Info(ctx, "connected", fields...)
	if c.h.OnConnect != nil {
		c.h.OnConnect()
	}

	defer func() {
		c.connected.Store(false)
		c.metrics.Disconnected()
		log.Info(ctx, "disconnected", fields...)
		if c.h.OnDisconnect != nil {
			c.h.OnDisconnect()
		}
	}()

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var closed wsutil.ClosedError
			if !errors.As(err, &closed) {
				c.fail(fmt.Errorf("%w: read: %v", ErrTransport, err))
			}
			return
		}
		c.dispatch(ctx, log, data, op == ws.OpBinary)
	}
}

func (c *Client) dispatch(ctx context.Context, log logger.Logger, data []byte, binary bool) {
	msg, err := Decode(data, binary, c.now())
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			c.metrics.RemoteError()
			log.Warn(ctx, "gaze source reported an error", logger.String("message", remote.Message))
			c.fail(err)
			return
		}
		c.metrics.DecodeError()
		log.Debug(ctx, "dropping undecodable message", logger.Error(err), logger.Int("bytes", len(data)))
		return
	}

	switch msg.Kind {
	case KindSample:
		c.mu.Lock()
		c.latest, c.hasLatest = msg.Sample, true
		c.mu.Unlock()
		c.metrics.SampleReceived()
		if c.h.OnSample != nil {
			c.h.OnSample(msg.Sample)
		}
	case KindHello:
		log.Info(ctx, "gaze source identified",
			logger.String("name", msg.Identity.Name), logger.String("version", msg.Identity.Version))
		if c.h.OnIdentity != nil {
			c.h.OnIdentity(msg.Identity)
		}
	case KindStatus:
		log.Debug(ctx, "gaze source status", logger.String("status", msg.Status))
		if c.h.OnStatus != nil {
			c.h.OnStatus(msg.Status)
		}
	}
}

func (c *Client) fail(err error) {
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
}
