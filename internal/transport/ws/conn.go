// Package ws is the duplex message transport between a quiz client and the
// lobby server.
package ws

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"quiz-session-client/internal/config"
	"quiz-session-client/internal/domain"
)

// ConnectionError reports a transport that failed to open or closed
// unexpectedly. It unwraps to both its Kind (domain.ErrConnectionFailed,
// domain.ErrConnectionLost or domain.ErrDisconnected) and the underlying cause.
type ConnectionError struct {
	URL  string
	Kind error
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.URL, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.URL, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Options configures a Conn.
type Options struct {
	URL            string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	InboundBuffer  int
	Dialer         *websocket.Dialer
	Logger         *log.Logger
}

// OptionsFromConfig derives transport options from the client config.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	u, err := cfg.URL()
	if err != nil {
		return Options{}, err
	}
	return Options{
		URL:            u,
		ConnectTimeout: cfg.ConnectTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		ReadLimit:      cfg.ReadLimit(),
		InboundBuffer:  cfg.InboundBuffer(),
	}, nil
}

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateOpen
)

type outbound struct {
	data []byte
	done chan error
}

// Conn holds at most one live websocket connection.
type Conn struct {
	opts   Options
	dialer *websocket.Dialer
	logger *log.Logger
	sf     singleflight.Group

	mu         sync.Mutex
	state      state
	gen        uint64
	conn       *websocket.Conn
	cancelDial context.CancelFunc
	waiters    int
	messages   chan []byte
	send       chan outbound
	done       chan struct{}
	err        error
}

// New returns a disconnected Conn.
func New(opts Options) *Conn {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = config.DefaultConnectTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = config.DefaultWriteTimeout
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = config.DefaultReadLimit
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = config.DefaultInboundBuffer
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Conn{opts: opts, dialer: dialer, logger: logger}
}

// Connect opens the connection. Concurrent calls share a single dial, and a
// call on an open connection returns immediately. When every caller waiting
// on a dial has given up, the dial is abandoned and no socket is left open.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateOpen {
		c.mu.Unlock()
		return nil
	}
	c.waiters++
	gen := c.gen
	c.mu.Unlock()

	ch := c.sf.DoChan("connect", func() (interface{}, error) {
		return nil, c.dial(gen)
	})
	select {
	case res := <-ch:
		c.mu.Lock()
		c.waiters--
		c.mu.Unlock()
		return res.Err
	case <-ctx.Done():
		return c.abandon(ctx.Err())
	}
}

// abandon drops one waiter of a pending dial and cancels the dial once
// nobody is waiting for it.
func (c *Conn) abandon(cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waiters--
	if c.state == stateOpen {
		return nil
	}
	if c.waiters > 0 {
		return cause
	}
	c.gen++
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.state = stateIdle
	c.sf.Forget("connect")
	c.logger.Printf("websocket connect abandoned: %v", cause)
	return cause
}

func (c *Conn) dial(gen uint64) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return &ConnectionError{URL: c.opts.URL, Kind: domain.ErrDisconnected}
	}
	if c.state == stateOpen {
		c.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	defer cancel()
	c.state = stateConnecting
	c.cancelDial = cancel
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		if conn != nil {
			_ = conn.Close()
		}
		return &ConnectionError{URL: c.opts.URL, Kind: domain.ErrDisconnected}
	}
	c.cancelDial = nil
	if err != nil {
		c.state = stateIdle
		cerr := &ConnectionError{URL: c.opts.URL, Kind: domain.ErrConnectionFailed, Err: err}
		c.err = cerr
		c.logger.Printf("websocket error: %v", cerr)
		return cerr
	}

	conn.SetReadLimit(c.opts.ReadLimit)
	c.conn = conn
	c.state = stateOpen
	c.err = nil
	c.messages = make(chan []byte, c.opts.InboundBuffer)
	c.send = make(chan outbound)
	c.done = make(chan struct{})
	go c.readLoop(gen, conn, c.messages, c.done)
	go c.writeLoop(conn, c.send, c.done)
	c.logger.Printf("websocket connection established: %s", c.opts.URL)
	return nil
}

// Send writes one message. It fails with domain.ErrNotConnected unless the
// connection is open; nothing is buffered for a later connection.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	send, done := c.send, c.done
	c.mu.Unlock()

	msg := outbound{data: data, done: make(chan error, 1)}
	select {
	case send <- msg:
	case <-done:
		return domain.ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := <-msg.done; err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Messages returns the inbound frames of the current connection. The channel
// is closed when that connection ends; a new connection gets a new channel.
func (c *Conn) Messages() <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages == nil {
		closed := make(chan []byte)
		close(closed)
		return closed
	}
	return c.messages
}

// Connected reports whether the connection is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Err reports why the last connection ended. It is nil after Disconnect.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Disconnect closes the connection or cancels a pending dial. It is safe to
// call at any time and any number of times.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.err = nil
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.sf.Forget("connect")
	if c.state == stateOpen && c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
		close(c.done)
		c.logger.Printf("websocket connection closed")
	}
	c.conn = nil
	c.state = stateIdle
	return nil
}

func (c *Conn) readLoop(gen uint64, conn *websocket.Conn, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.lost(gen, conn, err)
			return
		}
		// Some server messages carry no body.
		if len(data) == 0 {
			continue
		}
		select {
		case out <- data:
		case <-done:
			return
		}
	}
}

func (c *Conn) writeLoop(conn *websocket.Conn, send <-chan outbound, done <-chan struct{}) {
	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			msg.done <- conn.WriteMessage(websocket.TextMessage, msg.data)
		case <-done:
			return
		}
	}
}

// lost records an unexpected end of connection gen. Ends caused by
// Disconnect have already bumped the generation and are ignored.
func (c *Conn) lost(gen uint64, conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.gen++
	_ = conn.Close()
	close(c.done)
	c.conn = nil
	c.state = stateIdle
	c.err = &ConnectionError{URL: c.opts.URL, Kind: domain.ErrConnectionLost, Err: cause}
	c.logger.Printf("websocket connection closed: %v", cause)
}
