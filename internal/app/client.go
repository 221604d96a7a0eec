package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/packet"
)

// User-visible messages for transport failures.
const (
	ConnectFailedMessage   = "Failed to connect to server"
	ConnectionErrorMessage = "Connection error occurred"
)

// Transport is the duplex message channel a Client drives.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, data []byte) error
	// Messages returns the ordered inbound frames of the current connection
	// and is closed when that connection ends.
	Messages() <-chan []byte
	// Err reports why the last connection ended; nil after Disconnect.
	Err() error
	Disconnect() error
}

// Client binds one transport to one Session. A single dispatcher goroutine
// per connection decodes inbound frames and applies them in arrival order.
type Client struct {
	id             string
	transport      Transport
	session        *Session
	logger         *log.Logger
	decodeFailures atomic.Int64

	mu          sync.Mutex
	dispatching <-chan []byte
	loopDone    chan struct{}
}

// NewClient returns a disconnected client. Its log lines go to logger, or the
// standard logger when nil, prefixed with the client id.
func NewClient(transport Transport, logger *log.Logger) *Client {
	id := uuid.NewString()
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		id:        id,
		transport: transport,
		session:   NewSession(),
		logger:    log.New(logger.Writer(), fmt.Sprintf("%sclient %s ", logger.Prefix(), id[:8]), logger.Flags()),
	}
}

// ID returns the client's instance id.
func (c *Client) ID() string { return c.id }

// Connect opens the transport, or reuses it when already open, and makes sure
// one dispatcher is consuming it.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		if !errors.Is(err, domain.ErrDisconnected) {
			c.logger.Printf("failed to connect: %v", err)
			c.session.Disconnect(ConnectFailedMessage)
		}
		return err
	}

	msgs := c.transport.Messages()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatching == msgs {
		return nil
	}
	c.dispatching = msgs
	done := make(chan struct{})
	c.loopDone = done
	go c.dispatch(msgs, done)
	return nil
}

// Disconnect closes the transport and forces the disconnected phase. It is
// safe to call at any time, including while Connect is pending.
func (c *Client) Disconnect() {
	if err := c.transport.Disconnect(); err != nil {
		c.logger.Printf("disconnect: %v", err)
	}

	c.mu.Lock()
	done := c.loopDone
	c.dispatching = nil
	c.loopDone = nil
	c.mu.Unlock()
	if done != nil {
		<-done
	}

	if c.session.Disconnect("") {
		c.logger.Printf("disconnected")
	}
}

// Snapshot returns the current session state.
func (c *Client) Snapshot() Snapshot {
	return c.session.Snapshot()
}

// Subscribe streams session snapshots; see Session.Subscribe.
func (c *Client) Subscribe() (<-chan Snapshot, func()) {
	return c.session.Subscribe()
}

// Await blocks until a snapshot satisfies done or ctx ends.
func (c *Client) Await(ctx context.Context, done func(Snapshot) bool) (Snapshot, error) {
	ch, cancel := c.session.Subscribe()
	defer cancel()
	for {
		select {
		case snap := <-ch:
			if done(snap) {
				return snap, nil
			}
		case <-ctx.Done():
			return c.session.Snapshot(), ctx.Err()
		}
	}
}

// DecodeFailures counts inbound frames that could not be decoded.
func (c *Client) DecodeFailures() int64 {
	return c.decodeFailures.Load()
}

func (c *Client) send(ctx context.Context, p packet.Outbound) error {
	if err := c.transport.Send(ctx, packet.Encode(p)); err != nil {
		return fmt.Errorf("send %s: %w", p.OutboundType(), err)
	}
	return nil
}

func (c *Client) dispatch(msgs <-chan []byte, done chan struct{}) {
	defer close(done)
	for data := range msgs {
		c.handle(data)
	}
	if err := c.transport.Err(); err != nil {
		c.logger.Printf("websocket error: %v", err)
		c.session.Disconnect(ConnectionErrorMessage)
	}
}

func (c *Client) handle(data []byte) {
	p, err := packet.Decode(data)
	if err != nil {
		n := c.decodeFailures.Add(1)
		c.logger.Printf("error parsing message (%d total): %v", n, err)
		return
	}
	if err := c.session.Apply(p); err != nil {
		c.logger.Printf("ignored packet: %v", err)
	}
}
