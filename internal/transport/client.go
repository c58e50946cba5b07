package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 1 << 20
)

// ErrClosed is returned by Emit once the client has been closed.
var ErrClosed = errors.New("transport: client closed")

// ClientIDHeader carries the per-process client id on the handshake.
const ClientIDHeader = "X-Client-ID"

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// Subscriber registers inbound event handlers.
type Subscriber interface {
	Subscribe(event string, h Handler)
}

// Client is a named-event channel over one websocket connection.
// Handlers run on the read goroutine, one at a time, in arrival order.
type Client struct {
	id   string
	conn *websocket.Conn

	mu       sync.RWMutex
	handlers map[string]Handler

	send      chan Envelope
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

type dialConfig struct {
	dialer *websocket.Dialer
	header http.Header
	id     string
}

// Option customizes Dial.
type Option func(*dialConfig)

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *dialConfig) { c.dialer = d }
}

// WithHeader adds a handshake header.
func WithHeader(key, value string) Option {
	return func(c *dialConfig) { c.header.Set(key, value) }
}

// WithClientID overrides the generated client id.
func WithClientID(id string) Option {
	return func(c *dialConfig) { c.id = id }
}

// Dial connects to the coordinator at url. The returned client does not
// read or write until Run is called.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	cfg := dialConfig{
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		header: http.Header{},
		id:     uuid.NewString(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.header.Set(ClientIDHeader, cfg.id)

	conn, resp, err := cfg.dialer.DialContext(ctx, url, cfg.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Debug().Str("client", cfg.id).Str("url", url).Msg("[transport] connected")
	return &Client{
		id:       cfg.id,
		conn:     conn,
		handlers: map[string]Handler{},
		send:     make(chan Envelope, sendBufferSize),
		done:     make(chan struct{}),
	}, nil
}

// ID returns the client id sent on the handshake.
func (c *Client) ID() string {
	return c.id
}

// Subscribe registers h for event, replacing any earlier handler.
func (c *Client) Subscribe(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// Emit queues one event for the coordinator. Delivery is not acknowledged.
func (c *Client) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.send <- Envelope{Event: event, Data: data}:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Run pumps frames until ctx is done or the connection fails.
// It returns nil on cancellation or a clean close.
func (c *Client) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- c.writeLoop() }()
	go func() { errc <- c.readLoop() }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}
	_ = c.Close()
	var ce *websocket.CloseError
	if errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (c *Client) readLoop() error {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil || env.Event == "" {
			log.Warn().Err(err).Str("client", c.id).Msg("[transport] dropping malformed frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	c.mu.RLock()
	h := c.handlers[env.Event]
	c.mu.RUnlock()
	if h == nil {
		log.Debug().Str("event", env.Event).Msg("[transport] no handler")
		return
	}
	h(env.Data)
}

func (c *Client) writeLoop() error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return fmt.Errorf("write %s: %w", env.Event, err)
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-c.done:
			return nil
		}
	}
}

// Close sends a close frame and tears down the connection. It is safe to
// call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}
