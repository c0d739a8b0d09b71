package wirehttp

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Conn is the raw byte stream under a Connection. net.Conn and *tls.Conn
// satisfy it.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// Connection carries HTTP messages over one Conn. Its read loop and
// external writers may use it concurrently.
type Connection struct {
	conn   Conn
	br     *bufio.Reader
	parser *Parser

	wmu    sync.Mutex
	writer *Writer

	keepAlive atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	started   atomic.Bool

	handler HandlerFunc
	logger  *zap.Logger
	// notify is signalled without blocking once the connection closes.
	notify chan<- struct{}
}

// NewConnection wraps c. The connection owns c from now on.
func NewConnection(c Conn, opts ...Option) *Connection {
	return newConnection(c, buildOptions(opts))
}

func newConnection(c Conn, o options) *Connection {
	conn := &Connection{
		conn:    c,
		br:      bufio.NewReaderSize(c, 4096),
		writer:  NewWriter(c),
		done:    make(chan struct{}),
		handler: o.handler,
		logger:  o.logger,
	}
	if addr := c.RemoteAddr(); addr != nil {
		conn.logger = conn.logger.With(zap.String("remote", addr.String()))
	}
	conn.parser = NewParser(conn.br, o.config.ParserConfig())
	conn.parser.conn = conn
	return conn
}

// Connect dials host:port and returns a client Connection. A port of zero
// or less picks 443 with TLS and 80 without.
func Connect(ctx context.Context, host string, port int, useTLS bool, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)
	if port <= 0 {
		port = 80
		if useTLS {
			port = 443
		}
	}

	dialer := &net.Dialer{Timeout: o.config.DialTimeout}
	address := net.JoinHostPort(host, strconv.Itoa(port))
	raw, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", address)
	}
	if !useTLS {
		return newConnection(raw, o), nil
	}

	cfg := o.tlsConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	tc := tls.Client(raw, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, "tls handshake with %s", address)
	}
	return newConnection(tc, o), nil
}

// ReadMessage parses exactly one message. It returns nil, nil when the
// peer closed the stream before a new message started. It must not be
// called while the read loop runs.
func (c *Connection) ReadMessage() (Message, error) {
	return c.parser.ParseMessage()
}

func (c *Connection) WriteMessage(m Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.writer.WriteMessage(m)
}

// RoundTrip writes req and reads the response to it.
func (c *Connection) RoundTrip(req *Request) (*Response, error) {
	if err := c.WriteMessage(req); err != nil {
		return nil, err
	}
	msg, err := c.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errors.WithStack(io.ErrUnexpectedEOF)
	}
	resp, ok := msg.(*Response)
	if !ok {
		msg.Close()
		return nil, errors.Wrapf(ErrUnexpectedMessage, "got %s", msg.Kind())
	}
	return resp, nil
}

// ReadAllMessages starts the read loop in its own goroutine. Each parsed
// message goes to the handler; the loop keeps reading while the last
// message asked for keep-alive and closes the connection otherwise.
// Calling it more than once has no effect.
func (c *Connection) ReadAllMessages() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.readLoop()
}

func (c *Connection) readLoop() {
	defer c.Close()
	for {
		msg, err := c.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				c.logger.Debug("read loop stopped by close", zap.Error(err))
			} else {
				c.logger.Warn("failed to read message", zap.Error(err))
			}
			return
		}
		if msg == nil {
			c.logger.Debug("peer closed connection")
			return
		}

		c.dispatch(msg)

		if !c.KeepAlive() {
			c.logger.Debug("connection not kept alive")
			return
		}
		if err := msg.Close(); err != nil {
			c.logger.Warn("failed to skip message body", zap.Error(err))
			return
		}
	}
}

func (c *Connection) dispatch(msg Message) {
	if c.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handler panicked", zap.Any("panic", r), zap.Stringer("kind", msg.Kind()))
		}
	}()
	c.handler(msg)
}

// KeepAlive reports whether the last parsed message asked to keep the
// connection open.
func (c *Connection) KeepAlive() bool {
	return c.keepAlive.Load()
}

// Connected reports whether the connection is still open.
func (c *Connection) Connected() bool {
	return !c.closed.Load()
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying stream, failing any read in flight.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
		close(c.done)
		if c.notify != nil {
			select {
			case c.notify <- struct{}{}:
			default:
			}
		}
	})
	return errors.WithStack(err)
}
