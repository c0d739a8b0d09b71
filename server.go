package wirehttp

import (
	"context"
	"crypto/tls"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type acceptResult struct {
	done chan struct{}
	conn net.Conn
	err  error
}

// Listener accepts connections and tracks the live ones. Progress is made
// one Process call at a time; RunBlocking and RunInBackground drive it.
type Listener struct {
	ln     net.Listener
	opts   options
	logger *zap.Logger

	mu sync.Mutex
	// pending is written by the Process goroutine under mu and read by Close.
	pending *acceptResult
	conns   []*Connection

	// closedConns wakes the run loop when a tracked connection closes.
	closedConns chan struct{}
	closed      atomic.Bool
}

// Listen binds address ("host:port") and returns a Listener that hands
// every parsed message to the handler set with WithHandler.
func Listen(address string, opts ...Option) (*Listener, error) {
	o := buildOptions(opts)
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", address)
	}
	if o.tlsConfig != nil {
		ln = tls.NewListener(ln, o.tlsConfig)
	}
	return &Listener{
		ln:          ln,
		opts:        o,
		logger:      o.logger.With(zap.String("listen", ln.Addr().String())),
		closedConns: make(chan struct{}, 1),
	}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Process runs one cycle: it takes over a completed accept, starts a new
// accept when none is pending and drops connections that have closed.
// It returns ErrListenerClosed once the listening socket is gone.
func (l *Listener) Process() error {
	if l.closed.Load() {
		return ErrListenerClosed
	}

	if p := l.pending; p != nil {
		select {
		case <-p.done:
			l.setPending(nil)
			if p.err != nil {
				if errors.Is(p.err, net.ErrClosed) {
					return ErrListenerClosed
				}
				l.logger.Warn("accept failed", zap.Error(p.err))
			} else {
				l.track(p.conn)
			}
		default:
		}
	}

	if l.pending == nil {
		l.setPending(l.accept())
	}

	l.prune()
	return nil
}

func (l *Listener) accept() *acceptResult {
	res := &acceptResult{done: make(chan struct{})}
	go func() {
		res.conn, res.err = l.ln.Accept()
		close(res.done)
	}()
	return res
}

func (l *Listener) setPending(p *acceptResult) {
	l.mu.Lock()
	l.pending = p
	l.mu.Unlock()
}

func (l *Listener) track(nc net.Conn) {
	conn := newConnection(nc, l.opts)
	conn.logger = l.logger.With(zap.String("remote", nc.RemoteAddr().String()))
	conn.notify = l.closedConns

	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		conn.Close()
		return
	}
	l.conns = append(l.conns, conn)
	l.mu.Unlock()

	l.logger.Debug("accepted connection", zap.Stringer("remote", nc.RemoteAddr()))
	conn.ReadAllMessages()
}

func (l *Listener) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns = lo.Filter(l.conns, func(c *Connection, _ int) bool {
		return c.Connected()
	})
}

// Len returns the number of live connections.
func (l *Listener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// RunBlocking calls Process until ctx is done or the listener closes.
// Between cycles it waits for an accept to complete, a connection to close
// or the poll interval to pass; with Config.BusyPoll it only yields the
// processor instead.
func (l *Listener) RunBlocking(ctx context.Context) error {
	cfg := l.opts.config
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultConfig().PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := l.Process(); err != nil {
			return err
		}
		if cfg.BusyPoll {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			runtime.Gosched()
			continue
		}

		var acceptDone chan struct{}
		if l.pending != nil {
			acceptDone = l.pending.done
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-acceptDone:
		case <-l.closedConns:
		case <-ticker.C:
		}
	}
}

// Background is the handle of a listener loop started by RunInBackground.
type Background struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// RunInBackground runs RunBlocking on its own goroutine.
func (l *Listener) RunInBackground(ctx context.Context) *Background {
	ctx, cancel := context.WithCancel(ctx)
	bg := &Background{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(bg.done)
		bg.err = l.RunBlocking(ctx)
	}()
	return bg
}

// Stop cancels the loop and waits for it to return.
func (b *Background) Stop() error {
	b.cancel()
	return b.Wait()
}

// Wait blocks until the loop returns. Cancellation and a closed listener
// are not reported as errors.
func (b *Background) Wait() error {
	<-b.done
	if errors.Is(b.err, context.Canceled) || errors.Is(b.err, ErrListenerClosed) {
		return nil
	}
	return b.err
}

func (b *Background) Done() <-chan struct{} {
	return b.done
}

// Close stops accepting and closes every live connection.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.ln.Close()
	l.logger.Debug("listener closed")

	l.mu.Lock()
	conns := l.conns
	l.conns = nil
	pending := l.pending
	l.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}

	// an accept that completed after the last Process cycle is never tracked
	if pending != nil {
		<-pending.done
		if pending.conn != nil {
			pending.conn.Close()
		}
	}
	return errors.WithStack(err)
}
