// Package transport carries advertisements between neighbouring nodes over
// TCP, one JSON envelope per line. It is an embedder-side adapter: the
// routing core only ever sees it through the core.Transport interface.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/getlantern/kaleidoscope/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Handler consumes inbound advertisements, typically a *core.Node.
type Handler interface {
	HandleAdvertisement(msg state.Advertisement)
}

type link struct {
	id   uuid.UUID
	conn net.Conn
	mu   sync.Mutex
}

func (l *link) write(msg state.Advertisement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(state.WriteTimeout))
	return writeAdvertisement(l.conn, msg)
}

// TCP sends and receives advertisements over TCP. Outbound connections are
// cached per neighbour and closed after sitting idle.
type TCP struct {
	ctx   context.Context
	log   *slog.Logger
	peers map[state.NodeId]netip.AddrPort

	links *ttlcache.Cache[state.NodeId, *link]

	mu       sync.Mutex
	listener net.Listener
	inbound  map[uuid.UUID]net.Conn
}

// NewTCP constructs a transport that reaches each peer at the given
// endpoint. Delivery is best effort: failures are logged and the message is
// dropped, which the protocol tolerates.
func NewTCP(ctx context.Context, log *slog.Logger, peers map[state.NodeId]netip.AddrPort) *TCP {
	t := &TCP{
		ctx:     ctx,
		log:     log,
		peers:   peers,
		inbound: make(map[uuid.UUID]net.Conn),
	}
	t.links = ttlcache.New[state.NodeId, *link](
		ttlcache.WithTTL[state.NodeId, *link](state.LinkIdleTTL),
	)
	t.links.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[state.NodeId, *link]) {
		item.Value().conn.Close()
	})
	go t.links.Start()
	return t
}

// SendAdvertisement implements core.Transport.
func (t *TCP) SendAdvertisement(msg state.Advertisement, neighbor state.NodeId, ttl int) {
	addr, ok := t.peers[neighbor]
	if !ok {
		t.log.Warn("no endpoint for neighbour", "node", neighbor)
		return
	}
	l, err := t.link(neighbor, addr)
	if err != nil {
		t.log.Warn("failed to reach neighbour", "node", neighbor, "addr", addr, "err", err)
		return
	}
	if err := l.write(msg); err != nil {
		t.log.Warn("failed to send advertisement", "node", neighbor, "ttl", ttl, "err", err)
		t.links.Delete(neighbor)
	}
}

func (t *TCP) link(neighbor state.NodeId, addr netip.AddrPort) (*link, error) {
	if item := t.links.Get(neighbor); item != nil {
		return item.Value(), nil
	}
	dialer := net.Dialer{Timeout: state.DialTimeout}
	conn, err := dialer.DialContext(t.ctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}
	l := &link{id: uuid.New(), conn: conn}
	t.links.Set(neighbor, l, ttlcache.DefaultTTL)
	return l, nil
}

// Listen accepts connections from neighbours and hands every decoded
// advertisement to the handler. It blocks until the context is cancelled or
// the transport is closed.
func (t *TCP) Listen(bind netip.AddrPort, handler Handler) error {
	config := net.ListenConfig{}
	listener, err := config.Listen(t.ctx, "tcp", bind.String())
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	stop := context.AfterFunc(t.ctx, func() { listener.Close() })
	defer stop()

	t.log.Info("listening", "addr", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			t.log.Warn("failed to accept connection", "err", err)
			continue
		}
		go t.serve(conn, handler)
	}
}

// Addr returns the bound listen address, or the zero AddrPort if Listen has
// not started yet. Useful when binding port zero.
func (t *TCP) Addr() netip.AddrPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return netip.AddrPort{}
	}
	if addr, ok := t.listener.Addr().(*net.TCPAddr); ok {
		return addr.AddrPort()
	}
	return netip.AddrPort{}
}

func (t *TCP) serve(conn net.Conn, handler Handler) {
	id := uuid.New()
	t.mu.Lock()
	t.inbound[id] = conn
	t.mu.Unlock()
	defer func() {
		conn.Close()
		t.mu.Lock()
		delete(t.inbound, id)
		t.mu.Unlock()
	}()

	dec := json.NewDecoder(conn)
	for {
		msg, err := readAdvertisement(dec)
		if err != nil {
			if err != io.EOF && t.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				t.log.Debug("link closed", "err", err)
			}
			return
		}
		handler.HandleAdvertisement(msg)
	}
}

// Close shuts the listener and every open connection.
func (t *TCP) Close() {
	t.mu.Lock()
	if t.listener != nil {
		t.listener.Close()
	}
	for _, conn := range t.inbound {
		conn.Close()
	}
	t.mu.Unlock()

	t.links.DeleteAll()
	t.links.Stop()
}
