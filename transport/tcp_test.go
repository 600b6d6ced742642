package transport

import (
	"context"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/getlantern/kaleidoscope/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []state.Advertisement
}

func (h *recordingHandler) HandleAdvertisement(msg state.Advertisement) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHandler) messages() []state.Advertisement {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]state.Advertisement(nil), h.msgs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startReceiver(t *testing.T, ctx context.Context, handler Handler) *TCP {
	t.Helper()
	rx := NewTCP(ctx, discardLogger(), nil)
	go func() {
		_ = rx.Listen(netip.MustParseAddrPort("127.0.0.1:0"), handler)
	}()
	require.Eventually(t, func() bool {
		return rx.Addr().IsValid()
	}, 5*time.Second, 10*time.Millisecond)
	return rx
}

func TestTCP_Delivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	rx := startReceiver(t, ctx, handler)
	defer rx.Close()

	tx := NewTCP(ctx, discardLogger(), map[state.NodeId]netip.AddrPort{
		"bob": rx.Addr(),
	})
	defer tx.Close()

	msg := state.Advertisement{Sender: "alice", TTL: 6, Payload: "relay at alice"}
	tx.SendAdvertisement(msg, "bob", 6)

	require.Eventually(t, func() bool {
		return len(handler.messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := handler.messages()[0]
	assert.Equal(t, state.NodeId("alice"), got.Sender)
	assert.Equal(t, 6, got.TTL)
	assert.Equal(t, "relay at alice", got.Payload)
}

func TestTCP_ReusesLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	rx := startReceiver(t, ctx, handler)
	defer rx.Close()

	tx := NewTCP(ctx, discardLogger(), map[state.NodeId]netip.AddrPort{
		"bob": rx.Addr(),
	})
	defer tx.Close()

	for i := 0; i < 20; i++ {
		tx.SendAdvertisement(state.Advertisement{Sender: "alice", TTL: i + 2}, "bob", i+2)
	}
	require.Eventually(t, func() bool {
		return len(handler.messages()) == 20
	}, 5*time.Second, 10*time.Millisecond)

	// all twenty envelopes travelled one cached connection
	assert.Equal(t, 1, tx.links.Len())
	ttls := make([]int, 0, 20)
	for _, m := range handler.messages() {
		ttls = append(ttls, m.TTL)
	}
	for i, ttl := range ttls {
		assert.Equal(t, i+2, ttl)
	}
}

func TestTCP_UnknownNeighborDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tx := NewTCP(ctx, discardLogger(), nil)
	defer tx.Close()

	// no endpoint, no panic, nothing cached
	tx.SendAdvertisement(state.Advertisement{Sender: "alice", TTL: 3}, "nobody", 3)
	assert.Equal(t, 0, tx.links.Len())
}

func TestTCP_UnreachableNeighborDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tx := NewTCP(ctx, discardLogger(), map[state.NodeId]netip.AddrPort{
		// reserved port that nothing listens on
		"ghost": netip.MustParseAddrPort("127.0.0.1:1"),
	})
	defer tx.Close()

	tx.SendAdvertisement(state.Advertisement{Sender: "alice", TTL: 3}, "ghost", 3)
	assert.Equal(t, 0, tx.links.Len())
}
