package core

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/encodeous/tint"
	"github.com/getlantern/kaleidoscope/persist"
	"github.com/getlantern/kaleidoscope/routing"
	"github.com/getlantern/kaleidoscope/state"
	"github.com/getlantern/kaleidoscope/transport"
	slogmulti "github.com/samber/slog-multi"
)

// Start runs a kaleidoscope node on the current host until it receives
// SIGINT/SIGTERM. The routing table is restored from the configured snapshot
// file when one exists, the configured peers are added, and the node
// advertises itself and persists its table periodically.
func Start(cfg state.NodeCfg, logLevel slog.Level) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	logger, closeLog, err := buildLogger(cfg, logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	table, store, err := restoreTable(cfg, logger)
	if err != nil {
		return err
	}

	table.AddNeighbors(cfg.PeerIds())

	peers := make(map[state.NodeId]netip.AddrPort, len(cfg.Peers))
	for _, p := range cfg.Peers {
		peers[p.Id] = p.Addr
	}

	tp := transport.NewTCP(ctx, logger, peers)
	defer tp.Close()

	node := NewNode(cfg.Id, cfg.Params, table, tp)

	go func() {
		if err := tp.Listen(cfg.Bind, node); err != nil {
			cancel(err)
		}
	}()

	go advertiseLoop(ctx, logger, node)
	go persistLoop(ctx, logger, table, store)

	logger.Info("kaleidoscope node is running, send SIGINT or Ctrl+C to exit",
		"id", cfg.Id, "neighbours", table.Size())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case <-c:
		cancel(errors.New("received shutdown signal"))
	case <-ctx.Done():
	}

	// the snapshot must survive the restart, routes are only sybil
	// resistant if they repeat
	if store != nil {
		if err := store.Store(table.Snapshot()); err != nil {
			logger.Error("failed to persist routing table", "err", err)
		}
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		logger.Info("shutting down", "cause", cause)
	}
	return nil
}

func buildLogger(cfg state.NodeCfg, level slog.Level) (*slog.Logger, func(), error) {
	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:        level,
		TimeFormat:   "15:04:05",
		CustomPrefix: string(cfg.Id),
	})
	if cfg.LogPath == "" {
		return slog.New(console), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	handler := slogmulti.Fanout(
		console,
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}),
	)
	return slog.New(handler), func() { f.Close() }, nil
}

// restoreTable loads the persisted routing table when a snapshot file is
// configured and present; a missing file yields a fresh table.
func restoreTable(cfg state.NodeCfg, logger *slog.Logger) (*routing.Table, persist.Mechanism, error) {
	if cfg.TablePath == "" {
		return routing.New(), nil, nil
	}
	store := persist.NewJSONFile(cfg.TablePath)
	snapshot, err := store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no routing table snapshot, starting fresh", "path", cfg.TablePath)
			return routing.New(), store, nil
		}
		return nil, nil, err
	}
	table, err := routing.FromSnapshot(snapshot)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("restored routing table", "path", cfg.TablePath, "neighbours", table.Size())
	return table, store, nil
}

func advertiseLoop(ctx context.Context, logger *slog.Logger, node *Node) {
	ticker := time.NewTicker(state.AdvertiseDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug("advertising self")
			node.AdvertiseSelf(state.Advertisement{Payload: string(node.Id())})
		}
	}
}

func persistLoop(ctx context.Context, logger *slog.Logger, table *routing.Table, store persist.Mechanism) {
	if store == nil {
		return
	}
	ticker := time.NewTicker(state.PersistDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Store(table.Snapshot()); err != nil {
				logger.Error("failed to persist routing table", "err", err)
			}
		}
	}
}
