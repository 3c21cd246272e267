package radio

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/beacon/core"
	"github.com/encodeous/beacon/state"
	"golang.org/x/sync/errgroup"
)

type NetworkOptions struct {
	// Logger returns the logger of a node, defaults to slog.Default tagged with the node address
	Logger func(ncfg state.NodeCfg) (*slog.Logger, error)
	// Sink builds the table sink of a node from its logger, defaults to logging evictions only
	Sink  func(log *slog.Logger) core.TableSink
	Clock clock.Clock
	// Ready is called on the main loop of each node once it is running
	Ready func(s *state.State)
}

// RunNetwork runs every node of the simulation on one shared medium until the configured
// duration elapses, ctx is cancelled or a node fails.
// nodes are the expanded node configurations, in the same order as cfg.Nodes.
func RunNetwork(ctx context.Context, cfg *state.SimCfg, nodes []state.NodeCfg, opt NetworkOptions) error {
	if opt.Clock == nil {
		opt.Clock = clock.New()
	}
	if opt.Logger == nil {
		opt.Logger = func(ncfg state.NodeCfg) (*slog.Logger, error) {
			return slog.Default().With("node", ncfg.Id.String()), nil
		}
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = opt.Clock.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	medium := NewMedium(cfg.Medium, cfg.Seed)
	g, gctx := errgroup.WithContext(ctx)
	for i, ncfg := range nodes {
		sn := cfg.Nodes[i]
		g.Go(func() error {
			return runNode(gctx, medium, sn, ncfg, opt)
		})
	}
	return g.Wait()
}

func runNode(ctx context.Context, medium *Medium, sn state.SimNodeCfg, ncfg state.NodeCfg, opt NetworkOptions) error {
	log, err := opt.Logger(ncfg)
	if err != nil {
		return err
	}
	if sn.Start > 0 {
		timer := opt.Clock.Timer(sn.Start)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
		log.Info("powered on", "after", sn.Start)
	}
	if sn.Stop > 0 {
		var cancel context.CancelFunc
		ctx, cancel = opt.Clock.WithTimeout(ctx, sn.Stop-sn.Start)
		defer cancel()
	}

	var sink core.TableSink
	if opt.Sink != nil {
		sink = opt.Sink(log)
	}
	r, err := medium.Attach(ncfg.Id, Position{X: sn.X, Y: sn.Y})
	if err != nil {
		return err
	}
	return core.Start(ctx, ncfg, core.Options{
		Transport: r,
		Log:       log,
		Clock:     opt.Clock,
		Sink:      sink,
		Ready:     opt.Ready,
	})
}
