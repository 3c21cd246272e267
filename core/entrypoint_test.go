package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/encodeous/beacon/mock"
	"github.com/encodeous/beacon/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastNode() state.NodeCfg {
	cfg := state.NodeCfg{
		Id:             state.Addr{1, 0},
		BeaconInterval: 20 * time.Millisecond,
		PruneInterval:  40 * time.Millisecond,
	}
	state.ExpandNodeConfig(&cfg)
	return cfg
}

func startNode(t *testing.T, ctx context.Context, cfg state.NodeCfg, tr state.Transport, sink TableSink) (*state.State, <-chan error) {
	t.Helper()
	ready := make(chan *state.State, 1)
	errs := make(chan error, 1)
	go func() {
		errs <- Start(ctx, cfg, Options{
			Transport: tr,
			Log:       discardLogger(),
			Sink:      sink,
			Ready: func(s *state.State) {
				ready <- s
			},
		})
	}()
	select {
	case s := <-ready:
		return s, errs
	case err := <-errs:
		t.Fatalf("node failed to start: %v", err)
	case <-time.After(time.Second):
		t.Fatal("node did not start")
	}
	return nil, nil
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	tr := &mock.Transport{}

	s, errs := startNode(t, ctx, fastNode(), tr, nil)
	tr.Deliver(state.Addr{2, 0}, -40)

	assert.Eventually(t, func() bool {
		return tr.SentCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	res, err := s.DispatchWait(func(s *state.State) (any, error) {
		return s.Neighbours.Snapshot(), nil
	})
	require.NoError(t, err)
	snap := res.([]state.Neighbour)
	require.Len(t, snap, 1)
	assert.Equal(t, state.Addr{2, 0}, snap[0].Addr)
	assert.Equal(t, 1, snap[0].RxCount)
	assert.GreaterOrEqual(t, snap[0].TxCount, 3)

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("node did not stop")
	}
	assert.True(t, tr.Closed())
	assert.True(t, s.Stopping.Load())
}

func TestSilentNeighbourIsEvicted(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &mock.Transport{}
	evicted := make(chan state.Addr, 1)

	_, errs := startNode(t, ctx, fastNode(), tr, &chanSink{evicted: evicted})
	tr.Deliver(state.Addr{9, 9}, -50)

	select {
	case a := <-evicted:
		assert.Equal(t, state.Addr{9, 9}, a)
	case <-time.After(2 * time.Second):
		t.Fatal("neighbour was never evicted")
	}
	cancel()
	assert.NoError(t, <-errs)
}

func TestDispatchErrorStopsNode(t *testing.T) {
	defer goleak.VerifyNone(t)
	tr := &mock.Transport{}
	s, errs := startNode(t, context.Background(), fastNode(), tr, nil)

	boom := errors.New("boom")
	s.Dispatch(func(s *state.State) error {
		return boom
	})
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("node did not stop")
	}
	assert.ErrorIs(t, context.Cause(s.Context), boom)
	assert.True(t, tr.Closed())
}

func TestStartRequiresTransport(t *testing.T) {
	assert.Error(t, Start(context.Background(), fastNode(), Options{}))
}

func TestReadNodeConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(p, []byte("addr: \"3.4\"\nprune_interval: 1m\n"), 0600))

	cfg, err := ReadNodeConfig(p)
	require.NoError(t, err)
	assert.Equal(t, state.Addr{3, 4}, cfg.Id)
	assert.Equal(t, time.Minute, cfg.PruneInterval)
	assert.Equal(t, state.BeaconInterval, cfg.BeaconInterval)

	require.NoError(t, os.WriteFile(p, []byte("addr: \"0.0\"\n"), 0600))
	_, err = ReadNodeConfig(p)
	assert.Error(t, err)

	_, err = ReadNodeConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadSimConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
nodes:
  - addr: "1.0"
  - addr: "2.0"
    x: 5
`), 0600))
	cfg, nodes, err := ReadSimConfig(p)
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 2)
	require.Len(t, nodes, 2)
	assert.Equal(t, state.Addr{2, 0}, nodes[1].Id)
	assert.Equal(t, state.MaxNeighbours, nodes[1].MaxNeighbours)
}

func TestNewLoggerWritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "node.log")
	log, err := NewLogger("1.0", slog.LevelInfo, p)
	require.NoError(t, err)
	log.Info("hello world")

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello world")
	assert.Contains(t, string(b), "node=1.0")
}

type chanSink struct {
	evicted chan state.Addr
}

func (c *chanSink) Table(node state.Addr, rows []state.Neighbour) {}

func (c *chanSink) Evicted(node state.Addr, neigh state.Addr) {
	select {
	case c.evicted <- neigh:
	default:
	}
}

func TestTraceStreamsTableEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &mock.Transport{}
	events := make(chan any, 64)

	errs := make(chan error, 1)
	go func() {
		errs <- Start(ctx, fastNode(), Options{
			Transport: tr,
			Log:       discardLogger(),
			Ready: func(s *state.State) {
				Get[*Trace](s).Register(events)
				tr.Deliver(state.Addr{2, 0}, -40)
			},
		})
	}()

	var ev TraceEvent
	require.Eventually(t, func() bool {
		select {
		case e := <-events:
			ev = e.(TraceEvent)
			return ev.Kind == TraceTable && len(ev.Rows) == 1
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, state.Addr{1, 0}, ev.Node)
	assert.Equal(t, state.Addr{2, 0}, ev.Rows[0].Addr)

	cancel()
	require.NoError(t, <-errs)
}
