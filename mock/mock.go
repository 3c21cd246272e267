package mock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/beacon/state"
)

var ErrClosed = errors.New("transport closed")

// Transport records every broadcast and lets tests inject received beacons
type Transport struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	cb      func(from state.Addr, rssi int8)
	closed  bool
}

func (t *Transport) SendBroadcast(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, slices.Clone(payload))
	return nil
}

func (t *Transport) OnReceive(cb func(from state.Addr, rssi int8)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Deliver simulates a beacon heard from another node
func (t *Transport) Deliver(from state.Addr, rssi int8) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	if cb != nil {
		cb(from, rssi)
	}
}

// FailSends makes every following broadcast return err, nil restores normal operation
func (t *Transport) FailSends(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sent)
}

func (t *Transport) SentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// NewState builds a node state that is driven directly by the caller instead of a main loop.
// Dispatched functions are queued on the returned channel.
func NewState(cfg state.NodeCfg, clk clock.Clock, tr state.Transport) (*state.State, chan func(*state.State) error) {
	state.ExpandNodeConfig(&cfg)
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, state.DispatchBuffer)
	return &state.State{
		Modules:    make(map[string]state.NyModule),
		Neighbours: state.NewNeighbourTable(cfg.MaxNeighbours, cfg.Liveness),
		Env: &state.Env{
			DispatchChannel: dispatch,
			NodeCfg:         cfg,
			Context:         ctx,
			Cancel:          cancel,
			Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
			Clock:           clk,
			Transport:       tr,
		},
	}, dispatch
}

// Drain runs every queued dispatch on s
func Drain(s *state.State, dispatch chan func(*state.State) error) error {
	for {
		select {
		case fun := <-dispatch:
			if err := fun(s); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
