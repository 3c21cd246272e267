package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

type NyModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// Timed is implemented by modules that must be woken by the main loop at a deadline
type Timed interface {
	NyModule
	// Deadline returns the next instant the module wants to be woken at
	Deadline() time.Time
	// Wake runs every timer that has expired
	Wake(s *State) error
}

// Transport is the broadcast medium beacons travel over
type Transport interface {
	// SendBroadcast transmits payload to every node in range
	SendBroadcast(payload []byte) error
	// OnReceive registers the callback invoked for every beacon heard, from any goroutine
	OnReceive(cb func(from Addr, rssi int8))
	Close() error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules    map[string]NyModule
	Neighbours *NeighbourTable
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	NodeCfg
	Context   context.Context
	Cancel    context.CancelCauseFunc
	Log       *slog.Logger
	Clock     clock.Clock
	Transport Transport
	Started   atomic.Bool
	Stopping  atomic.Bool
}
