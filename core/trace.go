package core

import (
	"github.com/dustin/go-broadcast"
	"github.com/encodeous/beacon/state"
)

type TraceKind int

const (
	TraceTable TraceKind = iota
	TraceEvicted
)

type TraceEvent struct {
	Kind  TraceKind
	Node  state.Addr
	Rows  []state.Neighbour // TraceTable
	Neigh state.Addr        // TraceEvicted
}

// Trace fans table events out to every registered listener.
// A slow listener loses events instead of stalling the main loop.
type Trace struct {
	broadcast.Broadcaster
}

func (n *Trace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (n *Trace) Cleanup(s *state.State) error {
	return n.Broadcaster.Close()
}

func (n *Trace) Table(node state.Addr, rows []state.Neighbour) {
	n.TrySubmit(TraceEvent{Kind: TraceTable, Node: node, Rows: rows})
}

func (n *Trace) Evicted(node state.Addr, neigh state.Addr) {
	n.TrySubmit(TraceEvent{Kind: TraceEvicted, Node: node, Neigh: neigh})
}

// multiSink forwards to every sink in order
type multiSink []TableSink

func (m multiSink) Table(node state.Addr, rows []state.Neighbour) {
	for _, s := range m {
		s.Table(node, rows)
	}
}

func (m multiSink) Evicted(node state.Addr, neigh state.Addr) {
	for _, s := range m {
		s.Evicted(node, neigh)
	}
}
