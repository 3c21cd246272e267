package core

import (
	"time"

	"github.com/encodeous/beacon/perf"
	"github.com/encodeous/beacon/state"
	"github.com/jellydator/ttlcache/v3"
)

type Tick int

const (
	BeaconTick Tick = iota
	PruneTick
)

func (t Tick) String() string {
	switch t {
	case BeaconTick:
		return "beacon"
	case PruneTick:
		return "prune"
	}
	return "unknown"
}

// Beacon broadcasts a beacon every BeaconInterval, feeds received beacons into the neighbour
// table and ages the table every PruneInterval.
type Beacon struct {
	Sink TableSink

	beacon      *RepeatingTimer
	prune       *RepeatingTimer
	dropNotices *ttlcache.Cache[state.Addr, int8]
}

func (b *Beacon) Init(s *state.State) error {
	if b.Sink == nil {
		b.Sink = &LogSink{Log: s.Log}
	}
	b.dropNotices = ttlcache.New[state.Addr, int8](
		ttlcache.WithTTL[state.Addr, int8](state.DropNoticeTTL),
		ttlcache.WithDisableTouchOnHit[state.Addr, int8](),
	)

	b.beacon = NewRepeatingTimer(s.Clock)
	b.prune = NewRepeatingTimer(s.Clock)
	b.beacon.Set(s.BeaconInterval)
	b.prune.Set(s.PruneInterval)

	s.Transport.OnReceive(func(from state.Addr, rssi int8) {
		s.Dispatch(func(s *state.State) error {
			b.OnBeaconReceived(s, from, rssi)
			return nil
		})
	})
	s.Log.Debug("beacon started", "interval", s.BeaconInterval, "prune", s.PruneInterval, "capacity", s.Neighbours.Cap())
	return nil
}

func (b *Beacon) Cleanup(s *state.State) error {
	b.dropNotices.DeleteAll()
	return nil
}

func (b *Beacon) Deadline() time.Time {
	d := b.beacon.Deadline()
	if p := b.prune.Deadline(); p.Before(d) {
		d = p
	}
	return d
}

// Wake services every expiry that is due, oldest first. A timer that fell several periods
// behind fires once per missed period.
func (b *Beacon) Wake(s *state.State) error {
	for {
		switch {
		case b.beacon.Expired() && !b.prune.Deadline().Before(b.beacon.Deadline()):
			b.OnTick(s, BeaconTick)
		case b.prune.Expired():
			b.OnTick(s, PruneTick)
		default:
			return nil
		}
	}
}

// OnTick runs the work of one timer period and rearms the timer
func (b *Beacon) OnTick(s *state.State, which Tick) {
	switch which {
	case BeaconTick:
		err := s.Transport.SendBroadcast(state.BeaconPayload)
		if err != nil {
			// beacons are best effort, the cadence continues
			perf.BeaconSendErrors.Add(1)
			s.Log.Warn("failed to send beacon", "error", err)
		} else {
			perf.BeaconsSent.Add(1)
			if state.DBG_log_beacon {
				s.Log.Debug("beacon sent")
			}
		}
		s.Neighbours.OnBeaconSent()
		b.Sink.Table(s.Id, s.Neighbours.Snapshot())
		b.beacon.Reset()
	case PruneTick:
		for _, addr := range s.Neighbours.Prune() {
			perf.NeighboursEvicted.Add(1)
			b.Sink.Evicted(s.Id, addr)
		}
		perf.NeighbourTableSize.Add(float64(s.Neighbours.Len()))
		b.prune.Reset()
	}
}

// OnBeaconReceived records a beacon heard from another node and re-ranks the table
func (b *Beacon) OnBeaconReceived(s *state.State, from state.Addr, rssi int8) {
	if from == s.Id {
		return
	}
	perf.BeaconsReceived.Add(1)
	if state.DBG_log_beacon {
		s.Log.Debug("beacon from", "node", from.String(), "rssi", rssi)
	}

	switch s.Neighbours.Observe(from, rssi) {
	case state.Inserted:
		s.Log.Info("new neighbour", "node", from.String(), "rssi", rssi)
	case state.Dropped:
		perf.CandidatesDropped.Add(1)
		if !b.dropNotices.Has(from) {
			b.dropNotices.Set(from, rssi, ttlcache.DefaultTTL)
			s.Log.Info("neighbour table full, ignoring node", "node", from.String(), "rssi", rssi)
		}
	}
	for _, addr := range s.Neighbours.Rerank() {
		perf.NeighboursEvicted.Add(1)
		b.Sink.Evicted(s.Id, addr)
	}
}

// DroppedRecently reports whether a beacon from addr was refused within the last DropNoticeTTL
func (b *Beacon) DroppedRecently(addr state.Addr) bool {
	return b.dropNotices.Has(addr)
}
