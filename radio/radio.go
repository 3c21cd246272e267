package radio

import (
	"sync"

	"github.com/encodeous/beacon/perf"
	"github.com/encodeous/beacon/state"
)

// Radio is a transport attached to a simulated Medium.
// Received frames are handed to the receive callback from a dedicated goroutine.
type Radio struct {
	medium *Medium
	addr   state.Addr
	pos    Position // guarded by medium.mu

	mu     sync.Mutex
	cb     func(from state.Addr, rssi int8)
	closed bool
	inbox  chan frame
	done   chan struct{}
}

func newRadio(m *Medium, addr state.Addr, pos Position) *Radio {
	r := &Radio{
		medium: m,
		addr:   addr,
		pos:    pos,
		inbox:  make(chan frame, InboxSize),
		done:   make(chan struct{}),
	}
	go r.deliver()
	return r
}

func (r *Radio) Addr() state.Addr {
	return r.addr
}

func (r *Radio) deliver() {
	defer close(r.done)
	for f := range r.inbox {
		r.mu.Lock()
		cb := r.cb
		r.mu.Unlock()
		if cb != nil {
			cb(f.from, f.rssi)
		}
	}
}

// enqueue is called with the medium lock held
func (r *Radio) enqueue(f frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.inbox <- f:
	default:
		perf.FramesLost.Add(1)
	}
}

// SendBroadcast puts one frame on the medium. The payload content is not interpreted.
func (r *Radio) SendBroadcast(payload []byte) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	r.medium.broadcast(r)
	return nil
}

func (r *Radio) OnReceive(cb func(from state.Addr, rssi int8)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cb = cb
}

// Close detaches the radio from the medium and waits for pending deliveries to finish
func (r *Radio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.inbox)
	r.mu.Unlock()
	r.medium.detach(r)
	<-r.done
	return nil
}
