package radio

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/encodeous/beacon/perf"
	"github.com/encodeous/beacon/state"
)

var ErrClosed = errors.New("radio closed")

// InboxSize is the number of frames a radio buffers before it starts losing them
var InboxSize = 64

type Position struct {
	X, Y float64
}

func (p Position) Distance(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Medium is a shared broadcast channel. A frame reaches every attached radio whose received
// signal, given by a log-distance path loss model with gaussian shadowing, is above the
// sensitivity threshold.
type Medium struct {
	mu     sync.Mutex
	cfg    state.MediumCfg
	rng    *rand.Rand
	radios []*Radio
}

func NewMedium(cfg state.MediumCfg, seed uint64) *Medium {
	state.ExpandMediumConfig(&cfg)
	return &Medium{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Attach connects a new radio with the given address at pos
func (m *Medium) Attach(addr state.Addr, pos Position) (*Radio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.radios, func(r *Radio) bool { return r.addr == addr }) {
		return nil, fmt.Errorf("address %s is already attached", addr)
	}
	r := newRadio(m, addr, pos)
	m.radios = append(m.radios, r)
	return r, nil
}

func (m *Medium) detach(r *Radio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.radios = slices.DeleteFunc(m.radios, func(x *Radio) bool { return x == r })
}

// Move relocates an attached radio
func (m *Medium) Move(addr state.Addr, pos Position) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.radios {
		if r.addr == addr {
			r.pos = pos
			return true
		}
	}
	return false
}

// MeanRSSI is the expected signal strength over distance d, without shadowing
func (m *Medium) MeanRSSI(d float64) float64 {
	d = max(d, 1)
	return m.cfg.TxPower - (m.cfg.RefLoss + 10*m.cfg.PathLossExponent*math.Log10(d))
}

// Range is the distance at which the mean signal falls to the sensitivity threshold
func (m *Medium) Range() float64 {
	return math.Pow(10, (m.cfg.TxPower-m.cfg.RefLoss-m.cfg.Sensitivity)/(10*m.cfg.PathLossExponent))
}

func clampRSSI(v float64) int8 {
	return int8(min(max(math.Round(v), math.MinInt8), math.MaxInt8))
}

type frame struct {
	from state.Addr
	rssi int8
}

func (m *Medium) broadcast(src *Radio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dst := range m.radios {
		if dst == src {
			continue
		}
		rssi := m.MeanRSSI(src.pos.Distance(dst.pos)) + m.rng.NormFloat64()*m.cfg.NoiseSigma
		if rssi < m.cfg.Sensitivity {
			continue
		}
		if m.cfg.LossProbability > 0 && m.rng.Float64() < m.cfg.LossProbability {
			perf.FramesLost.Add(1)
			continue
		}
		dst.enqueue(frame{from: src.addr, rssi: clampRSSI(rssi)})
	}
}
