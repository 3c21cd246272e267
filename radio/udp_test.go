package radio

import (
	"net"
	"net/netip"
	"testing"

	"github.com/encodeous/beacon/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

func newUDP(t *testing.T, cfg state.UDPCfg) *UDPTransport {
	t.Helper()
	if !cfg.Bind.IsValid() {
		cfg.Bind = loopback
	}
	u, err := NewUDPTransport(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = u.Close()
	})
	return u
}

func TestUDPTransportDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := newUDP(t, state.UDPCfg{RSSI: -60})
	a := newUDP(t, state.UDPCfg{Broadcast: b.LocalAddr()})
	bRx := make(chan rx, 4)
	b.OnReceive(func(from state.Addr, rssi int8) {
		bRx <- rx{from, rssi}
	})

	require.NoError(t, a.SendBroadcast(state.BeaconPayload))
	f := expectFrame(t, bRx)
	assert.Equal(t, state.Addr{0, 1}, f.from)
	assert.Equal(t, int8(-60), f.rssi)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestUDPTransportOverridesAndFiltering(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := newUDP(t, state.UDPCfg{
		RSSI:      -60,
		Overrides: []state.RSSIOverride{{Addr: state.Addr{0, 1}, RSSI: -33}},
	})
	bRx := make(chan rx, 4)
	b.OnReceive(func(from state.Addr, rssi int8) {
		bRx <- rx{from, rssi}
	})

	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(b.LocalAddr()))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not a beacon"))
	require.NoError(t, err)
	expectSilence(t, bRx)

	_, err = conn.Write(state.BeaconPayload)
	require.NoError(t, err)
	assert.Equal(t, int8(-33), expectFrame(t, bRx).rssi)

	require.NoError(t, b.Close())
}

func TestUDPTransportIgnoresOwnBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)
	self, err := NewUDPTransport(state.UDPCfg{Bind: loopback}, nil)
	require.NoError(t, err)
	defer self.Close()
	// loop the transport back onto itself
	self.cfg.Broadcast = self.LocalAddr()

	rxc := make(chan rx, 4)
	self.OnReceive(func(from state.Addr, rssi int8) {
		rxc <- rx{from, rssi}
	})
	require.NoError(t, self.SendBroadcast(state.BeaconPayload))
	expectSilence(t, rxc)

	require.NoError(t, self.Close())
}
