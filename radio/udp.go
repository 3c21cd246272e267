package radio

import (
	"bytes"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/encodeous/beacon/perf"
	"github.com/encodeous/beacon/state"
)

// UDPTransport sends beacons as UDP broadcast datagrams. The sender address is taken from the
// last two bytes of the source IP and the signal strength from the configuration.
type UDPTransport struct {
	cfg   state.UDPCfg
	conn  *net.UDPConn
	log   *slog.Logger
	local map[netip.Addr]struct{}
	port  uint16

	mu   sync.Mutex
	cb   func(from state.Addr, rssi int8)
	once sync.Once
	done chan struct{}
}

func NewUDPTransport(cfg state.UDPCfg, log *slog.Logger) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(cfg.Bind))
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadBuffer(1 << 20)

	if log == nil {
		log = slog.Default()
	}
	u := &UDPTransport{
		cfg:   cfg,
		conn:  conn,
		log:   log,
		local: localAddrs(),
		port:  conn.LocalAddr().(*net.UDPAddr).AddrPort().Port(),
		done:  make(chan struct{}),
	}
	go u.run()
	return u, nil
}

func localAddrs() map[netip.Addr]struct{} {
	res := make(map[netip.Addr]struct{})
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return res
	}
	for _, a := range addrs {
		if pfx, err := netip.ParsePrefix(a.String()); err == nil {
			res[pfx.Addr().Unmap()] = struct{}{}
		}
	}
	return res
}

// LocalAddr is the address the transport is listening on
func (u *UDPTransport) LocalAddr() netip.AddrPort {
	return u.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (u *UDPTransport) isLoopback(src netip.AddrPort) bool {
	if src.Port() != u.port {
		return false
	}
	_, ok := u.local[src.Addr().Unmap()]
	return ok
}

func (u *UDPTransport) run() {
	defer close(u.done)
	buf := make([]byte, 2048)
	for {
		n, src, err := u.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			u.log.Debug("udp read failed", "error", err)
			continue
		}
		if u.isLoopback(src) {
			continue
		}
		if !bytes.Equal(buf[:n], state.BeaconPayload) {
			perf.FramesLost.Add(1)
			continue
		}
		from := state.AddrFromIP(src.Addr())
		u.mu.Lock()
		cb := u.cb
		u.mu.Unlock()
		if cb != nil {
			cb(from, u.cfg.RSSIFor(from))
		}
	}
}

func (u *UDPTransport) SendBroadcast(payload []byte) error {
	_, err := u.conn.WriteToUDPAddrPort(payload, u.cfg.Broadcast)
	return err
}

func (u *UDPTransport) OnReceive(cb func(from state.Addr, rssi int8)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cb = cb
}

func (u *UDPTransport) Close() error {
	var err error
	u.once.Do(func() {
		err = u.conn.Close()
		<-u.done
	})
	return err
}
