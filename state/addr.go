package state

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// AddrSize is the width of a link address in bytes
const AddrSize = 2

var ErrInvalidAddr = errors.New("invalid link address")

// Addr is a fixed-width link-layer node address, written as "a.b"
type Addr [AddrSize]byte

func ParseAddr(s string) (Addr, error) {
	var a Addr
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != AddrSize {
		return a, fmt.Errorf("%w: %q must have %d dot-separated octets", ErrInvalidAddr, s, AddrSize)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return a, fmt.Errorf("%w: %q: %w", ErrInvalidAddr, s, err)
		}
		a[i] = byte(v)
	}
	return a, nil
}

func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddrFromIP derives a link address from the low-order bytes of an IP address
func AddrFromIP(ip netip.Addr) Addr {
	var a Addr
	b := ip.Unmap().AsSlice()
	if len(b) < AddrSize {
		return a
	}
	copy(a[:], b[len(b)-AddrSize:])
	return a
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d", a[0], a[1])
}

func (a Addr) IsZero() bool {
	return a == Addr{}
}

func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Addr) UnmarshalText(text []byte) error {
	v, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
