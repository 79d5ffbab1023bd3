//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package icmp

import (
	"net/netip"
	"time"
)

// ICMPv4ProtocolNumber is the IANA protocol number for ICMP.
const ICMPv4ProtocolNumber = 1

// Socket is unavailable on this platform.
type Socket struct{}

// NewSocket always fails with ErrUnsupported on this platform.
func NewSocket() (*Socket, error) {
	return nil, ErrUnsupported
}

// Send always fails with ErrUnsupported on this platform.
func (s *Socket) Send(packet []byte, dst netip.Addr) error { return ErrUnsupported }

// Receive always fails with ErrUnsupported on this platform.
func (s *Socket) Receive(budget time.Duration) ([]byte, netip.Addr, error) {
	return nil, netip.Addr{}, ErrUnsupported
}

// Close is a no-op on this platform.
func (s *Socket) Close() error { return nil }
