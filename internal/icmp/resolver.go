package icmp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Resolver turns a hostname or literal address into an IPv4 address.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (netip.Addr, error)
}

// NetResolver resolves through a net.Resolver. A nil Resolver means
// net.DefaultResolver.
type NetResolver struct {
	Resolver *net.Resolver
}

// LookupIPv4 returns the first IPv4 address for host. Literal IPv4
// addresses are returned without a lookup. Failures wrap ErrResolution.
func (r NetResolver) LookupIPv4(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%w: %s is not an IPv4 address", ErrResolution, host)
		}
		return addr, nil
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}

	addrs, err := res.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrResolution, host, err)
	}
	for _, addr := range addrs {
		if addr = addr.Unmap(); addr.Is4() {
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s has no IPv4 address", ErrResolution, host)
}
