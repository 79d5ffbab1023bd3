package icmp

import "errors"

var (
	// ErrPermission is returned when the operating system refuses to create
	// a raw ICMP socket for the calling process.
	ErrPermission = errors.New("raw ICMP socket not permitted: must run with elevated privileges")

	// ErrResolution is returned when the destination cannot be resolved to
	// an IPv4 address. No probes are sent.
	ErrResolution = errors.New("cannot resolve destination")

	// ErrTruncatedPacket is returned by DecodeEchoReply when a datagram is
	// too short to hold an IP header plus an ICMP header.
	ErrTruncatedPacket = errors.New("truncated ICMP packet")

	// ErrTimeout is returned by Transport.Receive when no datagram arrived
	// within the budget.
	ErrTimeout = errors.New("timeout waiting for echo reply")

	// ErrClosed is returned by operations on a closed transport or session.
	ErrClosed = errors.New("ICMP socket closed")

	// ErrUnsupported is returned on platforms without raw socket support.
	ErrUnsupported = errors.New("raw ICMP sockets not supported on this platform")
)
