//go:build linux || darwin || freebsd || netbsd || openbsd

package icmp

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ICMPv4ProtocolNumber is the IANA protocol number for ICMP.
const ICMPv4ProtocolNumber = unix.IPPROTO_ICMP

const recvBufferSize = 1500

// Socket is a raw IPv4 ICMP endpoint. Datagrams read from it include the IP
// header. A Socket owns its descriptor; Close releases it exactly once.
type Socket struct {
	mu        sync.Mutex
	fd        int
	closed    bool
	closeOnce sync.Once
	closeErr  error
	buf       []byte
}

// NewSocket opens a raw ICMP socket. It fails with an error wrapping
// ErrPermission when the process lacks the privilege to do so.
func NewSocket() (*Socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, ICMPv4ProtocolNumber)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("%w: %w", ErrPermission, err)
		}
		return nil, fmt.Errorf("create raw ICMP socket: %w", err)
	}
	unix.CloseOnExec(fd)

	return &Socket{
		fd:  fd,
		buf: make([]byte, recvBufferSize),
	}, nil
}

// Send writes packet to dst. The port is meaningless for ICMP.
func (s *Socket) Send(packet []byte, dst netip.Addr) error {
	if !dst.Is4() {
		return fmt.Errorf("send ICMP: %s is not an IPv4 address", dst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	sa := &unix.SockaddrInet4{Port: 1, Addr: dst.As4()}
	if err := unix.Sendto(s.fd, packet, 0, sa); err != nil {
		return fmt.Errorf("send ICMP: %w", err)
	}
	return nil
}

// Receive waits up to budget for one datagram and returns it along with its
// source address. It returns ErrTimeout when nothing arrives in time. No
// filtering is done; the returned slice is valid until the next Receive.
func (s *Socket) Receive(budget time.Duration) ([]byte, netip.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, netip.Addr{}, ErrClosed
	}

	deadline := time.Now().Add(budget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, netip.Addr{}, ErrTimeout
		}

		fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeout(remaining))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, netip.Addr{}, fmt.Errorf("poll ICMP socket: %w", err)
		}
		if n == 0 {
			return nil, netip.Addr{}, ErrTimeout
		}
		break
	}

	n, from, err := unix.Recvfrom(s.fd, s.buf, 0)
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("receive ICMP: %w", err)
	}

	var src netip.Addr
	if sa, ok := from.(*unix.SockaddrInet4); ok {
		src = netip.AddrFrom4(sa.Addr)
	}
	return s.buf[:n], src, nil
}

// Close releases the socket descriptor. It is safe to call more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.closeErr = unix.Close(s.fd)
	})
	return s.closeErr
}

// pollTimeout converts d to poll(2) milliseconds, rounding up so a short
// remaining budget does not turn into a zero (non-blocking) poll.
func pollTimeout(d time.Duration) int {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms < 1 {
		ms = 1
	}
	return int(ms)
}
