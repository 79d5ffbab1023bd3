package icmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/postalsys/picmp/internal/logging"
	"github.com/postalsys/picmp/internal/metrics"
)

// NoReply is the millisecond value reported for a probe without a reply.
const NoReply = -1

// Transport sends encoded echo requests and receives raw IPv4 datagrams.
type Transport interface {
	Send(packet []byte, dst netip.Addr) error
	// Receive returns the first datagram that arrives within budget, or
	// ErrTimeout.
	Receive(budget time.Duration) ([]byte, netip.Addr, error)
	Close() error
}

// Sample is the outcome of one probe.
type Sample struct {
	Seq     uint16
	RTT     time.Duration
	Replied bool
}

// Milliseconds returns the round-trip time rounded to whole milliseconds,
// or NoReply.
func (s Sample) Milliseconds() int {
	if !s.Replied {
		return NoReply
	}
	return int(math.Round(float64(s.RTT) / float64(time.Millisecond)))
}

// Milliseconds maps samples to their millisecond latencies, in order.
func Milliseconds(samples []Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Milliseconds()
	}
	return out
}

// Option configures a Session.
type Option func(*Session)

// WithTransport replaces the raw socket the session would open.
// The session takes ownership and closes it.
func WithTransport(t Transport) Option {
	return func(s *Session) { s.transport = t }
}

// WithResolver sets the destination resolver.
func WithResolver(r Resolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithClock sets the time source used for timestamps, budgets and sleeps.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithIdentifier overrides the ICMP identifier, which defaults to the low
// 16 bits of the process id.
func WithIdentifier(id uint16) Option {
	return func(s *Session) { s.id = id }
}

// Session probes a single destination over one transport. Run calls are
// serialised; a session is meant for one caller at a time.
type Session struct {
	mu sync.Mutex

	dest   string
	id     uint16
	config Config

	transport Transport
	resolver  Resolver
	clock     Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics

	epoch     time.Time
	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// NewSession creates a session for dest. Unless WithTransport is given, a
// raw socket is opened, which fails with ErrPermission for unprivileged
// callers. The caller must Close the session.
func NewSession(dest string, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ICMP config: %w", err)
	}

	s := &Session{
		dest:     dest,
		id:       uint16(os.Getpid() & 0xffff),
		config:   cfg,
		resolver: NetResolver{},
		clock:    SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "icmp")

	if s.transport == nil {
		sock, err := NewSocket()
		if err != nil {
			return nil, err
		}
		s.transport = sock
	}

	s.epoch = s.clock.Now()
	return s, nil
}

// Destination returns the destination as given to NewSession.
func (s *Session) Destination() string {
	return s.dest
}

// Identifier returns the ICMP identifier stamped on every request.
func (s *Session) Identifier() uint16 {
	return s.id
}

// Run sends count probes, waiting interval between them, and returns one
// Sample per probe in send order. The destination is resolved once per
// call. A probe that gets no reply within the configured timeout is
// recorded with Replied unset and does not stop the batch.
//
// ctx is checked before each probe and during the interval sleep; the
// receive wait itself is bounded by the timeout only. On error the samples
// collected so far are returned.
func (s *Session) Run(ctx context.Context, count int, interval time.Duration) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if count < 0 {
		return nil, fmt.Errorf("probe count must not be negative, got %d", count)
	}

	addr, err := s.resolver.LookupIPv4(ctx, s.dest)
	if err != nil {
		if !errors.Is(err, ErrResolution) {
			err = fmt.Errorf("%w: %s: %w", ErrResolution, s.dest, err)
		}
		return nil, err
	}
	s.logger.Debug("destination resolved",
		logging.KeyDestination, s.dest,
		logging.KeyAddress, addr.String(),
		logging.KeyIdentifier, s.id,
		logging.KeyCount, count)

	samples := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}

		seq := s.sequence(i)
		sample, err := s.probe(addr, seq)
		if err != nil {
			return samples, err
		}
		samples = append(samples, sample)

		if i < count-1 && interval > 0 {
			if err := s.sleep(ctx, interval); err != nil {
				return samples, err
			}
		}
	}

	return samples, nil
}

// Close releases the transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}

func (s *Session) sequence(i int) uint16 {
	if s.config.FixedSequence {
		return 1
	}
	return uint16(i + 1)
}

// probe sends one echo request and waits for its reply.
func (s *Session) probe(addr netip.Addr, seq uint16) (Sample, error) {
	sample := Sample{Seq: seq}

	sentAt := s.clock.Now()
	packet := EncodeEchoRequest(s.id, seq, s.seconds(sentAt))
	if err := s.transport.Send(packet, addr); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSendError()
		}
		return sample, err
	}
	if s.metrics != nil {
		s.metrics.RecordProbeSent()
	}

	checkSeq := !s.config.FixedSequence
	remaining := s.config.Timeout
	for {
		start := s.clock.Now()
		datagram, src, err := s.transport.Receive(remaining)
		recvAt := s.clock.Now()

		if errors.Is(err, ErrTimeout) {
			s.noReply(seq)
			return sample, nil
		}
		if err != nil {
			return sample, err
		}

		reply, err := DecodeEchoReply(datagram)
		switch {
		case err != nil:
			s.discard(metrics.ReasonTruncated, seq, src)
		case !reply.Matches(s.id, seq, checkSeq):
			s.discard(metrics.ReasonMismatch, seq, src)
		default:
			sent := s.sendTime(reply, sentAt, recvAt)
			sample.RTT = max(recvAt.Sub(sent), 0)
			sample.Replied = true

			if s.metrics != nil {
				s.metrics.RecordReply(sample.RTT)
			}
			s.logger.Debug("echo reply",
				logging.KeyAddress, src.String(),
				logging.KeySequence, seq,
				logging.KeyRTT, sample.RTT)
			return sample, nil
		}

		remaining -= recvAt.Sub(start)
		if remaining <= 0 {
			s.noReply(seq)
			return sample, nil
		}
	}
}

func (s *Session) noReply(seq uint16) {
	if s.metrics != nil {
		s.metrics.RecordTimeout()
	}
	s.logger.Info("no echo reply",
		logging.KeyDestination, s.dest,
		logging.KeySequence, seq,
		logging.KeyDuration, s.config.Timeout)
}

func (s *Session) discard(reason string, seq uint16, src netip.Addr) {
	if s.metrics != nil {
		s.metrics.RecordDiscard(reason)
	}
	s.logger.Debug("datagram discarded",
		logging.KeyReason, reason,
		logging.KeyAddress, src.String(),
		logging.KeySequence, seq)
}

// sleep waits d on the session clock, returning early with ctx.Err() if ctx
// is cancelled.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.clock.Sleep(d)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// seconds expresses t as seconds since the session epoch, the timestamp
// format carried in echo payloads.
func (s *Session) seconds(t time.Time) float64 {
	return t.Sub(s.epoch).Seconds()
}

// timestampSlack absorbs float64 rounding when an embedded timestamp is
// compared against the local send and receive times.
const timestampSlack = 1e-6

// sendTime returns the send time carried in reply when it lies between
// sentAt and recvAt. A missing, non-finite or out-of-window timestamp falls
// back to sentAt, so the RTT never exceeds the time actually waited.
func (s *Session) sendTime(reply *EchoReply, sentAt, recvAt time.Time) time.Time {
	if !reply.HasTimestamp {
		return sentAt
	}

	ts := reply.Timestamp
	lo := s.seconds(sentAt) - timestampSlack
	hi := s.seconds(recvAt) + timestampSlack
	// NaN fails both comparisons
	if !(ts >= lo && ts <= hi) {
		return sentAt
	}
	return s.epoch.Add(fromSeconds(ts))
}

func fromSeconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

// Ping resolves dest, sends count probes and returns their samples. It is
// a one-shot wrapper around NewSession, Session.Run and Session.Close.
func Ping(ctx context.Context, dest string, count int, interval, timeout time.Duration, opts ...Option) ([]Sample, error) {
	cfg := DefaultConfig()
	cfg.Timeout = timeout

	s, err := NewSession(dest, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Run(ctx, count, interval)
}
