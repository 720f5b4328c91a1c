// Package link owns the logical connection to the motor controller: command
// sequence numbering, retransmission of the single in-flight command, and the
// UP/DEGRADED/DOWN link classification.
package link

import (
	"time"

	"github.com/h2labs/hevsup/internal/codec"
	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Default session timing values.
const (
	DefaultAckWindow   = 250 * time.Millisecond
	DefaultQuietPeriod = 500 * time.Millisecond
	DefaultRetryLimit  = 5
)

// Config holds the session's timing and retry parameters.
type Config struct {
	// AckWindow is how long a dispatched command may go unacknowledged
	// before the first miss is declared.
	AckWindow time.Duration

	// BackoffInitial and BackoffMax bound the retransmit backoff schedule
	// applied after the first miss.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// RetryLimit is the number of consecutive missed acknowledgment windows
	// that takes the link down.
	RetryLimit int

	// QuietPeriod is the silence required after going down before a valid
	// frame completes the recovery handshake.
	QuietPeriod time.Duration
}

// Events reports what a session call observed, for the supervisory loop to
// act on within the same tick.
type Events struct {
	// Handshake means the link recovered from DOWN; telemetry sequence
	// tracking must be reset by the caller.
	Handshake bool

	// Acked means the in-flight command was acknowledged.
	Acked bool
}

// pending is the single in-flight command with its exact wire bytes, so
// retransmits are byte-identical.
type pending struct {
	frame domain.CommandFrame
	raw   []byte
}

// Session manages reliable-enough command delivery over the transport.
//
// A session starts DOWN and comes up through the telemetry handshake. It is
// owned by the supervisory loop and is not safe for concurrent use.
type Session struct {
	cfg       Config
	transport ports.Transport
	logger    ports.Logger

	state     domain.LinkState
	downSince time.Time

	nextSeq        uint16
	inflight       *pending
	awaiting       bool
	windowDeadline time.Time
	consecMisses   int
	backoff        *backoff

	lastAcked uint16
	hasAcked  bool

	retransmits uint64
}

// NewSession creates a session in the DOWN state. The quiet period for the
// first handshake is measured from startedAt.
func NewSession(cfg Config, transport ports.Transport, logger ports.Logger, startedAt time.Time) *Session {
	if cfg.AckWindow <= 0 {
		cfg.AckWindow = DefaultAckWindow
	}
	if cfg.RetryLimit < 1 {
		cfg.RetryLimit = DefaultRetryLimit
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	return &Session{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		state:     domain.LinkDown,
		downSince: startedAt,
		nextSeq:   1,
		backoff:   newBackoff(cfg.BackoffInitial, cfg.BackoffMax),
	}
}

// Status returns a copy of the session's observable state.
func (s *Session) Status() domain.LinkStatus {
	return domain.LinkStatus{
		State:              s.state,
		LastAckedSeq:       s.lastAcked,
		HasAcked:           s.hasAcked,
		OutstandingRetries: s.consecMisses,
	}
}

// HasInFlight reports whether a command is awaiting acknowledgment.
func (s *Session) HasInFlight() bool {
	return s.inflight != nil
}

// Retransmits returns the total retransmitted command count.
func (s *Session) Retransmits() uint64 {
	return s.retransmits
}

// HandleTelemetry processes one checksum-valid telemetry frame: it completes
// the DOWN recovery handshake when the quiet period has passed, and clears
// the in-flight slot on a matching acknowledgment.
func (s *Session) HandleTelemetry(frame domain.TelemetryFrame, now time.Time) Events {
	var ev Events

	if s.state == domain.LinkDown {
		if now.Sub(s.downSince) < s.cfg.QuietPeriod {
			// Valid data during the quiet period is usable upstream but
			// does not complete the handshake.
			return ev
		}
		s.consecMisses = 0
		s.backoff.Reset()
		s.setState(domain.LinkUp, "handshake", now)
		ev.Handshake = true
	}

	if s.awaiting && s.inflight != nil && frame.Acknowledges(s.inflight.frame.Seq) {
		clean := s.consecMisses == 0
		s.lastAcked = s.inflight.frame.Seq
		s.hasAcked = true
		s.inflight = nil
		s.awaiting = false
		s.consecMisses = 0
		s.backoff.Reset()
		ev.Acked = true

		if s.state == domain.LinkDegraded && clean {
			s.setState(domain.LinkUp, "clean round trip", now)
		}
	}

	return ev
}

// Dispatch assigns the next sequence number to the vector, transmits it, and
// makes it the in-flight command. A fresh dispatch while an older command is
// unacknowledged supersedes it without resetting the miss clock: the
// acknowledgment window keeps running against the oldest unanswered send.
func (s *Session) Dispatch(v domain.ControlVector, now time.Time) (uint16, error) {
	if s.state == domain.LinkDown {
		return 0, domain.ErrLinkDown
	}

	seq := s.allocSeq()
	raw, frame, err := codec.EncodeCommand(seq, v)
	if err != nil {
		return 0, err
	}

	if err := s.transport.Send(raw); err != nil {
		// The miss discipline covers a lost first transmission; the command
		// stays pending for retransmission.
		s.logger.Warn("command send failed",
			ports.Uint64("seq", uint64(seq)),
			ports.Err(err),
		)
	}

	superseded := s.awaiting && s.inflight != nil
	s.inflight = &pending{frame: frame, raw: raw}
	if !s.awaiting {
		s.awaiting = true
		s.windowDeadline = now.Add(s.cfg.AckWindow)
		s.backoff.Reset()
	}
	if superseded {
		s.logger.Debug("superseding unacknowledged command",
			ports.Uint64("seq", uint64(seq)),
			ports.Int("misses", s.consecMisses),
		)
	}
	return seq, nil
}

// Tick advances the retransmit schedule. On a missed acknowledgment window it
// degrades the link, retransmits the in-flight command byte-identically, and
// after RetryLimit consecutive misses takes the link down and discards the
// stale command.
func (s *Session) Tick(now time.Time) Events {
	var ev Events

	if !s.awaiting || s.state == domain.LinkDown {
		return ev
	}
	if now.Before(s.windowDeadline) {
		return ev
	}

	s.consecMisses++
	if s.state == domain.LinkUp {
		s.setState(domain.LinkDegraded, "missed ack window", now)
	}

	if s.consecMisses >= s.cfg.RetryLimit {
		// The decision in flight is stale by now; the loop must produce a
		// fresh one after recovery.
		s.inflight = nil
		s.awaiting = false
		s.consecMisses = 0
		s.backoff.Reset()
		s.setState(domain.LinkDown, "retry limit exceeded", now)
		return ev
	}

	if s.inflight != nil {
		if err := s.transport.Send(s.inflight.raw); err != nil {
			s.logger.Warn("retransmit failed",
				ports.Uint64("seq", uint64(s.inflight.frame.Seq)),
				ports.Err(err),
			)
		}
		s.retransmits++
	}
	s.windowDeadline = now.Add(s.backoff.Next())
	return ev
}

// allocSeq returns the next command sequence number, skipping the NoAck
// sentinel so acknowledgments stay unambiguous. Numbers wrap at the wire
// width; uniqueness holds within any acknowledgment horizon.
func (s *Session) allocSeq() uint16 {
	seq := s.nextSeq
	s.nextSeq++
	if s.nextSeq == domain.NoAck {
		s.nextSeq = 0
	}
	return seq
}

func (s *Session) setState(to domain.LinkState, reason string, now time.Time) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	if to == domain.LinkDown {
		s.downSince = now
	}
	s.logger.Info("link transition",
		ports.String("from", from.String()),
		ports.String("to", to.String()),
		ports.String("reason", reason),
	)
}
