// Package udp provides a ports.Transport that exchanges datagrams with the
// motor controller, used on bench setups where the controller is bridged
// onto the network.
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// DefaultReadTimeout bounds a single poll so TryReceive never stalls the
// control loop.
const DefaultReadTimeout = 5 * time.Millisecond

// Config holds datagram transport settings.
type Config struct {
	// Listen is the local address to bind, e.g. ":9000".
	Listen string

	// Peer is the controller's address. Datagrams from any other source
	// are dropped.
	Peer string

	// ReadTimeout bounds each poll. Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Transport implements ports.Transport over UDP.
type Transport struct {
	mu          sync.Mutex
	conn        *net.UDPConn
	peer        *net.UDPAddr
	readTimeout time.Duration
	logger      ports.Logger
	closed      bool
}

// Open binds the local socket and resolves the controller's address.
func Open(cfg Config, logger ports.Logger) (*Transport, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("udp listen address is required: %w", domain.ErrInvalidConfig)
	}
	if cfg.Peer == "" {
		return nil, fmt.Errorf("udp peer address is required: %w", domain.ErrInvalidConfig)
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %s: %w", cfg.Listen, err)
	}
	peer, err := net.ResolveUDPAddr("udp", cfg.Peer)
	if err != nil {
		return nil, fmt.Errorf("resolve peer address %s: %w", cfg.Peer, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp socket %s: %w", cfg.Listen, err)
	}

	logger.Info("udp transport listening",
		ports.String("listen", conn.LocalAddr().String()),
		ports.String("peer", peer.String()))

	return &Transport{
		conn:        conn,
		peer:        peer,
		readTimeout: readTimeout,
		logger:      logger,
	}, nil
}

// Send writes the buffer as a single datagram to the peer.
func (t *Transport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	if _, err := t.conn.WriteToUDP(p, t.peer); err != nil {
		return fmt.Errorf("udp write: %w", err)
	}
	return nil
}

// maxDatagram is the read scratch size; controller frames are far smaller.
const maxDatagram = 2048

// TryReceive drains queued datagrams up to max bytes. One read deadline
// covers the whole call, so it never blocks past the poll bound. Datagrams
// from the wrong source are dropped.
func (t *Transport) TryReceive(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransportClosed
	}
	if max <= 0 {
		return nil, nil
	}

	_ = t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))

	var out []byte
	scratch := make([]byte, maxDatagram)
	for len(out) < max {
		n, from, err := t.conn.ReadFromUDP(scratch)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			return nil, fmt.Errorf("udp read: %w", err)
		}
		if !from.IP.Equal(t.peer.IP) || from.Port != t.peer.Port {
			t.logger.Debug("datagram from unexpected peer dropped",
				ports.String("from", from.String()))
			continue
		}
		if room := max - len(out); n > room {
			// An oversized tail is cut; the codec resynchronizes.
			n = room
		}
		out = append(out, scratch[:n]...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Close closes the socket.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	t.closed = true
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close udp socket: %w", err)
	}
	return nil
}
