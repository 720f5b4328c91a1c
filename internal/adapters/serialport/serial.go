// Package serialport provides a ports.Transport backed by a serial line to
// the motor controller.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

const (
	// DefaultBaud is the controller's firmware default line rate.
	DefaultBaud = 115200

	// DefaultReadTimeout bounds a single poll so TryReceive never stalls
	// the control loop.
	DefaultReadTimeout = 5 * time.Millisecond
)

// Config holds serial transport settings.
type Config struct {
	// Port is the device path, e.g. /dev/ttyUSB0.
	Port string

	// Baud is the line rate. Zero selects DefaultBaud.
	Baud int

	// ReadTimeout bounds each poll. Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Transport implements ports.Transport over a serial port.
type Transport struct {
	mu     sync.Mutex
	port   *serial.Port
	logger ports.Logger
	closed bool
}

// Open opens the serial port and returns a ready transport.
func Open(cfg Config, logger ports.Logger) (*Transport, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port name is required: %w", domain.ErrInvalidConfig)
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	logger.Info("serial port opened",
		ports.String("port", cfg.Port),
		ports.Int("baud", baud))

	return &Transport{port: port, logger: logger}, nil
}

// Send writes the buffer to the serial line.
func (t *Transport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	if _, err := t.port.Write(p); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// TryReceive reads up to max buffered bytes. The port's read timeout bounds
// the call; an expired timeout with nothing buffered yields (nil, nil).
func (t *Transport) TryReceive(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, domain.ErrTransportClosed
	}
	if max <= 0 {
		return nil, nil
	}

	buf := make([]byte, max)
	n, err := t.port.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, fmt.Errorf("serial read: %w", err)
}

// Close closes the serial port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportClosed
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}
