package ports

// Transport exchanges opaque byte buffers with the motor controller over a
// serial or datagram medium. Implementations carry no framing knowledge.
type Transport interface {
	// Send writes the buffer to the medium.
	// Returns nil on success, an error on I/O failure.
	Send(p []byte) error

	// TryReceive returns up to max available bytes without blocking past a
	// short poll bound. An empty slice with a nil error means no data is
	// currently available; the caller polls again on a later tick.
	TryReceive(max int) ([]byte, error)

	// Close releases the underlying medium. Subsequent calls return
	// domain.ErrTransportClosed.
	Close() error
}
