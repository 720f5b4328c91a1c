package domain

import "errors"

// Domain errors represent error conditions in the hevsup domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("hevsup: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("hevsup: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("hevsup: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("hevsup: invalid configuration")

	// ErrPayloadTooLarge is returned when a payload exceeds the frame capacity.
	ErrPayloadTooLarge = errors.New("hevsup: payload exceeds frame capacity")

	// ErrBadPayload is returned when a payload does not match its expected layout.
	ErrBadPayload = errors.New("hevsup: malformed payload")

	// ErrOutOfOrderTelemetry is returned when a frame's sequence number falls
	// outside the acceptance window. The frame is dropped, never applied.
	ErrOutOfOrderTelemetry = errors.New("hevsup: out-of-order telemetry")

	// ErrDuplicateTelemetry is returned when a frame repeats the last applied
	// sequence number.
	ErrDuplicateTelemetry = errors.New("hevsup: duplicate telemetry")

	// ErrImplausibleReading is returned when a checksum-valid frame carries a
	// reading outside physically plausible bounds. This is a soft reject:
	// state is not updated, but the frame is not a protocol error.
	ErrImplausibleReading = errors.New("hevsup: reading outside plausible range")

	// ErrLinkDown is returned when a command is dispatched while the link is down.
	ErrLinkDown = errors.New("hevsup: link down")

	// ErrVectorDimension is returned when control vector dimensions disagree.
	ErrVectorDimension = errors.New("hevsup: control vector dimension mismatch")

	// ErrRecorderClosed is returned when Record() is called after Close().
	ErrRecorderClosed = errors.New("hevsup: recorder closed")

	// ErrTransportClosed is returned by transports after Close().
	ErrTransportClosed = errors.New("hevsup: transport closed")
)
