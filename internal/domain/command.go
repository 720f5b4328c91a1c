package domain

// CommandFrame is one arbitrated command destined for the motor controller.
// Immutable once built; retransmits reuse the same sequence number and an
// identical vector.
type CommandFrame struct {
	// Seq is the session-assigned command sequence number
	Seq uint16

	// Vector is the arbitrated control vector
	Vector ControlVector

	// Checksum is the CRC-32 computed at encode time
	Checksum uint32
}
