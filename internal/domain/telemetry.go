package domain

// NoAck is the sentinel acknowledgment value carried by telemetry frames that
// do not acknowledge any command.
const NoAck uint16 = 0xFFFF

// MotorCount is the number of wheel motors reported in each telemetry frame.
const MotorCount = 4

// Readings is the ordered set of sensor values carried by one telemetry frame.
type Readings struct {
	// SOC is the battery state of charge, 0..1
	SOC float64

	// PackVoltage is the battery pack voltage in volts
	PackVoltage float64

	// PackCurrent is the battery pack current in amps; positive is discharge
	PackCurrent float64

	// PackTemp is the battery pack temperature in degrees Celsius
	PackTemp float64

	// H2Level is the remaining hydrogen fraction, 0..1
	H2Level float64

	// FuelCellPower is the fuel-cell electrical output in watts
	FuelCellPower float64

	// LoadPower is the demanded traction load in watts
	LoadPower float64

	// DriverDemand is the normalized operator input, -1..1
	DriverDemand float64

	// MotorRPM is the per-wheel motor speed (FL, FR, RL, RR)
	MotorRPM [MotorCount]uint16
}

// TelemetryFrame is one validated telemetry message from the motor controller.
// A frame is immutable once parsed; the codec only produces frames whose
// checksum has already been verified.
type TelemetryFrame struct {
	// Seq is the controller's frame sequence number (wraps at 65535)
	Seq uint16

	// AckSeq is the sequence number of the last command the controller
	// applied, or NoAck if it has not applied any
	AckSeq uint16

	// TimestampMs is the controller's millisecond clock at sampling time
	TimestampMs uint32

	// Readings is the sensor snapshot carried by this frame
	Readings Readings

	// Checksum is the verified CRC-32 from the wire frame
	Checksum uint32
}

// Acknowledges reports whether the frame acknowledges the given command sequence.
func (f TelemetryFrame) Acknowledges(seq uint16) bool {
	return f.AckSeq != NoAck && f.AckSeq == seq
}
