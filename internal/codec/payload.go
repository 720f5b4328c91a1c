package codec

import (
	"encoding/binary"
	"math"

	"github.com/h2labs/hevsup/internal/domain"
)

// telemetryPayloadLen is ack(2) + timestamp(4) + 8 float32 readings(32) +
// 4 uint16 motor speeds(8).
const telemetryPayloadLen = 46

// PackTelemetry serializes a telemetry payload.
func PackTelemetry(ackSeq uint16, timestampMs uint32, r domain.Readings) []byte {
	p := make([]byte, telemetryPayloadLen)
	binary.LittleEndian.PutUint16(p[0:2], ackSeq)
	binary.LittleEndian.PutUint32(p[2:6], timestampMs)

	off := 6
	for _, v := range []float64{
		r.SOC, r.PackVoltage, r.PackCurrent, r.PackTemp,
		r.H2Level, r.FuelCellPower, r.LoadPower, r.DriverDemand,
	} {
		binary.LittleEndian.PutUint32(p[off:off+4], math.Float32bits(float32(v)))
		off += 4
	}
	for _, rpm := range r.MotorRPM {
		binary.LittleEndian.PutUint16(p[off:off+2], rpm)
		off += 2
	}
	return p
}

// UnpackTelemetry deserializes a telemetry payload.
func UnpackTelemetry(p []byte) (ackSeq uint16, timestampMs uint32, r domain.Readings, err error) {
	if len(p) != telemetryPayloadLen {
		return 0, 0, domain.Readings{}, domain.ErrBadPayload
	}
	ackSeq = binary.LittleEndian.Uint16(p[0:2])
	timestampMs = binary.LittleEndian.Uint32(p[2:6])

	off := 6
	fields := []*float64{
		&r.SOC, &r.PackVoltage, &r.PackCurrent, &r.PackTemp,
		&r.H2Level, &r.FuelCellPower, &r.LoadPower, &r.DriverDemand,
	}
	for _, f := range fields {
		*f = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[off : off+4])))
		off += 4
	}
	for i := range r.MotorRPM {
		r.MotorRPM[i] = binary.LittleEndian.Uint16(p[off : off+2])
		off += 2
	}
	return ackSeq, timestampMs, r, nil
}

// PackCommand serializes a control vector, one float32 per axis.
func PackCommand(v domain.ControlVector) ([]byte, error) {
	if len(v) == 0 {
		return nil, domain.ErrBadPayload
	}
	if len(v)*4 > MaxPayload {
		return nil, domain.ErrPayloadTooLarge
	}
	p := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(p[i*4:i*4+4], math.Float32bits(float32(x)))
	}
	return p, nil
}

// UnpackCommand deserializes a control vector. Axis count is implied by the
// payload length.
func UnpackCommand(p []byte) (domain.ControlVector, error) {
	if len(p) == 0 || len(p)%4 != 0 {
		return nil, domain.ErrBadPayload
	}
	v := make(domain.ControlVector, len(p)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[i*4 : i*4+4])))
	}
	return v, nil
}
