// Package codec frames and parses wire messages exchanged with the motor
// controller.
//
// Frame layout, both directions:
//
//	[0]      start marker 0xA5
//	[1]      length: total frame size in bytes, marker through checksum
//	[2:4]    sequence number, little-endian
//	[4:n-4]  payload
//	[n-4:n]  CRC-32 (IEEE), little-endian, over bytes [1:n-4]
//
// Decode never blocks and never consumes partial frames. Corruption is
// reported with a discard count that resynchronizes the caller's window to
// the next start marker candidate.
package codec

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/h2labs/hevsup/internal/domain"
)

const (
	// StartMarker opens every frame.
	StartMarker = 0xA5

	// frameOverhead is marker + length + sequence + checksum.
	frameOverhead = 8

	// MinFrameLen is the smallest legal frame (empty payload).
	MinFrameLen = frameOverhead

	// MaxFrameLen is bounded by the one-byte length field.
	MaxFrameLen = 255

	// MaxPayload is the largest payload a single frame can carry.
	MaxPayload = MaxFrameLen - frameOverhead
)

// DecodeStatus classifies one Decode attempt.
type DecodeStatus int

const (
	// DecodeIncomplete means more bytes must be buffered before retrying.
	DecodeIncomplete DecodeStatus = iota

	// DecodeOk means a frame was parsed; Consumed bytes are spent.
	DecodeOk

	// DecodeCorrupt means the window head is unusable; Discard bytes must be
	// dropped to resynchronize on the next marker candidate.
	DecodeCorrupt
)

// DecodeResult is the outcome of scanning a byte window for one frame.
type DecodeResult struct {
	Status   DecodeStatus
	Frame    domain.TelemetryFrame
	Consumed int
	Discard  int
}

// EncodeCommand frames a control vector under the given sequence number.
// Returns the wire bytes and the completed immutable CommandFrame.
func EncodeCommand(seq uint16, v domain.ControlVector) ([]byte, domain.CommandFrame, error) {
	payload, err := PackCommand(v)
	if err != nil {
		return nil, domain.CommandFrame{}, err
	}
	raw, sum := encodeFrame(seq, payload)
	return raw, domain.CommandFrame{Seq: seq, Vector: v.Clone(), Checksum: sum}, nil
}

// EncodeTelemetry frames a telemetry sample under the given sequence number.
// Used by the simulated controller and by loopback tests.
func EncodeTelemetry(seq, ackSeq uint16, timestampMs uint32, r domain.Readings) ([]byte, domain.TelemetryFrame, error) {
	payload := PackTelemetry(ackSeq, timestampMs, r)
	raw, sum := encodeFrame(seq, payload)
	frame := domain.TelemetryFrame{
		Seq:         seq,
		AckSeq:      ackSeq,
		TimestampMs: timestampMs,
		Readings:    r,
		Checksum:    sum,
	}
	return raw, frame, nil
}

// Decode scans the window for one telemetry frame.
func Decode(window []byte) DecodeResult {
	raw, seq, sum, res := decodeFrame(window)
	if res.Status != DecodeOk {
		return res
	}
	ackSeq, ts, readings, err := UnpackTelemetry(raw)
	if err != nil {
		// Checksum-valid but wrong shape: drop the whole frame.
		return DecodeResult{Status: DecodeCorrupt, Discard: res.Consumed}
	}
	res.Frame = domain.TelemetryFrame{
		Seq:         seq,
		AckSeq:      ackSeq,
		TimestampMs: ts,
		Readings:    readings,
		Checksum:    sum,
	}
	return res
}

// DecodeCommand scans the window for one command frame. Used on the
// controller side of the link (simulator) and by loopback tests.
func DecodeCommand(window []byte) (domain.CommandFrame, DecodeResult) {
	raw, seq, sum, res := decodeFrame(window)
	if res.Status != DecodeOk {
		return domain.CommandFrame{}, res
	}
	vec, err := UnpackCommand(raw)
	if err != nil {
		return domain.CommandFrame{}, DecodeResult{Status: DecodeCorrupt, Discard: res.Consumed}
	}
	return domain.CommandFrame{Seq: seq, Vector: vec, Checksum: sum}, res
}

// encodeFrame builds the wire bytes around a packed payload. The payload must
// already fit; callers validate size.
func encodeFrame(seq uint16, payload []byte) ([]byte, uint32) {
	total := len(payload) + frameOverhead
	raw := make([]byte, total)
	raw[0] = StartMarker
	raw[1] = byte(total)
	binary.LittleEndian.PutUint16(raw[2:4], seq)
	copy(raw[4:], payload)
	sum := crc32.ChecksumIEEE(raw[1 : total-4])
	binary.LittleEndian.PutUint32(raw[total-4:], sum)
	return raw, sum
}

// decodeFrame extracts the payload of one well-formed frame at the head of
// the window, after resynchronization bookkeeping.
func decodeFrame(window []byte) (payload []byte, seq uint16, sum uint32, res DecodeResult) {
	if len(window) == 0 {
		return nil, 0, 0, DecodeResult{Status: DecodeIncomplete}
	}

	start := indexMarker(window, 0)
	if start < 0 {
		// Pure line noise, nothing decodable now or later.
		return nil, 0, 0, DecodeResult{Status: DecodeCorrupt, Discard: len(window)}
	}
	if start > 0 {
		// Garbage ahead of the marker candidate.
		return nil, 0, 0, DecodeResult{Status: DecodeCorrupt, Discard: start}
	}

	if len(window) < 2 {
		return nil, 0, 0, DecodeResult{Status: DecodeIncomplete}
	}
	total := int(window[1])
	if total < MinFrameLen {
		return nil, 0, 0, DecodeResult{Status: DecodeCorrupt, Discard: resyncPoint(window)}
	}
	if len(window) < total {
		return nil, 0, 0, DecodeResult{Status: DecodeIncomplete}
	}

	want := binary.LittleEndian.Uint32(window[total-4 : total])
	got := crc32.ChecksumIEEE(window[1 : total-4])
	if want != got {
		return nil, 0, 0, DecodeResult{Status: DecodeCorrupt, Discard: resyncPoint(window)}
	}

	seq = binary.LittleEndian.Uint16(window[2:4])
	payload = window[4 : total-4]
	return payload, seq, want, DecodeResult{Status: DecodeOk, Consumed: total}
}

// resyncPoint returns how many bytes to discard to reach the next marker
// candidate after a failed claim at window[0].
func resyncPoint(window []byte) int {
	next := indexMarker(window, 1)
	if next < 0 {
		return len(window)
	}
	return next
}

// indexMarker returns the index of the first start marker at or after from,
// or -1.
func indexMarker(window []byte, from int) int {
	for i := from; i < len(window); i++ {
		if window[i] == StartMarker {
			return i
		}
	}
	return -1
}
