package proto

import "encoding/binary"

// MlStatus is the result code of an ML coordinator request.
//
// The ordinal values cross the IPC boundary and must stay stable.
type MlStatus uint16

const (
	MlOK MlStatus = iota
	MlErrInvalidModel
	MlErrLoadFailed
	MlErrNoModelSlots
	MlErrNoSuchModel
	MlErrInvalidTimer
	MlErrBadRequest
	MlErrUnknown
)

func (s MlStatus) String() string {
	switch s {
	case MlOK:
		return "ok"
	case MlErrInvalidModel:
		return "invalid model"
	case MlErrLoadFailed:
		return "model load failed"
	case MlErrNoModelSlots:
		return "no model slots left"
	case MlErrNoSuchModel:
		return "no such model"
	case MlErrInvalidTimer:
		return "timer registration failed"
	case MlErrBadRequest:
		return "bad request"
	default:
		return "unknown error"
	}
}

// MaxModelNameLen bounds model names on the wire.
const MaxModelNameLen = 64

// MlRunPayload encodes a MsgMlOneshot / MsgMlPeriodic request.
//
// Layout (little-endian):
//   - u32: rate in ms (0 for oneshot)
//   - u8:  name length
//   - bytes: name
func MlRunPayload(name string, rateMS uint32) []byte {
	if len(name) > MaxModelNameLen {
		name = name[:MaxModelNameLen]
	}
	buf := make([]byte, 5+len(name))
	binary.LittleEndian.PutUint32(buf[0:4], rateMS)
	buf[4] = byte(len(name))
	copy(buf[5:], name)
	return buf
}

// DecodeMlRunPayload decodes an MlRunPayload.
func DecodeMlRunPayload(payload []byte) (name string, rateMS uint32, ok bool) {
	if len(payload) < 5 {
		return "", 0, false
	}
	rateMS = binary.LittleEndian.Uint32(payload[0:4])
	n := int(payload[4])
	if n == 0 || len(payload) < 5+n {
		return "", 0, false
	}
	return string(payload[5 : 5+n]), rateMS, true
}

// MlAckPayload encodes a MsgMlAck response.
//
// Layout (little-endian):
//   - u16: status
func MlAckPayload(status MlStatus) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(status))
	return buf
}

// DecodeMlAckPayload decodes an MlAckPayload.
func DecodeMlAckPayload(payload []byte) (status MlStatus, ok bool) {
	if len(payload) < 2 {
		return MlErrUnknown, false
	}
	return MlStatus(binary.LittleEndian.Uint16(payload[0:2])), true
}

// MlJobMaskPayload encodes a MsgMlJobMask response.
//
// Layout (little-endian):
//   - u32: completed job bitmask (bit N set: model slot N completed a run)
func MlJobMaskPayload(mask uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], mask)
	return buf
}

// DecodeMlJobMaskPayload decodes an MlJobMaskPayload.
func DecodeMlJobMaskPayload(payload []byte) (mask uint32, ok bool) {
	if len(payload) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(payload[0:4]), true
}
