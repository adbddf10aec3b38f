package proto

import "encoding/binary"

// TimerStatus is the result code of a timer service request.
//
// The ordinal values cross the IPC boundary and must stay stable.
type TimerStatus uint16

const (
	TimerOK TimerStatus = iota
	TimerErrNoSuchTimer
	TimerErrAlreadyExists
	TimerErrInvalidDuration
	TimerErrWaitPending
	TimerErrNoSpace
	TimerErrBadRequest
	TimerErrUnknown
)

func (s TimerStatus) String() string {
	switch s {
	case TimerOK:
		return "ok"
	case TimerErrNoSuchTimer:
		return "no such timer"
	case TimerErrAlreadyExists:
		return "timer already exists"
	case TimerErrInvalidDuration:
		return "invalid duration"
	case TimerErrWaitPending:
		return "wait already pending"
	case TimerErrNoSpace:
		return "no space"
	case TimerErrBadRequest:
		return "bad request"
	default:
		return "unknown error"
	}
}

// TimerAddPayload encodes a MsgTimerOneshot / MsgTimerPeriodic request.
//
// Layout (little-endian):
//   - u32: timer id
//   - u32: duration in ms
func TimerAddPayload(timerID uint32, durationMS uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], timerID)
	binary.LittleEndian.PutUint32(buf[4:8], durationMS)
	return buf
}

// DecodeTimerAddPayload decodes a TimerAddPayload.
func DecodeTimerAddPayload(payload []byte) (timerID uint32, durationMS uint32, ok bool) {
	if len(payload) < 8 {
		return 0, 0, false
	}
	timerID = binary.LittleEndian.Uint32(payload[0:4])
	durationMS = binary.LittleEndian.Uint32(payload[4:8])
	return timerID, durationMS, true
}

// TimerCancelPayload encodes a MsgTimerCancel request.
//
// Layout (little-endian):
//   - u32: timer id
func TimerCancelPayload(timerID uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], timerID)
	return buf
}

// DecodeTimerCancelPayload decodes a TimerCancelPayload.
func DecodeTimerCancelPayload(payload []byte) (timerID uint32, ok bool) {
	if len(payload) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(payload[0:4]), true
}

// TimerAckPayload encodes a MsgTimerAck response.
//
// Layout (little-endian):
//   - u16: status
func TimerAckPayload(status TimerStatus) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(status))
	return buf
}

// DecodeTimerAckPayload decodes a TimerAckPayload.
func DecodeTimerAckPayload(payload []byte) (status TimerStatus, ok bool) {
	if len(payload) < 2 {
		return TimerErrUnknown, false
	}
	return TimerStatus(binary.LittleEndian.Uint16(payload[0:2])), true
}

// TimerMaskPayload encodes a MsgTimerMask response.
//
// Layout (little-endian):
//   - u16: status
//   - u32: completion bitmask (bit N set: timer N fired since last read)
func TimerMaskPayload(status TimerStatus, mask uint32) []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(status))
	binary.LittleEndian.PutUint32(buf[2:6], mask)
	return buf
}

// DecodeTimerMaskPayload decodes a TimerMaskPayload.
func DecodeTimerMaskPayload(payload []byte) (status TimerStatus, mask uint32, ok bool) {
	if len(payload) < 6 {
		return TimerErrUnknown, 0, false
	}
	status = TimerStatus(binary.LittleEndian.Uint16(payload[0:2]))
	mask = binary.LittleEndian.Uint32(payload[2:6])
	return status, mask, true
}
