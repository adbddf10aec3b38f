package proto

// Kind identifies the message type carried in kernel.Message.Kind.
type Kind uint16

const (
	MsgLogLine Kind = iota + 1

	MsgTermWrite
	MsgTermClear
	MsgTermInput

	MsgTimerOneshot
	MsgTimerPeriodic
	MsgTimerCancel
	MsgTimerPoll
	MsgTimerWait
	MsgTimerCapscan
	MsgTimerAck
	MsgTimerMask
	MsgTimerCapscanLine
	MsgTimerDisconnect

	MsgMlOneshot
	MsgMlPeriodic
	MsgMlCancel
	MsgMlJobs
	MsgMlAck
	MsgMlJobMask
)

func (k Kind) String() string {
	switch k {
	case MsgLogLine:
		return "log_line"
	case MsgTermWrite:
		return "term_write"
	case MsgTermClear:
		return "term_clear"
	case MsgTermInput:
		return "term_input"
	case MsgTimerOneshot:
		return "timer_oneshot"
	case MsgTimerPeriodic:
		return "timer_periodic"
	case MsgTimerCancel:
		return "timer_cancel"
	case MsgTimerPoll:
		return "timer_poll"
	case MsgTimerWait:
		return "timer_wait"
	case MsgTimerCapscan:
		return "timer_capscan"
	case MsgTimerAck:
		return "timer_ack"
	case MsgTimerMask:
		return "timer_mask"
	case MsgTimerCapscanLine:
		return "timer_capscan_line"
	case MsgTimerDisconnect:
		return "timer_disconnect"
	case MsgMlOneshot:
		return "ml_oneshot"
	case MsgMlPeriodic:
		return "ml_periodic"
	case MsgMlCancel:
		return "ml_cancel"
	case MsgMlJobs:
		return "ml_jobs"
	case MsgMlAck:
		return "ml_ack"
	case MsgMlJobMask:
		return "ml_job_mask"
	default:
		return "unknown"
	}
}
