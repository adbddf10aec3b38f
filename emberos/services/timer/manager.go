package timer

import (
	"fmt"
	"io"
	"time"

	"ember/emberos/proto"
	"ember/hal"
)

// The timer service multiplexes one hardware comparator across every
// client's virtual timers. Capacities are compile-time constants so all
// manager state is statically sized.
const (
	// NumClients is the number of client connections the service admits.
	NumClients = 4

	// TimersPerClient bounds TimerIDs to the width of the completion
	// bitmask: bit i of the mask reports TimerID i.
	TimersPerClient = 32

	maxTimers = NumClients * TimersPerClient
)

// ClientID indexes a client connection. It is derived from the IPC badge
// by the service, never chosen by the client.
type ClientID uint8

// TimerID names a virtual timer within one client's namespace. Different
// clients may use equal TimerIDs without interfering.
type TimerID uint32

// TimerMask is a client's completion bitmask: bit i set means TimerID i
// has fired and has not been polled yet.
type TimerMask uint32

// virtualTimer is one outstanding timer in a client's table.
type virtualTimer struct {
	active   bool
	periodic bool
	deadline hal.Ticks
	period   hal.Ticks
}

type clientState struct {
	mask   TimerMask
	timers [TimersPerClient]virtualTimer
}

// Manager owns the hardware timer and keeps the per-client tables plus
// the global deadline ordering consistent with the one comparator.
//
// Manager is not safe for concurrent use: the service serializes client
// requests and the interrupt path through a single lock, so critical
// sections here must stay short and must never block. The notify
// continuation is invoked from ServiceInterrupt under that same lock.
type Manager struct {
	hw     hal.HardwareTimer
	notify func(ClientID)

	clients [NumClients]clientState
	index   deadlineIndex
	seq     uint64

	armed   bool
	armedAt hal.Ticks
}

// NewManager initializes the hardware timer and returns a manager.
// notify is called once per client with newly completed timers during
// ServiceInterrupt; it must not block and may be nil.
func NewManager(hw hal.HardwareTimer, notify func(ClientID)) *Manager {
	hw.Setup()
	return &Manager{hw: hw, notify: notify}
}

// AddOneshot registers a timer that fires once, duration from now.
// A zero duration is legal and fires as soon as possible.
func (m *Manager) AddOneshot(client ClientID, id TimerID, d time.Duration) proto.TimerStatus {
	return m.add(client, id, d, false)
}

// AddPeriodic registers a self-renewing timer. Each renewal is scheduled
// at the previous deadline plus the period, not at "now" plus the period,
// so firing latency never accumulates into drift.
func (m *Manager) AddPeriodic(client ClientID, id TimerID, d time.Duration) proto.TimerStatus {
	return m.add(client, id, d, true)
}

func (m *Manager) add(client ClientID, id TimerID, d time.Duration, periodic bool) proto.TimerStatus {
	m.checkClient(client)
	if id >= TimersPerClient {
		return proto.TimerErrNoSuchTimer
	}
	vt := &m.clients[client].timers[id]
	if vt.active {
		return proto.TimerErrAlreadyExists
	}

	var period hal.Ticks
	if periodic {
		period = m.hw.TicksIn(d)
		if period == 0 {
			// A zero period would re-fire forever within one
			// interrupt.
			return proto.TimerErrInvalidDuration
		}
	}

	deadline := m.hw.Deadline(d)
	*vt = virtualTimer{active: true, periodic: periodic, deadline: deadline, period: period}
	m.indexPush(deadlineEntry{deadline: deadline, client: client, id: id})
	m.rearm()
	return proto.TimerOK
}

// Cancel removes an outstanding timer. Cancelling a timer that is not
// outstanding (never added, already fired as a oneshot, or already
// cancelled) reports TimerErrNoSuchTimer; callers legitimately race
// cancel against fire, so this is never fatal.
func (m *Manager) Cancel(client ClientID, id TimerID) proto.TimerStatus {
	m.checkClient(client)
	if id >= TimersPerClient {
		return proto.TimerErrNoSuchTimer
	}
	vt := &m.clients[client].timers[id]
	if !vt.active {
		return proto.TimerErrNoSuchTimer
	}
	*vt = virtualTimer{}
	if !m.index.remove(client, id) {
		panic("timer: deadline index out of sync with client table")
	}
	m.rearm()
	return proto.TimerOK
}

// CompletedTimers returns and clears the client's completion bitmask.
// Delivery is edge triggered and coalescing: however many times a timer
// fired since the last read, its bit is set once.
func (m *Manager) CompletedTimers(client ClientID) TimerMask {
	m.checkClient(client)
	st := &m.clients[client]
	mask := st.mask
	st.mask = 0
	return mask
}

// restoreMask re-asserts completion bits that could not be delivered.
func (m *Manager) restoreMask(client ClientID, mask TimerMask) {
	m.checkClient(client)
	m.clients[client].mask |= mask
}

// DropClient tears down a client connection: every outstanding timer is
// cancelled and pending completions are discarded.
func (m *Manager) DropClient(client ClientID) {
	m.checkClient(client)
	st := &m.clients[client]
	for id := TimerID(0); id < TimersPerClient; id++ {
		if !st.timers[id].active {
			continue
		}
		if !m.index.remove(client, id) {
			panic("timer: deadline index out of sync with client table")
		}
	}
	*st = clientState{}
	m.rearm()
}

// ServiceInterrupt handles a comparator interrupt: acknowledge, fire
// every timer whose deadline has passed (a delayed interrupt may cover
// several, across several clients), re-queue periodics, notify affected
// clients, and re-arm for the new earliest deadline.
//
// An interrupt with nothing due is tolerated: a cancel can disarm the
// comparator after the hardware has already latched the interrupt.
//
// This method never blocks.
func (m *Manager) ServiceInterrupt() {
	m.hw.AckInterrupt()
	m.armed = false

	var fired [NumClients]bool
	for {
		head, ok := m.index.peek()
		if !ok || head.deadline > m.hw.Now() {
			break
		}
		e, _ := m.index.pop()

		vt := &m.clients[e.client].timers[e.id]
		if !vt.active {
			panic("timer: deadline index out of sync with client table")
		}

		m.clients[e.client].mask |= 1 << e.id
		fired[e.client] = true

		if vt.periodic {
			vt.deadline += vt.period
			m.indexPush(deadlineEntry{deadline: vt.deadline, client: e.client, id: e.id})
		} else {
			*vt = virtualTimer{}
		}
	}

	if m.notify != nil {
		for c := ClientID(0); c < NumClients; c++ {
			if fired[c] {
				m.notify(c)
			}
		}
	}

	m.rearm()
}

// Capscan writes a debug dump of the manager state.
func (m *Manager) Capscan(w io.Writer) {
	now := m.hw.Now()
	fmt.Fprintf(w, "now=%d armed=%v", now, m.armed)
	if m.armed {
		fmt.Fprintf(w, " armed_at=%d", m.armedAt)
	}
	fmt.Fprintf(w, " outstanding=%d\n", m.index.len())
	for c := ClientID(0); c < NumClients; c++ {
		st := &m.clients[c]
		for id := TimerID(0); id < TimersPerClient; id++ {
			vt := &st.timers[id]
			if !vt.active {
				continue
			}
			fmt.Fprintf(w, "client=%d timer=%d deadline=%d", c, id, vt.deadline)
			if vt.periodic {
				fmt.Fprintf(w, " period=%d", vt.period)
			}
			fmt.Fprintln(w)
		}
		if st.mask != 0 {
			fmt.Fprintf(w, "client=%d completed=%#x\n", c, uint32(st.mask))
		}
	}
}

func (m *Manager) indexPush(e deadlineEntry) {
	m.seq++
	e.seq = m.seq
	if !m.index.push(e) {
		// The index capacity equals the table capacity, so this
		// cannot happen unless the two disagree.
		panic("timer: deadline index overflow")
	}
}

// rearm reconciles the comparator with the earliest outstanding deadline.
// The hardware is reprogrammed only when that deadline differs from what
// is already armed; registering a later timer leaves the comparator
// untouched.
func (m *Manager) rearm() {
	head, ok := m.index.peek()
	if !ok {
		if m.armed {
			m.hw.ClearAlarm()
			m.armed = false
		}
		return
	}
	if !m.armed || m.armedAt != head.deadline {
		m.hw.SetAlarm(head.deadline)
		m.armed = true
		m.armedAt = head.deadline
	}
}

func (m *Manager) checkClient(client ClientID) {
	if client >= NumClients {
		panic("timer: client id out of range")
	}
}
