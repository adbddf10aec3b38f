package kernel

import "sync"

const (
	maxTasks      = 32
	maxEndpoints  = 32
	endpointSlots = 16
)

// TaskID identifies a registered task.
type TaskID uint8

// Badge is an unforgeable tag attached to a capability when it is minted.
//
// A message sent through a badged capability carries the badge; receivers
// use it to identify the sending client. Clients cannot choose or alter
// it, so it is safe to derive authority from it.
type Badge uint32

// Rights define which operations are allowed for a capability.
type Rights uint8

const (
	RightSend Rights = 1 << iota
	RightRecv
)

// Endpoint identifies an IPC destination.
type Endpoint uint8

// Capability grants access to an IPC endpoint.
//
// It is opaque by construction (no exported fields) and may be transferred
// via IPC. Deriving weaker capabilities is done with Restrict and Mint;
// there is no way back to a stronger one.
type Capability struct {
	ep     Endpoint
	rights Rights
	badge  Badge
}

func (c Capability) valid() bool { return c.rights != 0 }

func (c Capability) Valid() bool { return c.valid() }

func (c Capability) canSend() bool { return c.rights&RightSend != 0 }
func (c Capability) canRecv() bool { return c.rights&RightRecv != 0 }

// Badge returns the capability's badge (zero when unbadged).
func (c Capability) Badge() Badge { return c.badge }

// Restrict returns a capability with a reduced set of rights.
func (c Capability) Restrict(rights Rights) Capability {
	if !c.valid() {
		return Capability{}
	}
	r := c.rights & rights
	if r == 0 {
		return Capability{}
	}
	return Capability{ep: c.ep, rights: r, badge: c.badge}
}

// Mint returns a badged send-only capability for the same endpoint.
//
// Minting an already-badged capability is refused (invalid result): a
// client must not be able to re-badge the capability it was handed.
func (c Capability) Mint(badge Badge) Capability {
	if !c.valid() || !c.canSend() || c.badge != 0 || badge == 0 {
		return Capability{}
	}
	return Capability{ep: c.ep, rights: RightSend, badge: badge}
}

// MaxMessageBytes is the maximum payload size for IPC messages.
//
// Larger transfers should use shared buffers + notify protocols, not
// message copies.
const MaxMessageBytes = 128

// Message is a fixed-size IPC envelope.
//
// Badge is stamped by the kernel from the capability used to send, never
// from message content.
type Message struct {
	Kind  uint16
	Badge Badge
	Len   uint16
	Data  [MaxMessageBytes]byte
	Cap   Capability
}

// SendResult describes the outcome of a send attempt.
type SendResult uint8

const (
	SendOK SendResult = iota
	SendErrInvalidCap
	SendErrNoSendRight
	SendErrNoEndpoint
	SendErrPayloadTooLarge
	SendErrQueueFull
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendErrInvalidCap:
		return "invalid capability"
	case SendErrNoSendRight:
		return "capability has no send right"
	case SendErrNoEndpoint:
		return "no such endpoint"
	case SendErrPayloadTooLarge:
		return "payload too large"
	case SendErrQueueFull:
		return "queue full"
	default:
		return "unknown"
	}
}

// Task is a unit of execution. Run is invoked on its own goroutine by
// Kernel.Start and is expected to block on its endpoints.
type Task interface {
	Run(*Context)
}

type endpointState struct {
	ch chan Message
}

// Kernel routes messages between endpoints and hosts the task runtime.
type Kernel struct {
	mu            sync.Mutex
	endpoints     [maxEndpoints]endpointState
	endpointCount Endpoint

	tasks     [maxTasks]Task
	taskCount TaskID
	started   bool

	tick     uint64
	tickCond *sync.Cond
}

// New creates a kernel instance.
func New() *Kernel {
	k := &Kernel{}
	k.tickCond = sync.NewCond(&k.mu)
	return k
}

// NewEndpoint allocates a new endpoint and returns a capability for it.
func (k *Kernel) NewEndpoint(rights Rights) Capability {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.endpointCount >= maxEndpoints {
		return Capability{}
	}
	ep := k.endpointCount
	k.endpointCount++
	k.endpoints[ep] = endpointState{ch: make(chan Message, endpointSlots)}
	return Capability{ep: ep, rights: rights}
}

// AddTask registers a task. Tasks must be added before Start.
func (k *Kernel) AddTask(t Task) TaskID {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t == nil || k.started || k.taskCount >= maxTasks {
		return 0
	}
	id := k.taskCount
	k.taskCount++
	k.tasks[id] = t
	return id
}

// Start launches every registered task on its own goroutine. A panicking
// task trips the kernel panic handler instead of tearing down the process
// silently.
func (k *Kernel) Start() {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.started = true
	n := k.taskCount
	k.mu.Unlock()

	for id := TaskID(0); id < n; id++ {
		t := k.tasks[id]
		ctx := &Context{k: k, taskID: id}
		go func(id TaskID, t Task, ctx *Context) {
			defer func() {
				if v := recover(); v != nil {
					triggerPanic(PanicInfo{TaskID: id, Value: v})
				}
			}()
			t.Run(ctx)
		}(id, t, ctx)
	}
}

// TickTo advances the kernel tick and wakes tick waiters.
func (k *Kernel) TickTo(seq uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if seq <= k.tick {
		return
	}
	k.tick = seq
	k.tickCond.Broadcast()
}

func (k *Kernel) nowTick() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

func (k *Kernel) waitTick(after uint64) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	for k.tick <= after {
		k.tickCond.Wait()
	}
	return k.tick
}

func (k *Kernel) send(toCap Capability, kind uint16, payload []byte, xfer Capability) SendResult {
	if len(payload) > MaxMessageBytes {
		return SendErrPayloadTooLarge
	}

	k.mu.Lock()
	if toCap.ep >= k.endpointCount {
		k.mu.Unlock()
		return SendErrNoEndpoint
	}
	ch := k.endpoints[toCap.ep].ch
	k.mu.Unlock()
	if ch == nil {
		return SendErrNoEndpoint
	}

	var msg Message
	msg.Kind = kind
	msg.Badge = toCap.badge
	msg.Len = uint16(len(payload))
	copy(msg.Data[:], payload)
	msg.Cap = xfer

	select {
	case ch <- msg:
		return SendOK
	default:
		return SendErrQueueFull
	}
}
