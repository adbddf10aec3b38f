// Package mlcoord arbitrates the vector core: it tracks loadable models,
// queues execution requests, and drives periodic runs through the timer
// service like any other timer client.
package mlcoord

import (
	"fmt"
	"io"
	"time"

	"ember/emberos/proto"
)

// MaxModels bounds the model slot table. Slot indices double as timer
// ids for periodic models and as bits in the completed-job mask.
const MaxModels = 32

// TimerPort is the coordinator's view of the timer service.
type TimerPort interface {
	Periodic(id uint32, rate time.Duration) proto.TimerStatus
	Cancel(id uint32) proto.TimerStatus
}

type model struct {
	used   bool
	name   string
	rateMS uint32 // 0 for oneshot
	size   uint32
	loaded bool
}

// Stats counts non-happy-path events.
type Stats struct {
	LoadFailures  uint32
	AlreadyQueued uint32
}

// Coordinator owns the vector core. One run at a time; requests queue.
// Not safe for concurrent use; the service select loop serializes it.
type Coordinator struct {
	core  VectorCore
	store *ModelStore
	timer TimerPort

	models  [MaxModels]model
	queue   []int
	running int // slot index, -1 when idle

	completedMask uint32
	stats         Stats
}

func NewCoordinator(core VectorCore, store *ModelStore, timer TimerPort) *Coordinator {
	c := &Coordinator{core: core, store: store, timer: timer, running: -1}
	c.queue = make([]int, 0, MaxModels)
	return c
}

// Oneshot queues one run of the named model, readying a slot for it on
// first use.
func (c *Coordinator) Oneshot(name string) proto.MlStatus {
	idx, status := c.slotFor(name, 0)
	if status != proto.MlOK {
		return status
	}
	c.enqueue(idx)
	c.scheduleNext()
	return proto.MlOK
}

// Periodic registers the named model to run every rate, driven by a
// periodic timer whose id is the model's slot index.
func (c *Coordinator) Periodic(name string, rate time.Duration) proto.MlStatus {
	rateMS := uint32(rate / time.Millisecond)
	idx, status := c.slotFor(name, rateMS)
	if status != proto.MlOK {
		return status
	}
	c.models[idx].rateMS = rateMS

	if c.timer.Periodic(uint32(idx), rate) != proto.TimerOK {
		return proto.MlErrInvalidTimer
	}
	c.enqueue(idx)
	c.scheduleNext()
	return proto.MlOK
}

// Cancel removes the named model: stops its periodic timer, drops any
// queued execution, and frees the slot. A run already on the core is
// left to finish.
func (c *Coordinator) Cancel(name string) proto.MlStatus {
	idx := c.indexOf(name)
	if idx < 0 {
		return proto.MlErrNoSuchModel
	}
	if c.models[idx].rateMS != 0 {
		// A fire racing the cancel is harmless, so the timer result
		// is not checked.
		c.timer.Cancel(uint32(idx))
	}
	for i, q := range c.queue {
		if q == idx {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
	c.completedMask |= 1 << idx
	c.models[idx] = model{}
	return proto.MlOK
}

// TimerCompleted enqueues a run for the model in the given slot. The
// queue stays bounded: a model with an execution outstanding is not
// queued again, the tick is dropped and counted.
func (c *Coordinator) TimerCompleted(idx int) {
	if idx < 0 || idx >= MaxModels || !c.models[idx].used {
		// The model can be cancelled between the timer firing and
		// the completion arriving here.
		return
	}
	for _, q := range c.queue {
		if q == idx {
			c.stats.AlreadyQueued++
			return
		}
	}
	c.enqueue(idx)
	c.scheduleNext()
}

// HandleReturnInterrupt completes the running job and starts the next
// queued one. The run result itself is the caller's to report; a failed
// run still counts as completed.
func (c *Coordinator) HandleReturnInterrupt() {
	if c.running < 0 {
		return
	}
	if c.models[c.running].used {
		c.completedMask |= 1 << c.running
	}
	c.running = -1
	c.scheduleNext()
}

// CompletedJobs returns and clears the completed-job bitmask.
func (c *Coordinator) CompletedJobs() uint32 {
	mask := c.completedMask
	c.completedMask = 0
	return mask
}

// Statistics returns the drop counters.
func (c *Coordinator) Statistics() Stats { return c.stats }

// DebugState writes the coordinator state for the debug console.
func (c *Coordinator) DebugState(w io.Writer) {
	if c.running >= 0 {
		fmt.Fprintf(w, "running: %s\n", c.models[c.running].name)
	} else {
		fmt.Fprintln(w, "no running model")
	}
	for i := range c.models {
		m := &c.models[i]
		if !m.used {
			continue
		}
		fmt.Fprintf(w, "slot=%d name=%s size=%d rate_ms=%d loaded=%v\n",
			i, m.name, m.size, m.rateMS, m.loaded)
	}
	fmt.Fprintf(w, "queued=%d load_failures=%d already_queued=%d\n",
		len(c.queue), c.stats.LoadFailures, c.stats.AlreadyQueued)
}

// slotFor finds or readies a slot for the named model, validating it
// against the store and the core memory budget on first use.
func (c *Coordinator) slotFor(name string, rateMS uint32) (int, proto.MlStatus) {
	if name == "" || len(name) > proto.MaxModelNameLen {
		return -1, proto.MlErrBadRequest
	}
	if idx := c.indexOf(name); idx >= 0 {
		return idx, proto.MlOK
	}

	free := -1
	for i := range c.models {
		if !c.models[i].used {
			free = i
			break
		}
	}
	if free < 0 {
		return -1, proto.MlErrNoModelSlots
	}

	size, err := c.store.Size(name)
	if err != nil {
		return -1, proto.MlErrInvalidModel
	}
	if size == 0 || size > c.core.MemoryBytes() {
		return -1, proto.MlErrInvalidModel
	}

	c.models[free] = model{used: true, name: name, rateMS: rateMS, size: size}
	return free, proto.MlOK
}

func (c *Coordinator) indexOf(name string) int {
	for i := range c.models {
		if c.models[i].used && c.models[i].name == name {
			return i
		}
	}
	return -1
}

func (c *Coordinator) enqueue(idx int) {
	c.queue = append(c.queue, idx)
}

// scheduleNext loads and starts the next queued model if the core is
// idle.
func (c *Coordinator) scheduleNext() {
	if c.running >= 0 || len(c.queue) == 0 {
		return
	}
	idx := c.queue[0]
	c.queue = c.queue[1:]

	m := &c.models[idx]
	if !m.loaded {
		data, err := c.store.Load(m.name)
		if err == nil {
			err = c.core.LoadImage(data)
		}
		if err != nil {
			c.stats.LoadFailures++
			c.scheduleNext()
			return
		}
		// Loading replaces whatever image was on the core.
		for i := range c.models {
			c.models[i].loaded = false
		}
		m.loaded = true
	}

	c.running = idx
	c.core.Run()
}
