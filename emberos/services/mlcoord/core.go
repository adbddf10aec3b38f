package mlcoord

import "time"

// RunResult reports one finished vector core run.
type RunResult struct {
	// ReturnCode is zero on success; anything else is an execution
	// fault reported by the core.
	ReturnCode uint32
	// FaultPC is the faulting program counter when ReturnCode is
	// nonzero.
	FaultPC uint32
}

// VectorCore models the ML execution engine: load an image, start it,
// get a completion back on the finish channel. One run at a time; the
// coordinator never starts a run while one is outstanding.
type VectorCore interface {
	// MemoryBytes is the core's working memory. Images larger than
	// this fail validation.
	MemoryBytes() uint32

	// LoadImage copies a model image into core memory, replacing
	// whatever was loaded before.
	LoadImage(data []byte) error

	// Run starts the core at the image entry point.
	Run()

	// Finish delivers the completion of the running job.
	Finish() <-chan RunResult
}

// simCore is a simulated vector core: every run completes successfully
// after a fixed delay. Used on host builds and in tests.
type simCore struct {
	mem    uint32
	delay  time.Duration
	finish chan RunResult
}

// NewSimCore returns a simulated core with the given memory budget.
// Each run finishes after delay.
func NewSimCore(mem uint32, delay time.Duration) VectorCore {
	return &simCore{mem: mem, delay: delay, finish: make(chan RunResult, 1)}
}

func (c *simCore) MemoryBytes() uint32 { return c.mem }

func (c *simCore) LoadImage(data []byte) error { return nil }

func (c *simCore) Run() {
	time.AfterFunc(c.delay, func() {
		c.finish <- RunResult{}
	})
}

func (c *simCore) Finish() <-chan RunResult { return c.finish }
