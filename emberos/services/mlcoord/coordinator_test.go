package mlcoord

import (
	"testing"
	"time"

	"ember/emberos/proto"
	"ember/hal"
)

// testFlash is an in-memory flash backing a model store.
type testFlash struct {
	data []byte
}

func newTestFlash(t *testing.T, entries []PackEntry) *testFlash {
	t.Helper()
	img, err := PackStore(entries, 256)
	if err != nil {
		t.Fatalf("PackStore: %v", err)
	}
	return &testFlash{data: img}
}

func (f *testFlash) SizeBytes() uint32       { return uint32(len(f.data)) }
func (f *testFlash) EraseBlockBytes() uint32 { return 256 }

func (f *testFlash) ReadAt(p []byte, off uint32) (int, error) {
	if int(off) >= len(f.data) {
		return 0, hal.ErrNotImplemented
	}
	return copy(p, f.data[off:]), nil
}

func (f *testFlash) WriteAt(p []byte, off uint32) (int, error) { return 0, hal.ErrNotImplemented }
func (f *testFlash) Erase(off, size uint32) error              { return hal.ErrNotImplemented }

// manualCore completes runs only when the test says so.
type manualCore struct {
	mem      uint32
	loads    int
	runs     int
	finishCh chan RunResult
}

func newManualCore(mem uint32) *manualCore {
	return &manualCore{mem: mem, finishCh: make(chan RunResult, 1)}
}

func (c *manualCore) MemoryBytes() uint32         { return c.mem }
func (c *manualCore) LoadImage(data []byte) error { c.loads++; return nil }
func (c *manualCore) Run()                        { c.runs++ }
func (c *manualCore) Finish() <-chan RunResult    { return c.finishCh }

type timerCall struct {
	op   string
	id   uint32
	rate time.Duration
}

type fakeTimerPort struct {
	calls  []timerCall
	status proto.TimerStatus
}

func (p *fakeTimerPort) Periodic(id uint32, rate time.Duration) proto.TimerStatus {
	p.calls = append(p.calls, timerCall{op: "periodic", id: id, rate: rate})
	return p.status
}

func (p *fakeTimerPort) Cancel(id uint32) proto.TimerStatus {
	p.calls = append(p.calls, timerCall{op: "cancel", id: id})
	return p.status
}

func testCoordinator(t *testing.T) (*Coordinator, *manualCore, *fakeTimerPort) {
	t.Helper()
	flash := newTestFlash(t, []PackEntry{
		{Name: "mobilenet", Data: make([]byte, 1024)},
		{Name: "kws", Data: make([]byte, 512)},
		{Name: "huge", Data: make([]byte, 8192)},
	})
	core := newManualCore(4096)
	port := &fakeTimerPort{status: proto.TimerOK}
	return NewCoordinator(core, NewModelStore(flash), port), core, port
}

func TestOneshotRunsImmediately(t *testing.T) {
	c, core, _ := testCoordinator(t)

	if got := c.Oneshot("mobilenet"); got != proto.MlOK {
		t.Fatalf("Oneshot: %s", got)
	}
	if core.loads != 1 || core.runs != 1 {
		t.Fatalf("loads=%d runs=%d", core.loads, core.runs)
	}

	c.HandleReturnInterrupt()
	if mask := c.CompletedJobs(); mask != 1 {
		t.Fatalf("jobs mask: %#x", mask)
	}
	if mask := c.CompletedJobs(); mask != 0 {
		t.Fatalf("jobs mask not cleared: %#x", mask)
	}
}

func TestSecondRequestQueuesBehindRunning(t *testing.T) {
	c, core, _ := testCoordinator(t)

	c.Oneshot("mobilenet")
	if got := c.Oneshot("kws"); got != proto.MlOK {
		t.Fatalf("Oneshot kws: %s", got)
	}
	if core.runs != 1 {
		t.Fatalf("second run started while core busy: runs=%d", core.runs)
	}

	c.HandleReturnInterrupt()
	if core.runs != 2 {
		t.Fatalf("queued run not started: runs=%d", core.runs)
	}
}

func TestLoadedImageIsNotReloaded(t *testing.T) {
	c, core, _ := testCoordinator(t)

	c.Oneshot("mobilenet")
	c.HandleReturnInterrupt()
	c.Oneshot("mobilenet")
	if core.loads != 1 {
		t.Fatalf("image reloaded: loads=%d", core.loads)
	}

	// Running another model evicts it.
	c.HandleReturnInterrupt()
	c.Oneshot("kws")
	c.HandleReturnInterrupt()
	c.Oneshot("mobilenet")
	if core.loads != 3 {
		t.Fatalf("expected reload after eviction: loads=%d", core.loads)
	}
}

func TestPeriodicRegistersSlotTimer(t *testing.T) {
	c, _, port := testCoordinator(t)

	if got := c.Periodic("mobilenet", 100*time.Millisecond); got != proto.MlOK {
		t.Fatalf("Periodic: %s", got)
	}
	if len(port.calls) != 1 || port.calls[0].op != "periodic" || port.calls[0].rate != 100*time.Millisecond {
		t.Fatalf("timer calls: %+v", port.calls)
	}
}

func TestPeriodicTimerFailure(t *testing.T) {
	c, _, port := testCoordinator(t)
	port.status = proto.TimerErrNoSpace

	if got := c.Periodic("mobilenet", 100*time.Millisecond); got != proto.MlErrInvalidTimer {
		t.Fatalf("expected InvalidTimer, got %s", got)
	}
}

func TestBoundedQueueDropsDuplicateTicks(t *testing.T) {
	c, core, port := testCoordinator(t)

	c.Periodic("mobilenet", 10*time.Millisecond)
	slot := port.calls[0].id

	// Core busy with the first run; two more ticks arrive. Only one
	// may queue.
	c.TimerCompleted(int(slot))
	c.TimerCompleted(int(slot))

	if got := c.Statistics().AlreadyQueued; got != 1 {
		t.Fatalf("AlreadyQueued: %d", got)
	}
	c.HandleReturnInterrupt()
	c.HandleReturnInterrupt()
	if core.runs != 2 {
		t.Fatalf("runs: %d", core.runs)
	}
}

func TestTimerTickForRemovedModelIgnored(t *testing.T) {
	c, _, port := testCoordinator(t)

	c.Periodic("mobilenet", 10*time.Millisecond)
	slot := int(port.calls[0].id)
	c.HandleReturnInterrupt()
	c.Cancel("mobilenet")

	// The tick racing the cancel is dropped silently.
	c.TimerCompleted(slot)
	if got := c.Statistics().AlreadyQueued; got != 0 {
		t.Fatalf("dropped tick miscounted: %d", got)
	}
}

func TestCancelStopsTimerAndFreesSlot(t *testing.T) {
	c, _, port := testCoordinator(t)

	c.Periodic("mobilenet", 10*time.Millisecond)
	if got := c.Cancel("mobilenet"); got != proto.MlOK {
		t.Fatalf("Cancel: %s", got)
	}

	last := port.calls[len(port.calls)-1]
	if last.op != "cancel" || last.id != port.calls[0].id {
		t.Fatalf("timer calls: %+v", port.calls)
	}
	if got := c.Cancel("mobilenet"); got != proto.MlErrNoSuchModel {
		t.Fatalf("double cancel: %s", got)
	}
}

func TestUnknownAndOversizedModels(t *testing.T) {
	c, _, _ := testCoordinator(t)

	if got := c.Oneshot("nope"); got != proto.MlErrInvalidModel {
		t.Fatalf("unknown model: %s", got)
	}
	// "huge" exceeds the core memory budget.
	if got := c.Oneshot("huge"); got != proto.MlErrInvalidModel {
		t.Fatalf("oversized model: %s", got)
	}
	if got := c.Oneshot(""); got != proto.MlErrBadRequest {
		t.Fatalf("empty name: %s", got)
	}
}

func TestModelSlotExhaustion(t *testing.T) {
	flash := newTestFlash(t, func() []PackEntry {
		entries := make([]PackEntry, 0, storeMaxEntry)
		for i := 0; i < storeMaxEntry; i++ {
			entries = append(entries, PackEntry{
				Name: "m" + string(rune('a'+i)),
				Data: make([]byte, 16),
			})
		}
		return entries
	}())
	core := newManualCore(4096)
	port := &fakeTimerPort{status: proto.TimerOK}
	c := NewCoordinator(core, NewModelStore(flash), port)

	// Slot count exceeds the store entry limit here, so exhaust via
	// repeated distinct names is capped by the store; just confirm
	// distinct models land in distinct slots.
	if got := c.Oneshot("ma"); got != proto.MlOK {
		t.Fatalf("ma: %s", got)
	}
	if got := c.Oneshot("mb"); got != proto.MlOK {
		t.Fatalf("mb: %s", got)
	}
	c.HandleReturnInterrupt()
	c.HandleReturnInterrupt()
	if mask := c.CompletedJobs(); mask != 0b11 {
		t.Fatalf("jobs mask: %#x", mask)
	}
}
