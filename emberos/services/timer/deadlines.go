package timer

import "ember/hal"

// deadlineEntry is one armed virtual timer in the global ordering.
type deadlineEntry struct {
	deadline hal.Ticks
	seq      uint64
	client   ClientID
	id       TimerID
}

// deadlineIndex is a fixed-capacity binary min-heap over every armed
// virtual timer, keyed by (deadline, seq) so that equal deadlines are
// admitted and pop in insertion order. Capacity matches the per-client
// tables exactly, so a full index with a non-full table is a bug.
type deadlineIndex struct {
	n       int
	entries [maxTimers]deadlineEntry
}

func (x *deadlineIndex) len() int { return x.n }

func (x *deadlineIndex) less(i, j int) bool {
	a, b := &x.entries[i], &x.entries[j]
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.seq < b.seq
}

func (x *deadlineIndex) swap(i, j int) {
	x.entries[i], x.entries[j] = x.entries[j], x.entries[i]
}

func (x *deadlineIndex) push(e deadlineEntry) bool {
	if x.n >= maxTimers {
		return false
	}
	x.entries[x.n] = e
	x.n++
	x.siftUp(x.n - 1)
	return true
}

func (x *deadlineIndex) peek() (deadlineEntry, bool) {
	if x.n == 0 {
		return deadlineEntry{}, false
	}
	return x.entries[0], true
}

func (x *deadlineIndex) pop() (deadlineEntry, bool) {
	if x.n == 0 {
		return deadlineEntry{}, false
	}
	e := x.entries[0]
	x.removeAt(0)
	return e, true
}

// remove drops the entry for (client, id), if present.
func (x *deadlineIndex) remove(client ClientID, id TimerID) bool {
	for i := 0; i < x.n; i++ {
		if x.entries[i].client == client && x.entries[i].id == id {
			x.removeAt(i)
			return true
		}
	}
	return false
}

func (x *deadlineIndex) removeAt(i int) {
	x.n--
	if i == x.n {
		x.entries[x.n] = deadlineEntry{}
		return
	}
	x.entries[i] = x.entries[x.n]
	x.entries[x.n] = deadlineEntry{}
	x.siftDown(i)
	x.siftUp(i)
}

func (x *deadlineIndex) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !x.less(i, parent) {
			return
		}
		x.swap(i, parent)
		i = parent
	}
}

func (x *deadlineIndex) siftDown(i int) {
	for {
		left := 2*i + 1
		if left >= x.n {
			return
		}
		min := left
		if right := left + 1; right < x.n && x.less(right, left) {
			min = right
		}
		if !x.less(min, i) {
			return
		}
		x.swap(i, min)
		i = min
	}
}
