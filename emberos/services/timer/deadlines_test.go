package timer

import "testing"

func TestDeadlineIndexOrdering(t *testing.T) {
	var x deadlineIndex

	x.push(deadlineEntry{deadline: 30, seq: 1, client: 0, id: 0})
	x.push(deadlineEntry{deadline: 10, seq: 2, client: 0, id: 1})
	x.push(deadlineEntry{deadline: 20, seq: 3, client: 1, id: 0})

	want := []uint64{10, 20, 30}
	for i, w := range want {
		e, ok := x.pop()
		if !ok || e.deadline != w {
			t.Fatalf("pop %d: got %d ok=%v, want %d", i, e.deadline, ok, w)
		}
	}
	if _, ok := x.pop(); ok {
		t.Fatal("pop from empty index succeeded")
	}
}

func TestDeadlineIndexFIFOOnTies(t *testing.T) {
	var x deadlineIndex

	for i := TimerID(0); i < 4; i++ {
		x.push(deadlineEntry{deadline: 100, seq: uint64(i + 1), client: 0, id: i})
	}
	for i := TimerID(0); i < 4; i++ {
		e, ok := x.pop()
		if !ok || e.id != i {
			t.Fatalf("tie pop %d: got id %d", i, e.id)
		}
	}
}

func TestDeadlineIndexRemove(t *testing.T) {
	var x deadlineIndex

	x.push(deadlineEntry{deadline: 10, seq: 1, client: 0, id: 0})
	x.push(deadlineEntry{deadline: 20, seq: 2, client: 1, id: 0})
	x.push(deadlineEntry{deadline: 30, seq: 3, client: 1, id: 1})

	if !x.remove(1, 0) {
		t.Fatal("remove existing entry failed")
	}
	if x.remove(1, 0) {
		t.Fatal("remove of absent entry succeeded")
	}

	e, _ := x.pop()
	if e.deadline != 10 {
		t.Fatalf("head after remove: %d", e.deadline)
	}
	e, _ = x.pop()
	if e.deadline != 30 {
		t.Fatalf("next after remove: %d", e.deadline)
	}
	if x.len() != 0 {
		t.Fatalf("len after drain: %d", x.len())
	}
}

func TestDeadlineIndexCapacity(t *testing.T) {
	var x deadlineIndex

	for i := 0; i < maxTimers; i++ {
		if !x.push(deadlineEntry{deadline: uint64(i), seq: uint64(i)}) {
			t.Fatalf("push %d refused below capacity", i)
		}
	}
	if x.push(deadlineEntry{deadline: 1, seq: 999}) {
		t.Fatal("push above capacity succeeded")
	}
}
