package kernel

import "testing"

func TestSendStampsBadge(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)
	ctx := &Context{k: k, taskID: 1}

	badged := ep.Restrict(RightSend).Mint(42)
	if !badged.Valid() {
		t.Fatal("mint failed")
	}
	if res := ctx.SendResult(badged, 1, []byte{0xAA, 0x01}, Capability{}); res != SendOK {
		t.Fatalf("send: %s", res)
	}

	msg, ok := ctx.Recv(ep.Restrict(RightRecv))
	if !ok {
		t.Fatal("recv failed")
	}
	if msg.Badge != 42 {
		t.Fatalf("badge: got %d, want 42", msg.Badge)
	}
	if msg.Len != 2 || msg.Data[0] != 0xAA {
		t.Fatalf("payload mangled: len=%d data=%v", msg.Len, msg.Data[:2])
	}
}

func TestUnbadgedSendCarriesZeroBadge(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)
	ctx := &Context{k: k, taskID: 1}

	if !ctx.Send(ep.Restrict(RightSend), 1, nil) {
		t.Fatal("send failed")
	}
	msg, _ := ctx.Recv(ep.Restrict(RightRecv))
	if msg.Badge != 0 {
		t.Fatalf("unbadged send carried badge %d", msg.Badge)
	}
}

func TestMintAttenuation(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)

	badged := ep.Restrict(RightSend).Mint(7)
	if badged.Badge() != 7 {
		t.Fatalf("badge: %d", badged.Badge())
	}

	// A badged capability cannot be re-badged.
	if rebadged := badged.Mint(9); rebadged.Valid() {
		t.Fatal("re-minting a badged capability succeeded")
	}
	// Zero is not a badge.
	if c := ep.Restrict(RightSend).Mint(0); c.Valid() {
		t.Fatal("minting badge 0 succeeded")
	}
	// Recv-only capabilities cannot mint.
	if c := ep.Restrict(RightRecv).Mint(7); c.Valid() {
		t.Fatal("minting from recv-only capability succeeded")
	}
}

func TestRestrictCannotEscalate(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)

	sendOnly := ep.Restrict(RightSend)
	if regained := sendOnly.Restrict(RightSend | RightRecv); regained.canRecv() {
		t.Fatal("restrict escalated rights")
	}
}

func TestSendQueueFull(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)
	ctx := &Context{k: k, taskID: 1}
	to := ep.Restrict(RightSend)

	for i := 0; i < endpointSlots; i++ {
		if res := ctx.SendResult(to, 1, nil, Capability{}); res != SendOK {
			t.Fatalf("fill %d: %s", i, res)
		}
	}
	if res := ctx.SendResult(to, 1, nil, Capability{}); res != SendErrQueueFull {
		t.Fatalf("expected SendErrQueueFull, got %s", res)
	}
}

func TestSendPayloadTooLarge(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)
	ctx := &Context{k: k, taskID: 1}

	big := make([]byte, MaxMessageBytes+1)
	if res := ctx.SendResult(ep.Restrict(RightSend), 1, big, Capability{}); res != SendErrPayloadTooLarge {
		t.Fatalf("expected SendErrPayloadTooLarge, got %s", res)
	}
}

func TestSendRequiresSendRight(t *testing.T) {
	k := New()
	ep := k.NewEndpoint(RightSend | RightRecv)
	ctx := &Context{k: k, taskID: 1}

	if res := ctx.SendResult(ep.Restrict(RightRecv), 1, nil, Capability{}); res != SendErrNoSendRight {
		t.Fatalf("expected SendErrNoSendRight, got %s", res)
	}
	if res := ctx.SendResult(Capability{}, 1, nil, Capability{}); res != SendErrInvalidCap {
		t.Fatalf("expected SendErrInvalidCap, got %s", res)
	}
}

func TestTickWaitersWake(t *testing.T) {
	k := New()
	ctx := &Context{k: k, taskID: 1}

	got := make(chan uint64, 1)
	go func() {
		got <- ctx.WaitTick(0)
	}()

	k.TickTo(5)
	if tick := <-got; tick != 5 {
		t.Fatalf("woke at tick %d, want 5", tick)
	}
	// Ticks never move backwards.
	k.TickTo(3)
	if now := ctx.NowTick(); now != 5 {
		t.Fatalf("tick went backwards: %d", now)
	}
}
