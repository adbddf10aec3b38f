package proto

import "testing"

func TestTimerAddPayloadRoundTrip(t *testing.T) {
	p := TimerAddPayload(31, 250)
	id, ms, ok := DecodeTimerAddPayload(p)
	if !ok || id != 31 || ms != 250 {
		t.Fatalf("got id=%d ms=%d ok=%v", id, ms, ok)
	}
	if _, _, ok := DecodeTimerAddPayload(p[:7]); ok {
		t.Fatal("decoded truncated payload")
	}
}

func TestTimerMaskPayloadRoundTrip(t *testing.T) {
	p := TimerMaskPayload(TimerErrWaitPending, 0xA5A5)
	status, mask, ok := DecodeTimerMaskPayload(p)
	if !ok || status != TimerErrWaitPending || mask != 0xA5A5 {
		t.Fatalf("got status=%s mask=%#x ok=%v", status, mask, ok)
	}
	if _, _, ok := DecodeTimerMaskPayload(nil); ok {
		t.Fatal("decoded empty payload")
	}
}

func TestMlRunPayloadRoundTrip(t *testing.T) {
	p := MlRunPayload("mobilenet", 100)
	name, rate, ok := DecodeMlRunPayload(p)
	if !ok || name != "mobilenet" || rate != 100 {
		t.Fatalf("got name=%q rate=%d ok=%v", name, rate, ok)
	}

	// Empty names are invalid on the wire.
	if _, _, ok := DecodeMlRunPayload(MlRunPayload("", 0)); ok {
		t.Fatal("decoded empty model name")
	}
	// Truncated name region.
	if _, _, ok := DecodeMlRunPayload(p[:6]); ok {
		t.Fatal("decoded truncated payload")
	}
}

func TestStatusStrings(t *testing.T) {
	if TimerOK.String() != "ok" || MlOK.String() != "ok" {
		t.Fatal("ok status strings wrong")
	}
	if TimerStatus(200).String() != "unknown error" {
		t.Fatal("unknown timer status string wrong")
	}
}
