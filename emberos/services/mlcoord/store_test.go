package mlcoord

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5}
	flash := newTestFlash(t, []PackEntry{
		{Name: "kws", Data: want},
		{Name: "mobilenet", Data: bytes.Repeat([]byte{0xAB}, 300)},
	})
	s := NewModelStore(flash)

	names, err := s.Names()
	if err != nil || len(names) != 2 {
		t.Fatalf("Names: %v %v", names, err)
	}

	size, err := s.Size("mobilenet")
	if err != nil || size != 300 {
		t.Fatalf("Size: %d %v", size, err)
	}

	data, err := s.Load("kws")
	if err != nil || !bytes.Equal(data, want) {
		t.Fatalf("Load: %v %v", data, err)
	}

	if _, err := s.Load("absent"); !errors.Is(err, ErrNoSuchModel) {
		t.Fatalf("expected ErrNoSuchModel, got %v", err)
	}
}

func TestStoreBlobAlignment(t *testing.T) {
	img, err := PackStore([]PackEntry{{Name: "a", Data: []byte{9}}}, 256)
	if err != nil {
		t.Fatalf("PackStore: %v", err)
	}
	// First blob lands on the first block boundary past the directory.
	if img[256] != 9 {
		t.Fatalf("blob not at block boundary: %v", img[250:260])
	}
}

func TestStoreRejectsGarbage(t *testing.T) {
	flash := &testFlash{data: bytes.Repeat([]byte{0xFF}, 1024)}
	s := NewModelStore(flash)
	if _, err := s.Names(); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestPackStoreValidation(t *testing.T) {
	if _, err := PackStore([]PackEntry{{Name: "", Data: nil}}, 256); err == nil {
		t.Fatal("packed empty model name")
	}
	long := strings.Repeat("x", 80)
	if _, err := PackStore([]PackEntry{{Name: long, Data: nil}}, 256); err == nil {
		t.Fatal("packed overlong model name")
	}
}
