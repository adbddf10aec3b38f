package mlcoord

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"ember/emberos/proto"
	"ember/hal"
)

// Model images live in a flat directory at the start of flash:
//
//	header:  u32 magic "EBM1", u32 entry count
//	entry:   name [64]byte NUL-padded, u32 offset, u32 size
//
// Offsets are absolute flash addresses. All integers little-endian.
const (
	storeMagic    = 0x314D4245
	storeMaxEntry = 16

	storeHeaderBytes = 8
	storeEntryBytes  = proto.MaxModelNameLen + 8
)

var (
	ErrNoStore     = errors.New("mlcoord: no model store on flash")
	ErrNoSuchModel = errors.New("mlcoord: no such model")
)

// ModelStore reads model images out of the flash directory.
type ModelStore struct {
	flash hal.Flash
}

func NewModelStore(flash hal.Flash) *ModelStore {
	return &ModelStore{flash: flash}
}

type storeEntry struct {
	name   string
	offset uint32
	size   uint32
}

func (s *ModelStore) entries() ([]storeEntry, error) {
	var hdr [storeHeaderBytes]byte
	if _, err := s.flash.ReadAt(hdr[:], 0); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != storeMagic {
		return nil, ErrNoStore
	}
	count := binary.LittleEndian.Uint32(hdr[4:8])
	if count > storeMaxEntry {
		return nil, fmt.Errorf("mlcoord: corrupt store: %d entries", count)
	}

	out := make([]storeEntry, 0, count)
	buf := make([]byte, storeEntryBytes)
	for i := uint32(0); i < count; i++ {
		off := uint32(storeHeaderBytes) + i*storeEntryBytes
		if _, err := s.flash.ReadAt(buf, off); err != nil {
			return nil, err
		}
		name := buf[:proto.MaxModelNameLen]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		out = append(out, storeEntry{
			name:   string(name),
			offset: binary.LittleEndian.Uint32(buf[proto.MaxModelNameLen : proto.MaxModelNameLen+4]),
			size:   binary.LittleEndian.Uint32(buf[proto.MaxModelNameLen+4 : proto.MaxModelNameLen+8]),
		})
	}
	return out, nil
}

// Size returns the stored size of the named image without reading it.
func (s *ModelStore) Size(name string) (uint32, error) {
	entries, err := s.entries()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.name == name {
			return e.size, nil
		}
	}
	return 0, ErrNoSuchModel
}

// Load reads the named image from flash.
func (s *ModelStore) Load(name string) ([]byte, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name != name {
			continue
		}
		data := make([]byte, e.size)
		if _, err := s.flash.ReadAt(data, e.offset); err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, ErrNoSuchModel
}

// Names lists the stored model names.
func (s *ModelStore) Names() ([]string, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}
