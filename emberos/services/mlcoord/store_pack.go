package mlcoord

import (
	"encoding/binary"
	"fmt"

	"ember/emberos/proto"
)

// PackEntry is one model to place into a store image.
type PackEntry struct {
	Name string
	Data []byte
}

// PackStore builds a flash image containing the model directory and the
// image blobs, blobs aligned to erase-block boundaries. The result is
// suitable for writing at flash offset 0.
func PackStore(entries []PackEntry, blockBytes uint32) ([]byte, error) {
	if len(entries) > storeMaxEntry {
		return nil, fmt.Errorf("mlcoord: too many models: %d", len(entries))
	}
	if blockBytes == 0 {
		blockBytes = 1
	}

	dirBytes := uint32(storeHeaderBytes + len(entries)*storeEntryBytes)
	off := alignUp(dirBytes, blockBytes)

	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		if e.Name == "" || len(e.Name) > proto.MaxModelNameLen {
			return nil, fmt.Errorf("mlcoord: bad model name %q", e.Name)
		}
		offsets[i] = off
		off = alignUp(off+uint32(len(e.Data)), blockBytes)
	}

	img := make([]byte, off)
	for i := range img {
		img[i] = 0xFF
	}

	binary.LittleEndian.PutUint32(img[0:4], storeMagic)
	binary.LittleEndian.PutUint32(img[4:8], uint32(len(entries)))
	for i, e := range entries {
		base := storeHeaderBytes + i*storeEntryBytes
		for j := 0; j < proto.MaxModelNameLen; j++ {
			img[base+j] = 0
		}
		copy(img[base:base+proto.MaxModelNameLen], e.Name)
		binary.LittleEndian.PutUint32(img[base+proto.MaxModelNameLen:], offsets[i])
		binary.LittleEndian.PutUint32(img[base+proto.MaxModelNameLen+4:], uint32(len(e.Data)))
		copy(img[offsets[i]:], e.Data)
	}
	return img, nil
}

func alignUp(v, align uint32) uint32 {
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + align - rem
}
