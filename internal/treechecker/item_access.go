package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Raw leaf and node slot accessors. Offsets stored in item descriptors
// are relative to the start of the leaf data area (the byte after the
// header); itemDataStart converts to a block-relative offset for the
// extent buffer.

func itemKey(eb *extentbuffer.ExtentBuffer, slot int) (types.Key, error) {
	return eb.GetKey(types.LeafItemOffset(slot) + types.ItemKeyOffset)
}

func itemOffset(eb *extentbuffer.ExtentBuffer, slot int) (uint32, error) {
	return eb.GetU32(types.LeafItemOffset(slot) + types.ItemOffsetOffset)
}

func itemSize(eb *extentbuffer.ExtentBuffer, slot int) (uint32, error) {
	return eb.GetU32(types.LeafItemOffset(slot) + types.ItemSizeOffset)
}

// itemEnd returns offset+size in 64 bits so a corrupt descriptor cannot
// wrap around.
func itemEnd(eb *extentbuffer.ExtentBuffer, slot int) (uint64, error) {
	off, err := itemOffset(eb, slot)
	if err != nil {
		return 0, err
	}
	size, err := itemSize(eb, slot)
	if err != nil {
		return 0, err
	}
	return uint64(off) + uint64(size), nil
}

// itemDataStart returns the block-relative offset of slot's payload.
func itemDataStart(eb *extentbuffer.ExtentBuffer, slot int) (uint32, error) {
	off, err := itemOffset(eb, slot)
	if err != nil {
		return 0, err
	}
	return types.HeaderSize + off, nil
}

func nodeKey(eb *extentbuffer.ExtentBuffer, slot int) (types.Key, error) {
	return eb.GetKey(types.NodeKeyPtrOffset(slot) + types.KeyPtrKeyOffset)
}

func nodeBlockptr(eb *extentbuffer.ExtentBuffer, slot int) (uint64, error) {
	return eb.GetU64(types.NodeKeyPtrOffset(slot) + types.KeyPtrBlockptrOffset)
}

// itemReader reads fields of one item payload through a map token,
// deferring any bounds failure until the caller checks err(). Offsets
// passed to it are relative to the item payload.
type itemReader struct {
	eb   *extentbuffer.ExtentBuffer
	base uint32
	tok  extentbuffer.MapToken
	fail error
}

func newItemReader(eb *extentbuffer.ExtentBuffer, slot int) (*itemReader, error) {
	base, err := itemDataStart(eb, slot)
	if err != nil {
		return nil, err
	}
	return &itemReader{eb: eb, base: base}, nil
}

func (r *itemReader) u8(off uint32) uint8 {
	if r.fail != nil {
		return 0
	}
	v, err := r.eb.GetU8Cached(&r.tok, r.base+off)
	if err != nil {
		r.fail = err
	}
	return v
}

func (r *itemReader) u16(off uint32) uint16 {
	if r.fail != nil {
		return 0
	}
	v, err := r.eb.GetU16Cached(&r.tok, r.base+off)
	if err != nil {
		r.fail = err
	}
	return v
}

func (r *itemReader) u32(off uint32) uint32 {
	if r.fail != nil {
		return 0
	}
	v, err := r.eb.GetU32Cached(&r.tok, r.base+off)
	if err != nil {
		r.fail = err
	}
	return v
}

func (r *itemReader) u64(off uint32) uint64 {
	if r.fail != nil {
		return 0
	}
	v, err := r.eb.GetU64Cached(&r.tok, r.base+off)
	if err != nil {
		r.fail = err
	}
	return v
}

func (r *itemReader) key(off uint32) types.Key {
	if r.fail != nil {
		return types.Key{}
	}
	k, err := r.eb.GetKey(r.base + off)
	if err != nil {
		r.fail = err
	}
	return k
}

func (r *itemReader) bytes(off, n uint32) []byte {
	if r.fail != nil {
		return nil
	}
	b, err := r.eb.ReadBytes(r.base+off, n)
	if err != nil {
		r.fail = err
	}
	return b
}

func (r *itemReader) err() error {
	return r.fail
}

// isAligned reports whether v is a multiple of the power-of-two align.
func isAligned(v uint64, align uint32) bool {
	return v&uint64(align-1) == 0
}

// hasSingleBit reports whether exactly one bit of v is set.
func hasSingleBit(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// alignUp rounds v up to the next multiple of the power-of-two align.
func alignUp(v uint64, align uint32) uint64 {
	mask := uint64(align - 1)
	return (v + mask) &^ mask
}
