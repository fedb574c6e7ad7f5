package extentbuffer

import "github.com/deploymenttheory/go-btrfs/internal/types"

// Header accessors. The constructor guarantees the buffer covers the
// block header, so these cannot fail their bounds check.

// Level returns the declared tree level, 0 for a leaf.
func (eb *ExtentBuffer) Level() uint8 {
	v, _ := eb.GetU8(types.HeaderLevelOffset)
	return v
}

// NrItems returns the declared item count.
func (eb *ExtentBuffer) NrItems() uint32 {
	v, _ := eb.GetU32(types.HeaderNrItemsOffset)
	return v
}

// Owner returns the objectid of the tree this block belongs to.
func (eb *ExtentBuffer) Owner() uint64 {
	v, _ := eb.GetU64(types.HeaderOwnerOffset)
	return v
}

// Generation returns the transaction generation the block was written in.
func (eb *ExtentBuffer) Generation() uint64 {
	v, _ := eb.GetU64(types.HeaderGenerationOffset)
	return v
}

// HeaderBytenr returns the logical address recorded inside the block,
// which must match Start() for a correctly placed block.
func (eb *ExtentBuffer) HeaderBytenr() uint64 {
	v, _ := eb.GetU64(types.HeaderBytenrOffset)
	return v
}

// HeaderFlag reports whether the given header flag bit is set. The top
// byte of the flags field carries the backref revision and is masked out.
func (eb *ExtentBuffer) HeaderFlag(flag uint64) bool {
	v, _ := eb.GetU64(types.HeaderFlagsOffset)
	return v&flag != 0
}

// Fsid returns the filesystem id recorded in the header.
func (eb *ExtentBuffer) Fsid() [16]byte {
	var fsid [16]byte
	_ = eb.ReadInto(fsid[:], types.HeaderFsidOffset)
	return fsid
}

// GetKey decodes the disk key stored at off.
func (eb *ExtentBuffer) GetKey(off uint32) (types.Key, error) {
	tok := MapToken{}
	objectid, err := eb.GetU64Cached(&tok, off+types.KeyObjectIDOffset)
	if err != nil {
		return types.Key{}, err
	}
	keyType, err := eb.GetU8Cached(&tok, off+types.KeyTypeOffset)
	if err != nil {
		return types.Key{}, err
	}
	offset, err := eb.GetU64Cached(&tok, off+types.KeyOffsetOffset)
	if err != nil {
		return types.Key{}, err
	}
	return types.Key{ObjectID: objectid, Type: keyType, Offset: offset}, nil
}

// SetKey encodes key at off.
func (eb *ExtentBuffer) SetKey(off uint32, key types.Key) error {
	tok := MapToken{}
	if err := eb.SetU64Cached(&tok, off+types.KeyObjectIDOffset, key.ObjectID); err != nil {
		return err
	}
	if err := eb.SetU8Cached(&tok, off+types.KeyTypeOffset, key.Type); err != nil {
		return err
	}
	return eb.SetU64Cached(&tok, off+types.KeyOffsetOffset, key.Offset)
}
