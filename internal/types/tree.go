package types

// Tree block layout.
// Every metadata block starts with a fixed header followed, for leaves, by
// an array of item descriptors growing forward and item payloads packed
// from the end of the block backward; internal nodes hold an array of key
// pointers instead. Reference: btrfs on-disk format, section "Basic
// structures".

// MaxLevel is the exclusive bound on tree height; level 0 is a leaf.
const MaxLevel = 8

// Header field offsets within a tree block. The header occupies the first
// HeaderSize bytes of every block, leaf or node.
const (
	HeaderCsumOffset          = 0   // 32 bytes, checksum of [32, nodesize)
	HeaderFsidOffset          = 32  // 16 bytes
	HeaderBytenrOffset        = 48  // u64, logical address of this block
	HeaderFlagsOffset         = 56  // u64, low 56 bits flags, top byte backref rev
	HeaderChunkTreeUUIDOffset = 64  // 16 bytes
	HeaderGenerationOffset    = 80  // u64
	HeaderOwnerOffset         = 88  // u64, objectid of the owning tree
	HeaderNrItemsOffset       = 96  // u32
	HeaderLevelOffset         = 100 // u8

	HeaderSize = 101
)

// Header flags.
const (
	HeaderFlagWritten uint64 = 1 << 0

	// Set on blocks of a relocation tree, whose owner field carries the
	// id of the subvolume being relocated rather than the tree's own id.
	HeaderFlagReloc uint64 = 1 << 1
)

// DiskKeySize is the packed size of a key on disk: objectid u64 at +0,
// type u8 at +8, offset u64 at +9.
const (
	DiskKeySize       = 17
	KeyObjectIDOffset = 0
	KeyTypeOffset     = 8
	KeyOffsetOffset   = 9
)

// Leaf item descriptors follow the header: a disk key, then the payload
// offset (relative to the start of the leaf data area, i.e. HeaderSize)
// and payload size, both u32.
const (
	ItemKeyOffset    = 0
	ItemOffsetOffset = 17
	ItemSizeOffset   = 21

	ItemSize = 25
)

// Node key pointers follow the header in internal blocks: a disk key, the
// child block's logical address and the child's expected generation.
const (
	KeyPtrKeyOffset        = 0
	KeyPtrBlockptrOffset   = 17
	KeyPtrGenerationOffset = 25

	KeyPtrSize = 33
)

// LeafDataSize returns the usable byte count of a leaf: everything after
// the header is shared between item descriptors and packed payloads.
func LeafDataSize(nodeSize uint32) uint32 {
	return nodeSize - HeaderSize
}

// LeafItemOffset returns the block-relative offset of slot's item
// descriptor.
func LeafItemOffset(slot int) uint32 {
	return HeaderSize + uint32(slot)*ItemSize
}

// NodeKeyPtrOffset returns the block-relative offset of slot's key
// pointer.
func NodeKeyPtrOffset(slot int) uint32 {
	return HeaderSize + uint32(slot)*KeyPtrSize
}

// MaxXattrSize returns the largest name+data length a single extended
// attribute record may declare in a leaf of the given node size.
func MaxXattrSize(nodeSize uint32) uint32 {
	return LeafDataSize(nodeSize) - ItemSize - DirItemHeaderSize
}
