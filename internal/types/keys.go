package types

// Keys and object identifiers.
// Every item in a metadata tree is addressed by a fixed 17-byte key of
// (objectid, type, offset). The same triple is used in internal node key
// pointers. Reference: btrfs on-disk format, section "Keys".

// Key is the CPU-order form of a disk key.
type Key struct {
	// The object this item belongs to (inode number, tree id, extent
	// bytenr, ... depending on Type).
	ObjectID uint64

	// The item type. See the *Key constants below.
	Type uint8

	// Type-specific discriminator (file offset, hash, device id, ...).
	Offset uint64
}

// Compare returns -1, 0 or 1 ordering keys lexicographically on
// (ObjectID, Type, Offset).
func (k Key) Compare(other Key) int {
	if k.ObjectID < other.ObjectID {
		return -1
	}
	if k.ObjectID > other.ObjectID {
		return 1
	}
	if k.Type < other.Type {
		return -1
	}
	if k.Type > other.Type {
		return 1
	}
	if k.Offset < other.Offset {
		return -1
	}
	if k.Offset > other.Offset {
		return 1
	}
	return 0
}

// Item type values stored in Key.Type.
const (
	InodeItemKey      uint8 = 1
	InodeRefKey       uint8 = 12
	InodeExtrefKey    uint8 = 13
	XattrItemKey      uint8 = 24
	DirItemKey        uint8 = 84
	DirIndexKey       uint8 = 96
	ExtentDataKey     uint8 = 108
	ExtentCsumKey     uint8 = 128
	RootItemKey       uint8 = 132
	ExtentItemKey     uint8 = 168
	MetadataItemKey   uint8 = 169
	TreeBlockRefKey   uint8 = 176
	ExtentDataRefKey  uint8 = 178
	SharedBlockRefKey uint8 = 182
	SharedDataRefKey  uint8 = 184
	BlockGroupItemKey uint8 = 192
	DevItemKey        uint8 = 216
	ChunkItemKey      uint8 = 228
)

// Well-known object ids. The large negative-looking values are the
// reserved ids stored as two's complement in the unsigned objectid field.
const (
	RootTreeObjectID      uint64 = 1
	ExtentTreeObjectID    uint64 = 2
	ChunkTreeObjectID     uint64 = 3
	DevTreeObjectID       uint64 = 4
	FSTreeObjectID        uint64 = 5
	RootTreeDirObjectID   uint64 = 6
	CsumTreeObjectID      uint64 = 7
	QuotaTreeObjectID     uint64 = 8
	UUIDTreeObjectID      uint64 = 9
	FreeSpaceTreeObjectID uint64 = 10

	// Device items in the chunk tree all live under this objectid.
	DevItemsObjectID uint64 = 1

	// The objectid of the first chunk in the chunk tree, and the value a
	// block group item's chunk_objectid must carry.
	FirstChunkTreeObjectID uint64 = 256

	// Inode numbers of regular files and directories are allocated from
	// this range.
	FirstFreeObjectID uint64 = 256
	LastFreeObjectID  uint64 = ^uint64(0) - 255 // -256

	TreeRelocObjectID  uint64 = ^uint64(0) - 7  // -8
	DataRelocObjectID  uint64 = ^uint64(0) - 8  // -9
	ExtentCsumObjectID uint64 = ^uint64(0) - 9  // -10
	FreeInoObjectID    uint64 = ^uint64(0) - 11 // -12
)

// IsFSTree reports whether owner is a subvolume tree (including the data
// relocation tree), i.e. a tree holding inode-addressed items.
func IsFSTree(owner uint64) bool {
	if owner == FSTreeObjectID || owner == DataRelocObjectID {
		return true
	}
	return owner >= FirstFreeObjectID && owner <= LastFreeObjectID
}
