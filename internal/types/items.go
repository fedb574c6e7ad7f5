package types

// Item payload layouts. Offsets are relative to the start of the item's
// payload region inside the leaf. Reference: btrfs on-disk format,
// section "Item types".

// Timespec: sec u64 + nsec u32.
const TimespecSize = 12

// Inode item (InodeItemKey).
const (
	InodeItemGenerationOffset = 0
	InodeItemTransidOffset    = 8
	InodeItemSizeOffset       = 16
	InodeItemNbytesOffset     = 24
	InodeItemBlockGroupOffset = 32
	InodeItemNlinkOffset      = 40
	InodeItemUIDOffset        = 44
	InodeItemGIDOffset        = 48
	InodeItemModeOffset       = 52
	InodeItemRdevOffset       = 56
	InodeItemFlagsOffset      = 64
	InodeItemSequenceOffset   = 72
	InodeItemAtimeOffset      = 112
	InodeItemCtimeOffset      = 124
	InodeItemMtimeOffset      = 136
	InodeItemOtimeOffset      = 148

	InodeItemSize = 160
)

// Root item (RootItemKey). The item embeds an inode item, then the root's
// own fields. Roots written by older mkfs stop after the level byte; the
// v2 fields were appended later, so both sizes are valid on disk.
const (
	RootItemGenerationOffset   = 160
	RootItemRootDiridOffset    = 168
	RootItemBytenrOffset       = 176
	RootItemByteLimitOffset    = 184
	RootItemBytesUsedOffset    = 192
	RootItemLastSnapshotOffset = 200
	RootItemFlagsOffset        = 208
	RootItemRefsOffset         = 216
	RootItemDropProgressOffset = 220
	RootItemDropLevelOffset    = 237
	RootItemLevelOffset        = 238

	RootItemLegacySize = 239

	RootItemGenerationV2Offset = 239
	RootItemUUIDOffset         = 247
	RootItemParentUUIDOffset   = 263
	RootItemReceivedUUIDOffset = 279
	RootItemCtransidOffset     = 295
	RootItemOtransidOffset     = 303
	RootItemStransidOffset     = 311
	RootItemRtransidOffset     = 319

	RootItemSize = 439
)

// File extent item (ExtentDataKey). Inline extents store their data
// immediately after the type byte; regular and preallocated extents carry
// the four u64 disk fields instead.
const (
	FileExtentGenerationOffset    = 0
	FileExtentRamBytesOffset      = 8
	FileExtentCompressionOffset   = 16
	FileExtentEncryptionOffset    = 17
	FileExtentOtherEncodingOffset = 18
	FileExtentTypeOffset          = 20

	// Inline extent data starts here; also the minimum item size.
	FileExtentInlineDataStart = 21

	FileExtentDiskBytenrOffset   = 21
	FileExtentDiskNumBytesOffset = 29
	FileExtentOffsetOffset       = 37
	FileExtentNumBytesOffset     = 45

	FileExtentItemSize = 53
)

// File extent types.
const (
	FileExtentInline   uint8 = 0
	FileExtentReg      uint8 = 1
	FileExtentPrealloc uint8 = 2

	NrFileExtentTypes = 3
)

// Extent item (ExtentItemKey / MetadataItemKey): fixed header, an
// optional tree block info for non-skinny tree extents, then inline
// back-references.
const (
	ExtentItemRefsOffset       = 0
	ExtentItemGenerationOffset = 8
	ExtentItemFlagsOffset      = 16

	ExtentItemSize = 24

	// Tree block info: first key (17) + level (1).
	TreeBlockInfoLevelOffset = 17
	TreeBlockInfoSize        = 18

	// Inline ref header: type u8 + offset u64.
	InlineRefTypeOffset   = 0
	InlineRefOffsetOffset = 1
	InlineRefHeaderSize   = 9
)

// Extent data ref: root u64, objectid u64, offset u64, count u32.
const (
	ExtentDataRefRootOffset     = 0
	ExtentDataRefObjectIDOffset = 8
	ExtentDataRefOffsetOffset   = 16
	ExtentDataRefCountOffset    = 24

	ExtentDataRefSize = 28
)

// Shared data ref: count u32 only.
const SharedDataRefSize = 4

// InlineRefSize returns the on-disk size of one inline back-reference of
// the given type, or 0 for an unknown type.
func InlineRefSize(refType uint8) uint32 {
	switch refType {
	case TreeBlockRefKey, SharedBlockRefKey:
		return InlineRefHeaderSize
	case ExtentDataRefKey:
		return InlineRefHeaderSize - 8 + ExtentDataRefSize
	case SharedDataRefKey:
		return InlineRefHeaderSize + SharedDataRefSize
	}
	return 0
}

// Device item (DevItemKey).
const (
	DevItemDevidOffset       = 0
	DevItemTotalBytesOffset  = 8
	DevItemBytesUsedOffset   = 16
	DevItemIOAlignOffset     = 24
	DevItemIOWidthOffset     = 28
	DevItemSectorSizeOffset  = 32
	DevItemTypeOffset        = 36
	DevItemGenerationOffset  = 44
	DevItemStartOffsetOffset = 52
	DevItemDevGroupOffset    = 60
	DevItemSeekSpeedOffset   = 64
	DevItemBandwidthOffset   = 65
	DevItemUUIDOffset        = 66
	DevItemFsidOffset        = 82

	DevItemSize = 98
)

// Chunk item (ChunkItemKey): fixed header followed by num_stripes stripe
// records.
const (
	ChunkLengthOffset     = 0
	ChunkOwnerOffset      = 8
	ChunkStripeLenOffset  = 16
	ChunkTypeOffset       = 24
	ChunkIOAlignOffset    = 32
	ChunkIOWidthOffset    = 36
	ChunkSectorSizeOffset = 40
	ChunkNumStripesOffset = 44
	ChunkSubStripesOffset = 46

	ChunkHeaderSize = 48

	StripeDevidOffset   = 0
	StripeOffsetOffset  = 8
	StripeDevUUIDOffset = 16

	StripeSize = 32
)

// ChunkItemSize returns the full item size for a chunk with the given
// stripe count.
func ChunkItemSize(numStripes int) uint32 {
	return ChunkHeaderSize + uint32(numStripes)*StripeSize
}

// Block group item (BlockGroupItemKey).
const (
	BlockGroupUsedOffset          = 0
	BlockGroupChunkObjectIDOffset = 8
	BlockGroupFlagsOffset         = 16

	BlockGroupItemSize = 24
)

// Dir item / xattr item record header (DirItemKey, DirIndexKey,
// XattrItemKey): location key (17), transid u64, data_len u16, name_len
// u16, type u8, then name and xattr data. One leaf item may pack several
// records back to back.
const (
	DirItemLocationOffset = 0
	DirItemTransidOffset  = 17
	DirItemDataLenOffset  = 25
	DirItemNameLenOffset  = 27
	DirItemTypeOffset     = 29

	DirItemHeaderSize = 30
)

// Inode ref record header (InodeRefKey): index u64, name_len u16, then
// the name. Also packed back to back within one item.
const (
	InodeRefIndexOffset   = 0
	InodeRefNameLenOffset = 8

	InodeRefHeaderSize = 10
)

// Name length bounds.
const (
	NameLen      = 255
	XattrNameMax = 255
)
