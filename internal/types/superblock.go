package types

// Superblock layout. Only the fields this module consumes as trusted
// context are named; the superblock copy at SuperInfoOffset is the
// primary one.
const (
	SuperInfoOffset uint64 = 65536
	SuperInfoSize          = 4096

	// "_BHRfS_M" little endian.
	SuperMagic uint64 = 0x4D5F53665248425F
)

const (
	SuperCsumOffset              = 0 // 32 bytes
	SuperFsidOffset              = 32
	SuperBytenrOffset            = 48
	SuperFlagsOffset             = 56
	SuperMagicOffset             = 64
	SuperGenerationOffset        = 72
	SuperRootOffset              = 80
	SuperChunkRootOffset         = 88
	SuperLogRootOffset           = 96
	SuperTotalBytesOffset        = 112
	SuperBytesUsedOffset         = 120
	SuperRootDirObjectIDOffset   = 128
	SuperNumDevicesOffset        = 136
	SuperSectorSizeOffset        = 144
	SuperNodeSizeOffset          = 148
	SuperLeafSizeOffset          = 152
	SuperStripeSizeOffset        = 156
	SuperSysChunkArraySizeOffset = 160
	SuperChunkRootGenOffset      = 164
	SuperCompatFlagsOffset       = 172
	SuperCompatRoFlagsOffset     = 180
	SuperIncompatFlagsOffset     = 188
	SuperCsumTypeOffset          = 196
	SuperRootLevelOffset         = 198
	SuperChunkRootLevelOffset    = 199
	SuperLogRootLevelOffset      = 200
	SuperDevItemOffset           = 201
	SuperLabelOffset             = 299 // 256 bytes
	SuperCacheGenerationOffset   = 555
	SuperUUIDTreeGenOffset       = 563
	SuperMetadataUUIDOffset      = 571

	SuperLabelSize = 256

	// The embedded system chunk array: packed (disk key, chunk) pairs,
	// SysChunkArraySizeOffset holds the used byte count.
	SuperSysChunkArrayOffset = 811
	SysChunkArraySize        = 2048
)

// Sector and node size sanity bounds, used when accepting a superblock
// as trusted context.
const (
	MinSectorSize uint32 = 4096
	MaxSectorSize uint32 = 65536
	MaxNodeSize   uint32 = 65536
)
