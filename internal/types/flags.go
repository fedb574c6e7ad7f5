package types

// Flag masks and enums shared by several item types.

// Inode mode bits, mirroring the POSIX encoding stored on disk.
const (
	ModeFmt  uint32 = 0170000
	ModeSock uint32 = 0140000
	ModeLnk  uint32 = 0120000
	ModeReg  uint32 = 0100000
	ModeBlk  uint32 = 0060000
	ModeDir  uint32 = 0040000
	ModeChr  uint32 = 0020000
	ModeFifo uint32 = 0010000

	ModeSuid uint32 = 0004000
	ModeSgid uint32 = 0002000
	ModeSvtx uint32 = 0001000

	// Every bit an inode's mode field may legitimately carry.
	ModeValidMask = ModeFmt | ModeSuid | ModeSgid | ModeSvtx | 0777
)

// Inode flags.
const (
	InodeNodatasum  uint64 = 1 << 0
	InodeNodatacow  uint64 = 1 << 1
	InodeReadonly   uint64 = 1 << 2
	InodeNocompress uint64 = 1 << 3
	InodePrealloc   uint64 = 1 << 4
	InodeSync       uint64 = 1 << 5
	InodeImmutable  uint64 = 1 << 6
	InodeAppend     uint64 = 1 << 7
	InodeNodump     uint64 = 1 << 8
	InodeNoatime    uint64 = 1 << 9
	InodeDirsync    uint64 = 1 << 10
	InodeCompress   uint64 = 1 << 11

	InodeRootItemInit uint64 = 1 << 31

	InodeFlagMask = InodeNodatasum | InodeNodatacow | InodeReadonly |
		InodeNocompress | InodePrealloc | InodeSync | InodeImmutable |
		InodeAppend | InodeNodump | InodeNoatime | InodeDirsync |
		InodeCompress | InodeRootItemInit
)

// Root item flags.
const (
	RootSubvolRdonly uint64 = 1 << 0
	RootSubvolDead   uint64 = 1 << 48

	RootFlagMask = RootSubvolRdonly | RootSubvolDead
)

// Extent item flags.
const (
	ExtentFlagData       uint64 = 1 << 0
	ExtentFlagTreeBlock  uint64 = 1 << 1
	BlockFlagFullBackref uint64 = 1 << 8
)

// Compression types stored in a file extent item.
const (
	CompressNone uint8 = 0
	CompressZlib uint8 = 1
	CompressLzo  uint8 = 2
	CompressZstd uint8 = 3

	NrCompressTypes = 4
)

// Directory entry file types.
const (
	FtUnknown uint8 = 0
	FtRegFile uint8 = 1
	FtDir     uint8 = 2
	FtChrdev  uint8 = 3
	FtBlkdev  uint8 = 4
	FtFifo    uint8 = 5
	FtSock    uint8 = 6
	FtSymlink uint8 = 7
	FtXattr   uint8 = 8

	FtMax = 9
)

// Block group / chunk type and profile bits.
const (
	BlockGroupData     uint64 = 1 << 0
	BlockGroupSystem   uint64 = 1 << 1
	BlockGroupMetadata uint64 = 1 << 2
	BlockGroupRaid0    uint64 = 1 << 3
	BlockGroupRaid1    uint64 = 1 << 4
	BlockGroupDup      uint64 = 1 << 5
	BlockGroupRaid10   uint64 = 1 << 6
	BlockGroupRaid5    uint64 = 1 << 7
	BlockGroupRaid6    uint64 = 1 << 8

	BlockGroupTypeMask = BlockGroupData | BlockGroupSystem | BlockGroupMetadata

	BlockGroupProfileMask = BlockGroupRaid0 | BlockGroupRaid1 |
		BlockGroupDup | BlockGroupRaid10 | BlockGroupRaid5 | BlockGroupRaid6
)

// StripeLen is the fixed stripe length every chunk must declare.
const StripeLen uint64 = 64 * 1024

// RaidAttr describes the stripe constraints of one redundancy profile.
type RaidAttr struct {
	ProfileBit uint64 // 0 for the implicit single profile

	// Minimum stripes a chunk of this profile may carry.
	DevsMin uint16

	// Exact sub_stripes value, 0 when unconstrained... every profile but
	// RAID10 stores 0 or 1 here, RAID10 requires exactly 2.
	SubStripes uint16

	// Copies of each byte the profile stores.
	Ncopies uint16

	// Parity stripes per horizontal stripe.
	Nparity uint16
}

// RaidArray holds the constraints of all supported profiles; index it via
// RaidIndex.
var RaidArray = []RaidAttr{
	{ProfileBit: 0, DevsMin: 1, SubStripes: 1, Ncopies: 1, Nparity: 0},
	{ProfileBit: BlockGroupRaid0, DevsMin: 2, SubStripes: 1, Ncopies: 1, Nparity: 0},
	{ProfileBit: BlockGroupRaid1, DevsMin: 2, SubStripes: 1, Ncopies: 2, Nparity: 0},
	{ProfileBit: BlockGroupDup, DevsMin: 2, SubStripes: 1, Ncopies: 2, Nparity: 0},
	{ProfileBit: BlockGroupRaid10, DevsMin: 4, SubStripes: 2, Ncopies: 2, Nparity: 0},
	{ProfileBit: BlockGroupRaid5, DevsMin: 2, SubStripes: 1, Ncopies: 1, Nparity: 1},
	{ProfileBit: BlockGroupRaid6, DevsMin: 3, SubStripes: 1, Ncopies: 1, Nparity: 2},
}

// RaidIndex maps a chunk type to its RaidArray entry. Unknown profile
// bits fall back to the single profile; the profile-mask check rejects
// them separately.
func RaidIndex(chunkType uint64) int {
	for i := 1; i < len(RaidArray); i++ {
		if chunkType&RaidArray[i].ProfileBit != 0 {
			return i
		}
	}
	return 0
}

// Incompatible feature bits consumed from the superblock.
const (
	FeatureIncompatMixedBackref   uint64 = 1 << 0
	FeatureIncompatDefaultSubvol  uint64 = 1 << 1
	FeatureIncompatMixedGroups    uint64 = 1 << 2
	FeatureIncompatCompressLzo    uint64 = 1 << 3
	FeatureIncompatCompressZstd   uint64 = 1 << 4
	FeatureIncompatBigMetadata    uint64 = 1 << 5
	FeatureIncompatExtendedIref   uint64 = 1 << 6
	FeatureIncompatRaid56         uint64 = 1 << 7
	FeatureIncompatSkinnyMetadata uint64 = 1 << 8
	FeatureIncompatNoHoles        uint64 = 1 << 9
)
