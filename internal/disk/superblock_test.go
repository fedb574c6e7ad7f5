package disk

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/treechecker"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var le = binary.LittleEndian

var testFSID = uuid.MustParse("3428e84b-9675-4739-97a6-fd0a57e3ad45")

// sysChunkEntry packs one (disk key, chunk) pair the way mkfs lays them
// out in the superblock's system chunk array.
func sysChunkEntry(logical, length, chunkType uint64, numStripes, subStripes uint16) []byte {
	p := make([]byte, types.DiskKeySize+types.ChunkItemSize(int(numStripes)))
	le.PutUint64(p[types.KeyObjectIDOffset:], types.FirstChunkTreeObjectID)
	p[types.KeyTypeOffset] = types.ChunkItemKey
	le.PutUint64(p[types.KeyOffsetOffset:], logical)

	chunk := p[types.DiskKeySize:]
	le.PutUint64(chunk[types.ChunkLengthOffset:], length)
	le.PutUint64(chunk[types.ChunkOwnerOffset:], types.ExtentTreeObjectID)
	le.PutUint64(chunk[types.ChunkStripeLenOffset:], types.StripeLen)
	le.PutUint64(chunk[types.ChunkTypeOffset:], chunkType)
	le.PutUint32(chunk[types.ChunkSectorSizeOffset:], 4096)
	le.PutUint16(chunk[types.ChunkNumStripesOffset:], numStripes)
	le.PutUint16(chunk[types.ChunkSubStripesOffset:], subStripes)
	for i := 0; i < int(numStripes); i++ {
		stripe := chunk[int(types.ChunkHeaderSize)+i*types.StripeSize:]
		le.PutUint64(stripe[types.StripeDevidOffset:], 1)
		le.PutUint64(stripe[types.StripeOffsetOffset:], uint64(i+1)<<20)
	}
	return p
}

// buildImage returns an image containing a valid primary superblock,
// optionally mutated before it is placed at its fixed offset.
func buildImage(mutate func(sb []byte)) *bytes.Reader {
	sb := make([]byte, types.SuperInfoSize)
	copy(sb[types.SuperFsidOffset:], testFSID[:])
	le.PutUint64(sb[types.SuperBytenrOffset:], types.SuperInfoOffset)
	le.PutUint64(sb[types.SuperMagicOffset:], types.SuperMagic)
	le.PutUint64(sb[types.SuperGenerationOffset:], 100)
	le.PutUint64(sb[types.SuperRootOffset:], 1<<25)
	le.PutUint64(sb[types.SuperChunkRootOffset:], 1<<21)
	le.PutUint32(sb[types.SuperSectorSizeOffset:], 4096)
	le.PutUint32(sb[types.SuperNodeSizeOffset:], 16384)
	le.PutUint64(sb[types.SuperIncompatFlagsOffset:], types.FeatureIncompatSkinnyMetadata)
	le.PutUint16(sb[types.SuperCsumTypeOffset:], checksums.TypeCRC32C)
	copy(sb[types.SuperLabelOffset:], "checker-dev\x00leftover")

	entry := sysChunkEntry(1<<20, 1<<23, types.BlockGroupSystem, 1, 0)
	copy(sb[types.SuperSysChunkArrayOffset:], entry)
	le.PutUint32(sb[types.SuperSysChunkArraySizeOffset:], uint32(len(entry)))

	if mutate != nil {
		mutate(sb)
	}

	img := make([]byte, types.SuperInfoOffset+uint64(types.SuperInfoSize))
	copy(img[types.SuperInfoOffset:], sb)
	return bytes.NewReader(img)
}

func TestReadSuperblock(t *testing.T) {
	sb, err := ReadSuperblock(buildImage(nil))
	require.NoError(t, err)

	assert.Equal(t, testFSID, sb.FSID)
	assert.Equal(t, "checker-dev", sb.Label, "label must stop at the first NUL")
	assert.Equal(t, uint64(100), sb.Generation)
	assert.Equal(t, uint64(1<<25), sb.Root)
	assert.Equal(t, uint64(1<<21), sb.ChunkRoot)
	assert.Equal(t, uint32(4096), sb.SectorSize)
	assert.Equal(t, uint32(16384), sb.NodeSize)
	assert.Equal(t, uint16(checksums.TypeCRC32C), sb.CsumType)
	assert.Equal(t, uint32(4), sb.CsumSize)
	assert.Equal(t, types.FeatureIncompatSkinnyMetadata, sb.IncompatFlags)
}

func TestReadSuperblockRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(sb []byte)
	}{
		{"bad magic", func(sb []byte) {
			le.PutUint64(sb[types.SuperMagicOffset:], 0xDEADBEEF)
		}},
		{"bytenr mismatch", func(sb []byte) {
			le.PutUint64(sb[types.SuperBytenrOffset:], 0)
		}},
		{"sectorsize too small", func(sb []byte) {
			le.PutUint32(sb[types.SuperSectorSizeOffset:], 512)
		}},
		{"sectorsize not a power of two", func(sb []byte) {
			le.PutUint32(sb[types.SuperSectorSizeOffset:], 5000)
		}},
		{"nodesize below sectorsize", func(sb []byte) {
			le.PutUint32(sb[types.SuperSectorSizeOffset:], 16384)
			le.PutUint32(sb[types.SuperNodeSizeOffset:], 4096)
		}},
		{"nodesize too large", func(sb []byte) {
			le.PutUint32(sb[types.SuperNodeSizeOffset:], 131072)
		}},
		{"unknown checksum type", func(sb []byte) {
			le.PutUint16(sb[types.SuperCsumTypeOffset:], 9)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadSuperblock(buildImage(tc.mutate))
			require.Error(t, err)
		})
	}
}

func TestSuperblockFsInfo(t *testing.T) {
	sb, err := ReadSuperblock(buildImage(nil))
	require.NoError(t, err)

	fs := sb.FsInfo()
	assert.Equal(t, sb.SectorSize, fs.SectorSize)
	assert.Equal(t, sb.NodeSize, fs.NodeSize)
	assert.Equal(t, sb.Generation, fs.Generation)
	assert.Equal(t, sb.CsumType, fs.CsumType)
	assert.Equal(t, sb.CsumSize, fs.CsumSize)
	assert.Equal(t, sb.IncompatFlags, fs.IncompatFlags)
}

func TestCheckSysChunkArray(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		first := sysChunkEntry(1<<20, 1<<23, types.BlockGroupSystem, 1, 0)
		second := sysChunkEntry(1<<24, 1<<23,
			types.BlockGroupSystem|types.BlockGroupDup, 2, 0)
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			n := copy(sb[types.SuperSysChunkArrayOffset:], first)
			n += copy(sb[types.SuperSysChunkArrayOffset+n:], second)
			le.PutUint32(sb[types.SuperSysChunkArraySizeOffset:], uint32(n))
		}))
		require.NoError(t, err)

		chunks, err := sb.CheckSysChunkArray()
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, uint64(1<<20), chunks[0].Key.Offset)
		assert.Equal(t, uint16(1), chunks[0].NumStripes)
		assert.Equal(t, uint64(1<<23), chunks[0].Length)
		assert.Equal(t, uint64(types.BlockGroupSystem), chunks[0].Type)
		assert.Equal(t, uint64(1<<24), chunks[1].Key.Offset)
		assert.Equal(t, uint16(2), chunks[1].NumStripes)
	})

	t.Run("empty array", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			le.PutUint32(sb[types.SuperSysChunkArraySizeOffset:], 0)
		}))
		require.NoError(t, err)

		chunks, err := sb.CheckSysChunkArray()
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("oversized array", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			le.PutUint32(sb[types.SuperSysChunkArraySizeOffset:],
				types.SysChunkArraySize+1)
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
	})

	t.Run("unexpected key objectid", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			le.PutUint64(sb[types.SuperSysChunkArrayOffset+types.KeyObjectIDOffset:], 1)
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
	})

	t.Run("unexpected key type", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			sb[types.SuperSysChunkArrayOffset+types.KeyTypeOffset] = types.DevItemKey
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
	})

	t.Run("entry crosses array end", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			le.PutUint32(sb[types.SuperSysChunkArraySizeOffset:],
				types.DiskKeySize+10)
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
	})

	t.Run("zero stripes", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			chunk := sb[types.SuperSysChunkArrayOffset+types.DiskKeySize:]
			le.PutUint16(chunk[types.ChunkNumStripesOffset:], 0)
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
	})

	// A structurally broken chunk surfaces as a superblock corruption
	// report with no leaf slot to cite.
	t.Run("invalid chunk", func(t *testing.T) {
		sb, err := ReadSuperblock(buildImage(func(sb []byte) {
			chunk := sb[types.SuperSysChunkArrayOffset+types.DiskKeySize:]
			le.PutUint64(chunk[types.ChunkStripeLenOffset:], 4096)
		}))
		require.NoError(t, err)

		_, err = sb.CheckSysChunkArray()
		require.Error(t, err)
		ce, ok := treechecker.IsCorruption(err)
		require.True(t, ok, "expected a corruption report, got %v", err)
		assert.True(t, ce.IsSuperblock)
		assert.Equal(t, -1, ce.Slot)
		assert.Equal(t, treechecker.ReasonOutOfRangeValue, ce.Reason)
	})
}
