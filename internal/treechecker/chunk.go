package treechecker

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// chunkErr reports against the chunk's logical start; slot is -1 when
// the chunk comes from the superblock's system chunk array, which has no
// leaf slot to cite.
func chunkErr(eb *extentbuffer.ExtentBuffer, slot int, logical uint64,
	reason Reason, format string, args ...interface{}) *CorruptionError {
	err := corrupt(eb, slot, reason, "chunk_start=%d, %s",
		logical, fmt.Sprintf(format, args...))
	if slot < 0 {
		err.IsSuperblock = true
		err.Owner = types.ChunkTreeObjectID
	}
	return err
}

// CheckChunk validates one chunk descriptor at the block-relative offset
// chunkOff. It is shared between the chunk tree leaf checker and the
// superblock's embedded system chunk array, which stores bare chunks
// with no item wrapper; pass slot -1 for the latter.
func CheckChunk(fs *types.FsInfo, eb *extentbuffer.ExtentBuffer,
	chunkOff uint32, logical uint64, slot int) error {
	r := &itemReader{eb: eb, base: chunkOff}

	length := r.u64(types.ChunkLengthOffset)
	stripeLen := r.u64(types.ChunkStripeLenOffset)
	chunkType := r.u64(types.ChunkTypeOffset)
	chunkSectorSize := r.u32(types.ChunkSectorSizeOffset)
	numStripes := r.u16(types.ChunkNumStripesOffset)
	subStripes := r.u16(types.ChunkSubStripesOffset)
	if err := r.err(); err != nil {
		return accessErr(eb, slot, err)
	}

	raid := types.RaidArray[types.RaidIndex(chunkType)]

	if numStripes == 0 {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk num_stripes, have %d", numStripes)
	}
	if numStripes < raid.Ncopies {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk num_stripes < ncopies, have %d < %d",
			numStripes, raid.Ncopies)
	}
	if raid.Nparity != 0 && numStripes == raid.Nparity {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk num_stripes == nparity, have %d == %d",
			numStripes, raid.Nparity)
	}
	if !isAligned(logical, fs.SectorSize) {
		return chunkErr(eb, slot, logical, ReasonMisalignedValue,
			"invalid chunk logical, have %d should be aligned to %d",
			logical, fs.SectorSize)
	}
	if chunkSectorSize != fs.SectorSize {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk sectorsize, have %d expect %d",
			chunkSectorSize, fs.SectorSize)
	}
	if length == 0 || !isAligned(length, fs.SectorSize) {
		return chunkErr(eb, slot, logical, ReasonMisalignedValue,
			"invalid chunk length, have %d", length)
	}
	if logical+length < logical {
		return chunkErr(eb, slot, logical, ReasonOverflow,
			"invalid chunk logical start and length, have logical start %d length %d",
			logical, length)
	}
	if !hasSingleBit(stripeLen) || stripeLen != types.StripeLen {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk stripe length: %d", stripeLen)
	}
	if chunkType&^(types.BlockGroupTypeMask|types.BlockGroupProfileMask) != 0 {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"unrecognized chunk type: 0x%x",
			chunkType&^(types.BlockGroupTypeMask|types.BlockGroupProfileMask))
	}

	profile := chunkType & types.BlockGroupProfileMask
	if profile != 0 && !hasSingleBit(profile) {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid chunk profile flag: 0x%x, expect 0 or 1 bit set", profile)
	}
	if chunkType&types.BlockGroupTypeMask == 0 {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"missing chunk type flag, have 0x%x one bit must be set in 0x%x",
			chunkType, types.BlockGroupTypeMask)
	}
	if chunkType&types.BlockGroupSystem != 0 &&
		chunkType&(types.BlockGroupMetadata|types.BlockGroupData) != 0 {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"system chunk with data or metadata type: 0x%x", chunkType)
	}

	mixed := fs.HasIncompatFeature(types.FeatureIncompatMixedGroups)
	if !mixed && chunkType&types.BlockGroupMetadata != 0 &&
		chunkType&types.BlockGroupData != 0 {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"mixed chunk type in non-mixed mode: 0x%x", chunkType)
	}

	if (chunkType&types.BlockGroupRaid10 != 0 && subStripes != 2) ||
		(chunkType&types.BlockGroupRaid1 != 0 && numStripes != 2) ||
		(chunkType&types.BlockGroupRaid5 != 0 && numStripes < 2) ||
		(chunkType&types.BlockGroupRaid6 != 0 && numStripes < 3) ||
		(chunkType&types.BlockGroupDup != 0 && numStripes != 2) ||
		(profile == 0 && numStripes != 1) {
		return chunkErr(eb, slot, logical, ReasonOutOfRangeValue,
			"invalid num_stripes:sub_stripes %d:%d for profile %d",
			numStripes, subStripes, profile)
	}

	return nil
}

// checkLeafChunkItem adds the item-size checks CheckChunk cannot do for
// the superblock array, then delegates to it.
func checkLeafChunkItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size < types.ChunkHeaderSize {
		return chunkErr(leaf, slot, key.Offset, ReasonBadItemSize,
			"invalid chunk item size: have %d expect [%d, %d)",
			size, types.ChunkHeaderSize, types.LeafDataSize(fs.NodeSize))
	}

	chunkOff, err := itemDataStart(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	numStripes, err := leaf.GetU16(chunkOff + types.ChunkNumStripesOffset)
	if err != nil {
		return accessErr(leaf, slot, err)
	}

	// Zero stripes gets its dedicated diagnostic from CheckChunk.
	if numStripes != 0 && types.ChunkItemSize(int(numStripes)) != size {
		return chunkErr(leaf, slot, key.Offset, ReasonBadItemSize,
			"invalid chunk item size: have %d expect %d",
			size, types.ChunkItemSize(int(numStripes)))
	}

	return CheckChunk(fs, leaf, chunkOff, key.Offset, slot)
}
