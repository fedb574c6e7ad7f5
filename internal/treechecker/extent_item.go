package treechecker

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// extentErr prefixes the extent coordinates: the key objectid is the
// extent's bytenr, the length is the key offset except for the
// nodesize-implied key types.
func extentErr(fs *types.FsInfo, eb *extentbuffer.ExtentBuffer, slot int,
	key types.Key, reason Reason, format string, args ...interface{}) *CorruptionError {
	length := key.Offset
	switch key.Type {
	case types.MetadataItemKey, types.TreeBlockRefKey, types.SharedBlockRefKey:
		length = uint64(fs.NodeSize)
	}
	return keyed(corrupt(eb, slot, reason, "extent bytenr=%d len=%d %s",
		key.ObjectID, length, fmt.Sprintf(format, args...)), key)
}

// checkExtentItem validates ExtentItemKey and MetadataItemKey payloads:
// the fixed header, the optional tree block info, and the inline
// back-reference list that must exactly fill the item.
func checkExtentItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	if key.Type == types.MetadataItemKey &&
		!fs.HasIncompatFeature(types.FeatureIncompatSkinnyMetadata) {
		return keyed(corrupt(leaf, slot, ReasonBadKeyValue,
			"invalid key type, METADATA_ITEM type invalid when SKINNY_METADATA feature disabled"), key)
	}

	// The key objectid is the bytenr for both key types.
	if !isAligned(key.ObjectID, fs.SectorSize) {
		return keyed(corrupt(leaf, slot, ReasonMisalignedValue,
			"invalid key objectid, have %d expect to be aligned to %d",
			key.ObjectID, fs.SectorSize), key)
	}

	// The key offset is the tree level for MetadataItemKey.
	if key.Type == types.MetadataItemKey && key.Offset >= types.MaxLevel {
		return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
			"invalid tree level, have %d expect [0, %d]",
			key.Offset, types.MaxLevel-1)
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size < types.ExtentItemSize {
		return extentErr(fs, leaf, slot, key, ReasonBadItemSize,
			"invalid item size, have %d expect [%d, %d)",
			size, types.ExtentItemSize, types.LeafDataSize(fs.NodeSize))
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	totalRefs := r.u64(types.ExtentItemRefsOffset)
	generation := r.u64(types.ExtentItemGenerationOffset)
	flags := r.u64(types.ExtentItemFlagsOffset)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	if generation > fs.Generation+1 {
		return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
			"invalid generation, have %d expect (0, %d]",
			generation, fs.Generation+1)
	}
	if !hasSingleBit(flags & (types.ExtentFlagData | types.ExtentFlagTreeBlock)) {
		return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
			"invalid extent flag, have 0x%x expect 1 bit set in 0x%x",
			flags, types.ExtentFlagData|types.ExtentFlagTreeBlock)
	}

	isTreeBlock := flags&types.ExtentFlagTreeBlock != 0
	if isTreeBlock {
		if key.Type == types.ExtentItemKey && key.Offset != uint64(fs.NodeSize) {
			return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
				"invalid extent length, have %d expect %d",
				key.Offset, fs.NodeSize)
		}
	} else {
		if key.Type != types.ExtentItemKey {
			return extentErr(fs, leaf, slot, key, ReasonBadKeyValue,
				"invalid key type, have %d expect %d for data backref",
				key.Type, types.ExtentItemKey)
		}
		if !isAligned(key.Offset, fs.SectorSize) {
			return extentErr(fs, leaf, slot, key, ReasonMisalignedValue,
				"invalid extent length, have %d expect aligned to %d",
				key.Offset, fs.SectorSize)
		}
		if flags&types.BlockFlagFullBackref != 0 {
			return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
				"invalid extent flag, data has full backref set")
		}
	}

	// The item is the fixed header, a tree block info for non-skinny
	// tree extents, then zero or more inline refs, each a 9 byte header
	// optionally followed by type-specific payload.
	ptr := uint32(types.ExtentItemSize)
	if isTreeBlock && key.Type != types.MetadataItemKey {
		if ptr+types.TreeBlockInfoSize > size {
			return extentErr(fs, leaf, slot, key, ReasonBadItemSize,
				"tree block info overflows extent item, ptr %d end %d", ptr, size)
		}
		level := r.u8(ptr + types.TreeBlockInfoLevelOffset)
		if err := r.err(); err != nil {
			return accessErr(leaf, slot, err)
		}
		if level >= types.MaxLevel {
			return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
				"invalid tree block info level, have %d expect [0, %d]",
				level, types.MaxLevel-1)
		}
		ptr += types.TreeBlockInfoSize
	}

	var inlineRefs uint64
	for ptr < size {
		if ptr+types.InlineRefHeaderSize > size {
			return extentErr(fs, leaf, slot, key, ReasonBadItemSize,
				"inline ref item overflows extent item, ptr %d iref size %d end %d",
				ptr, types.InlineRefHeaderSize, size)
		}
		inlineType := r.u8(ptr + types.InlineRefTypeOffset)
		inlineOffset := r.u64(ptr + types.InlineRefOffsetOffset)
		if err := r.err(); err != nil {
			return accessErr(leaf, slot, err)
		}

		refSize := types.InlineRefSize(inlineType)
		if refSize == 0 {
			return extentErr(fs, leaf, slot, key, ReasonOutOfRangeValue,
				"unknown inline ref type: %d", inlineType)
		}
		if ptr+refSize > size {
			return extentErr(fs, leaf, slot, key, ReasonBadItemSize,
				"inline ref item overflows extent item, ptr %d iref size %d end %d",
				ptr, refSize, size)
		}

		switch inlineType {
		case types.TreeBlockRefKey:
			// The offset is the owning subvolume id, nothing to check.
			inlineRefs++
		case types.SharedBlockRefKey:
			// The offset is the parent block's bytenr.
			if !isAligned(inlineOffset, fs.SectorSize) {
				return extentErr(fs, leaf, slot, key, ReasonMisalignedValue,
					"invalid tree parent bytenr, have %d expect aligned to %d",
					inlineOffset, fs.SectorSize)
			}
			inlineRefs++
		case types.ExtentDataRefKey:
			// Owner subvolume, owner objectid and adjusted offset;
			// only the offset has an obvious corruption mode.
			drefBase := ptr + types.InlineRefTypeOffset + 1
			drefOffset := r.u64(drefBase + types.ExtentDataRefOffsetOffset)
			drefCount := r.u32(drefBase + types.ExtentDataRefCountOffset)
			if err := r.err(); err != nil {
				return accessErr(leaf, slot, err)
			}
			if !isAligned(drefOffset, fs.SectorSize) {
				return extentErr(fs, leaf, slot, key, ReasonMisalignedValue,
					"invalid data ref offset, have %d expect aligned to %d",
					drefOffset, fs.SectorSize)
			}
			inlineRefs += uint64(drefCount)
		case types.SharedDataRefKey:
			srefCount := r.u32(ptr + types.InlineRefHeaderSize)
			if err := r.err(); err != nil {
				return accessErr(leaf, slot, err)
			}
			if !isAligned(inlineOffset, fs.SectorSize) {
				return extentErr(fs, leaf, slot, key, ReasonMisalignedValue,
					"invalid data parent bytenr, have %d expect aligned to %d",
					inlineOffset, fs.SectorSize)
			}
			inlineRefs += uint64(srefCount)
		}
		ptr += refSize
	}

	// No padding is allowed after the last inline ref.
	if ptr != size {
		return extentErr(fs, leaf, slot, key, ReasonBadItemSize,
			"invalid extent item size, padding bytes found")
	}

	if inlineRefs > totalRefs {
		return extentErr(fs, leaf, slot, key, ReasonRefCountMismatch,
			"invalid extent refs, have %d expect >= inline %d",
			totalRefs, inlineRefs)
	}
	return nil
}
