package treechecker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// devItemErr prefixes the device id carried in the key offset.
func devItemErr(eb *extentbuffer.ExtentBuffer, slot int, key types.Key,
	reason Reason, format string, args ...interface{}) *CorruptionError {
	return keyed(corrupt(eb, slot, reason, "devid=%d %s",
		key.Offset, fmt.Sprintf(format, args...)), key)
}

func checkDevItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	if key.ObjectID != types.DevItemsObjectID {
		return devItemErr(leaf, slot, key, ReasonBadKeyValue,
			"invalid objectid: has=%d expect=%d",
			key.ObjectID, types.DevItemsObjectID)
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size != types.DevItemSize {
		return devItemErr(leaf, slot, key, ReasonBadItemSize,
			"invalid item size: have %d expect %d", size, types.DevItemSize)
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	devid := r.u64(types.DevItemDevidOffset)
	totalBytes := r.u64(types.DevItemTotalBytesOffset)
	bytesUsed := r.u64(types.DevItemBytesUsedOffset)
	rawUUID := r.bytes(types.DevItemUUIDOffset, 16)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	if devid != key.Offset {
		return devItemErr(leaf, slot, key, ReasonBadKeyValue,
			"devid mismatch: key has=%d item has=%d", key.Offset, devid)
	}

	// total_bytes can legitimately be 0 during device removal, so only
	// the used-vs-total relation is checkable here; real size checks
	// belong to the dev extent tree.
	if bytesUsed > totalBytes {
		devUUID, _ := uuid.FromBytes(rawUUID)
		return devItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid bytes used: have %d expect [0, %d] (device %s)",
			bytesUsed, totalBytes, devUUID)
	}

	// The remaining members (io_align, type, generation, dev_group) are
	// not utilized, skip them so later use stays unconstrained.
	return nil
}

// blockGroupErr prefixes the block group's start and length, which live
// in the key.
func blockGroupErr(eb *extentbuffer.ExtentBuffer, slot int, key types.Key,
	reason Reason, format string, args ...interface{}) *CorruptionError {
	return keyed(corrupt(eb, slot, reason, "bg_start=%d bg_len=%d, %s",
		key.ObjectID, key.Offset, fmt.Sprintf(format, args...)), key)
}

func checkBlockGroupItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	// Alignment is the extent allocator's concern; the size is not.
	if key.Offset == 0 {
		return blockGroupErr(leaf, slot, key, ReasonBadKeyValue,
			"invalid block group size 0")
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size != types.BlockGroupItemSize {
		return blockGroupErr(leaf, slot, key, ReasonBadItemSize,
			"invalid item size, have %d expect %d",
			size, types.BlockGroupItemSize)
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	used := r.u64(types.BlockGroupUsedOffset)
	chunkObjectID := r.u64(types.BlockGroupChunkObjectIDOffset)
	flags := r.u64(types.BlockGroupFlagsOffset)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	if chunkObjectID != types.FirstChunkTreeObjectID {
		return blockGroupErr(leaf, slot, key, ReasonBadKeyValue,
			"invalid block group chunk objectid, have %d expect %d",
			chunkObjectID, types.FirstChunkTreeObjectID)
	}
	if used > key.Offset {
		return blockGroupErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid block group used, have %d expect [0, %d)",
			used, key.Offset)
	}

	profile := flags & types.BlockGroupProfileMask
	if profile != 0 && !hasSingleBit(profile) {
		return blockGroupErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid profile flags, have 0x%x expect no more than 1 bit set",
			profile)
	}

	bgType := flags & types.BlockGroupTypeMask
	switch bgType {
	case types.BlockGroupData, types.BlockGroupMetadata,
		types.BlockGroupSystem,
		types.BlockGroupMetadata | types.BlockGroupData:
	default:
		return blockGroupErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid type, have 0x%x expect data, metadata, system or mixed",
			bgType)
	}
	return nil
}
