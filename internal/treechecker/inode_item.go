package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func checkInodeItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	if err := checkInodeKey(leaf, key, key, slot); err != nil {
		return err
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size != types.InodeItemSize {
		return dirItemErr(leaf, slot, key, ReasonBadItemSize,
			"invalid item size, have %d expect %d", size, types.InodeItemSize)
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	generation := r.u64(types.InodeItemGenerationOffset)
	transid := r.u64(types.InodeItemTransidOffset)
	mode := r.u32(types.InodeItemModeOffset)
	nlink := r.u32(types.InodeItemNlinkOffset)
	flags := r.u64(types.InodeItemFlagsOffset)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	// Generation + 1 accounts for items replayed from the log tree.
	superGen := fs.Generation
	if generation > superGen+1 {
		return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid inode generation: has %d expect (0, %d]",
			generation, superGen+1)
	}
	// mkfs may leave the root dir item's transid at 0.
	if transid > superGen+1 {
		return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid inode transid: has %d expect [0, %d]",
			transid, superGen+1)
	}

	// Size and nbytes are deliberately not checked: a directory's can
	// drift without affecting anything in the filesystem.
	if mode&^types.ModeValidMask != 0 {
		return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"unknown mode bit detected: 0o%o", mode&^types.ModeValidMask)
	}

	// The format bits are not one-hot encoded, so a single-bit check
	// covers FIFO/CHR/DIR/REG and the compound LNK/BLK/SOCK values
	// need listing explicitly.
	fmtBits := mode & types.ModeFmt
	if !hasSingleBit(uint64(fmtBits)) {
		if fmtBits != types.ModeLnk && fmtBits != types.ModeBlk &&
			fmtBits != types.ModeSock {
			return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
				"invalid mode: has 0o%o expect valid format bits", fmtBits)
		}
	}
	if fmtBits == types.ModeDir && nlink > 1 {
		return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid nlink: has %d expect no more than 1 for dir", nlink)
	}
	if flags&^types.InodeFlagMask != 0 {
		return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
			"unknown flags detected: 0x%x", flags&^types.InodeFlagMask)
	}
	return nil
}

func checkRootItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int) error {
	if err := checkRootKey(leaf, key, key, slot); err != nil {
		return err
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if size != types.RootItemSize && size != types.RootItemLegacySize {
		return keyed(corrupt(leaf, slot, ReasonBadItemSize,
			"invalid root item size, have %d expect %d or %d",
			size, types.RootItemSize, types.RootItemLegacySize), key)
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	generation := r.u64(types.RootItemGenerationOffset)
	bytenr := r.u64(types.RootItemBytenrOffset)
	lastSnapshot := r.u64(types.RootItemLastSnapshotOffset)
	flags := r.u64(types.RootItemFlagsOffset)
	dropLevel := r.u8(types.RootItemDropLevelOffset)
	level := r.u8(types.RootItemLevelOffset)

	// Legacy root items stop before the v2 fields, which then read as
	// zero and still pass the generation bound.
	var generationV2 uint64
	if size == types.RootItemSize {
		generationV2 = r.u64(types.RootItemGenerationV2Offset)
	}
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	superGen := fs.Generation
	if generation > superGen+1 {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root generation, have %d expect (0, %d]",
			generation, superGen+1), key)
	}
	if generationV2 > superGen+1 {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root v2 generation, have %d expect (0, %d]",
			generationV2, superGen+1), key)
	}
	if lastSnapshot > superGen+1 {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root last_snapshot, have %d expect (0, %d]",
			lastSnapshot, superGen+1), key)
	}

	if !isAligned(bytenr, fs.SectorSize) {
		return keyed(corrupt(leaf, slot, ReasonMisalignedValue,
			"invalid root bytenr, have %d expect to be aligned to %d",
			bytenr, fs.SectorSize), key)
	}
	if level >= types.MaxLevel {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root level, have %d expect [0, %d]",
			level, types.MaxLevel-1), key)
	}
	if dropLevel >= types.MaxLevel {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root drop level, have %d expect [0, %d]",
			dropLevel, types.MaxLevel-1), key)
	}

	if flags&^uint64(types.RootFlagMask) != 0 {
		return keyed(corrupt(leaf, slot, ReasonOutOfRangeValue,
			"invalid root flags, have 0x%x expect mask 0x%x",
			flags, types.RootFlagMask), key)
	}
	return nil
}
