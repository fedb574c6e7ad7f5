package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// fileExtentEnd computes the exclusive end of the file range an extent
// data item covers. Inline extents cover their ram bytes rounded up to a
// sector; regular extents cover exactly num_bytes.
func fileExtentEnd(fs *types.FsInfo, r *itemReader, key types.Key) uint64 {
	if r.u8(types.FileExtentTypeOffset) == types.FileExtentInline {
		return alignUp(key.Offset+r.u64(types.FileExtentRamBytesOffset), fs.SectorSize)
	}
	return key.Offset + r.u64(types.FileExtentNumBytesOffset)
}

func checkExtentDataItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int, prevKey types.Key) error {
	sectorSize := fs.SectorSize

	if !isAligned(key.Offset, sectorSize) {
		return fileExtentErr(leaf, slot, key, ReasonMisalignedValue,
			"unaligned file_offset for file extent, have %d should be aligned to %d",
			key.Offset, sectorSize)
	}

	// The previous key must carry the same objectid (the inode number);
	// it can be an xattr, an inode item or just another extent. A
	// mismatch means a missing inode item.
	if err := checkPrevIno(leaf, key, slot, prevKey); err != nil {
		return err
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}

	// The item must contain at least the inline header, otherwise the
	// extent type below would be garbage.
	if size < types.FileExtentInlineDataStart {
		return fileExtentErr(leaf, slot, key, ReasonBadItemSize,
			"invalid item size, have %d expect [%d, %d)",
			size, types.FileExtentInlineDataStart,
			types.LeafDataSize(fs.NodeSize))
	}

	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}

	extentType := r.u8(types.FileExtentTypeOffset)
	compression := r.u8(types.FileExtentCompressionOffset)
	encryption := r.u8(types.FileExtentEncryptionOffset)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}

	if extentType >= types.NrFileExtentTypes {
		return fileExtentErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid type for file extent, have %d expect range [0, %d]",
			extentType, types.NrFileExtentTypes-1)
	}

	// New compression or encryption schemes must come with an incompat
	// bit and get rejected before the tree is ever read.
	if compression >= types.NrCompressTypes {
		return fileExtentErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid compression for file extent, have %d expect range [0, %d]",
			compression, types.NrCompressTypes-1)
	}
	if encryption != 0 {
		return fileExtentErr(leaf, slot, key, ReasonOutOfRangeValue,
			"invalid encryption for file extent, have %d expect 0", encryption)
	}

	if extentType == types.FileExtentInline {
		// Inline extents always start at file offset 0.
		if key.Offset != 0 {
			return fileExtentErr(leaf, slot, key, ReasonBadKeyValue,
				"invalid file_offset for inline file extent, have %d expect 0",
				key.Offset)
		}

		// Compressed inline extents have no fixed on-disk size.
		if compression != types.CompressNone {
			return nil
		}

		// Uncompressed inline data size must match the item size.
		ramBytes := r.u64(types.FileExtentRamBytesOffset)
		if err := r.err(); err != nil {
			return accessErr(leaf, slot, err)
		}
		if uint64(size) != types.FileExtentInlineDataStart+ramBytes {
			return fileExtentErr(leaf, slot, key, ReasonBadItemSize,
				"invalid ram_bytes for uncompressed inline extent, have %d expect %d",
				size, types.FileExtentInlineDataStart+ramBytes)
		}
		return nil
	}

	// Regular and preallocated extents have a fixed item size.
	if size != types.FileExtentItemSize {
		return fileExtentErr(leaf, slot, key, ReasonBadItemSize,
			"invalid item size for reg/prealloc file extent, have %d expect %d",
			size, types.FileExtentItemSize)
	}

	aligned := []struct {
		name string
		off  uint32
	}{
		{"ram_bytes", types.FileExtentRamBytesOffset},
		{"disk_bytenr", types.FileExtentDiskBytenrOffset},
		{"disk_num_bytes", types.FileExtentDiskNumBytesOffset},
		{"offset", types.FileExtentOffsetOffset},
		{"num_bytes", types.FileExtentNumBytesOffset},
	}
	for _, field := range aligned {
		v := r.u64(field.off)
		if err := r.err(); err != nil {
			return accessErr(leaf, slot, err)
		}
		if !isAligned(v, sectorSize) {
			return fileExtentErr(leaf, slot, key, ReasonMisalignedValue,
				"invalid %s for file extent, have %d, should be aligned to %d",
				field.name, v, sectorSize)
		}
	}

	// Catch extent end overflow.
	numBytes := r.u64(types.FileExtentNumBytesOffset)
	if err := r.err(); err != nil {
		return accessErr(leaf, slot, err)
	}
	if key.Offset+numBytes < key.Offset {
		return fileExtentErr(leaf, slot, key, ReasonOverflow,
			"extent end overflow, have file offset %d extent num bytes %d",
			key.Offset, numBytes)
	}

	// No two consecutive file extent items in the same leaf may present
	// overlapping file ranges.
	if slot > 0 && prevKey.ObjectID == key.ObjectID &&
		prevKey.Type == types.ExtentDataKey {
		prev, err := newItemReader(leaf, slot-1)
		if err != nil {
			return accessErr(leaf, slot-1, err)
		}
		prevEnd := fileExtentEnd(fs, prev, prevKey)
		if err := prev.err(); err != nil {
			return accessErr(leaf, slot-1, err)
		}
		if prevEnd > key.Offset {
			return fileExtentErr(leaf, slot-1, prevKey, ReasonOverlappingRange,
				"file extent end range (%d) goes beyond start offset (%d) of the next file extent",
				prevEnd, key.Offset)
		}
	}

	return nil
}

func checkCsumItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int, prevKey types.Key) error {
	sectorSize := fs.SectorSize
	csumSize := fs.CsumSize

	if key.ObjectID != types.ExtentCsumObjectID {
		return keyed(corrupt(leaf, slot, ReasonBadKeyValue,
			"invalid key objectid for csum item, have %d expect %d",
			key.ObjectID, types.ExtentCsumObjectID), key)
	}
	if !isAligned(key.Offset, sectorSize) {
		return keyed(corrupt(leaf, slot, ReasonMisalignedValue,
			"unaligned key offset for csum item, have %d should be aligned to %d",
			key.Offset, sectorSize), key)
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	if uint64(size)%uint64(csumSize) != 0 {
		return keyed(corrupt(leaf, slot, ReasonMisalignedValue,
			"unaligned item size for csum item, have %d should be aligned to %d",
			size, csumSize), key)
	}

	// Consecutive csum items cover contiguous sector runs and must not
	// overlap.
	if slot > 0 && prevKey.Type == types.ExtentCsumKey {
		prevSize, err := itemSize(leaf, slot-1)
		if err != nil {
			return accessErr(leaf, slot-1, err)
		}
		prevEnd := prevKey.Offset +
			uint64(prevSize)/uint64(csumSize)*uint64(sectorSize)
		if prevEnd > key.Offset {
			return keyed(corrupt(leaf, slot-1, ReasonOverlappingRange,
				"csum end range (%d) goes beyond the start range (%d) of the next csum item",
				prevEnd, key.Offset), prevKey)
		}
	}

	return nil
}
