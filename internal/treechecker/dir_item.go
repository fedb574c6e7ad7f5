package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// checkInodeKey validates a key that must address an inode item: either
// the slot's own key for an inode item or the location key embedded in a
// directory entry. itemKey is the slot's key, checked is the key under
// test (they are the same for an inode item).
func checkInodeKey(leaf *extentbuffer.ExtentBuffer, itemKey, checked types.Key,
	slot int) error {
	isInodeItem := itemKey.Type == types.InodeItemKey

	// An xattr entry's location key is unused and must be all zero.
	if itemKey.Type == types.XattrItemKey {
		if checked.ObjectID != 0 || checked.Type != 0 || checked.Offset != 0 {
			return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
				"invalid location key for xattr, have (%d %d %d) expect all zero",
				checked.ObjectID, checked.Type, checked.Offset)
		}
		return nil
	}

	if (checked.ObjectID < types.FirstFreeObjectID ||
		checked.ObjectID > types.LastFreeObjectID) &&
		checked.ObjectID != types.RootTreeDirObjectID &&
		checked.ObjectID != types.FreeInoObjectID {
		if isInodeItem {
			return keyed(corrupt(leaf, slot, ReasonBadKeyValue,
				"invalid key objectid: has %d expect %d or [%d, %d] or %d",
				checked.ObjectID, types.RootTreeDirObjectID,
				types.FirstFreeObjectID, types.LastFreeObjectID,
				types.FreeInoObjectID), itemKey)
		}
		return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
			"invalid location key objectid: has %d expect %d or [%d, %d] or %d",
			checked.ObjectID, types.RootTreeDirObjectID,
			types.FirstFreeObjectID, types.LastFreeObjectID,
			types.FreeInoObjectID)
	}
	if checked.Offset != 0 {
		if isInodeItem {
			return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
				"invalid key offset: has %d expect 0", checked.Offset)
		}
		return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
			"invalid location key offset: has %d expect 0", checked.Offset)
	}
	return nil
}

// checkRootKey validates a key that must address a root item: the slot's
// own key for a root item or a directory entry's location key pointing
// at a subvolume.
func checkRootKey(leaf *extentbuffer.ExtentBuffer, itemKey, checked types.Key,
	slot int) error {
	isRootItem := itemKey.Type == types.RootItemKey

	// There is no tree id 0.
	if checked.ObjectID == 0 {
		if isRootItem {
			return keyed(corrupt(leaf, slot, ReasonBadKeyValue,
				"invalid root id 0"), itemKey)
		}
		return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
			"invalid location key root id 0")
	}

	// Directory entries may only point at subvolume trees.
	if !types.IsFSTree(checked.ObjectID) && !isRootItem {
		return dirItemErr(leaf, slot, itemKey, ReasonBadKeyValue,
			"invalid location key objectid, have %d expect [%d, %d]",
			checked.ObjectID, types.FirstFreeObjectID,
			types.LastFreeObjectID)
	}

	// A root item with a non-zero offset is a snapshot created at that
	// transid, and a location key's offset is always -1, so the only
	// offset worth checking is the reloc tree's, which must name a
	// valid tree.
	if checked.ObjectID == types.TreeRelocObjectID && checked.Offset == 0 {
		return keyed(corrupt(leaf, slot, ReasonBadKeyValue,
			"invalid root id 0 for reloc tree"), itemKey)
	}
	return nil
}

// checkDirItem walks the packed sequence of directory entry records
// inside one DirItemKey / DirIndexKey / XattrItemKey item.
func checkDirItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int, prevKey types.Key) error {
	if err := checkPrevIno(leaf, key, slot, prevKey); err != nil {
		return err
	}

	size, err := itemSize(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}
	r, err := newItemReader(leaf, slot)
	if err != nil {
		return accessErr(leaf, slot, err)
	}

	for cur := uint32(0); cur < size; {
		// The record header itself must not cross the item boundary.
		if cur+types.DirItemHeaderSize > size {
			return dirItemErr(leaf, slot, key, ReasonBadItemSize,
				"dir item header crosses item boundary, have %d boundary %d",
				cur+types.DirItemHeaderSize, size)
		}

		location := r.key(cur + types.DirItemLocationOffset)
		dirType := r.u8(cur + types.DirItemTypeOffset)
		nameLen := uint32(r.u16(cur + types.DirItemNameLenOffset))
		dataLen := uint32(r.u16(cur + types.DirItemDataLenOffset))
		if err := r.err(); err != nil {
			return accessErr(leaf, slot, err)
		}

		switch location.Type {
		case types.RootItemKey:
			if err := checkRootKey(leaf, key, location, slot); err != nil {
				return err
			}
		case types.InodeItemKey, 0:
			if err := checkInodeKey(leaf, key, location, slot); err != nil {
				return err
			}
		default:
			return dirItemErr(leaf, slot, key, ReasonBadKeyValue,
				"invalid location key type, have %d, expect %d or %d",
				location.Type, types.RootItemKey, types.InodeItemKey)
		}

		if dirType >= types.FtMax {
			return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
				"invalid dir item type, have %d expect [0, %d)",
				dirType, types.FtMax)
		}
		if key.Type == types.XattrItemKey && dirType != types.FtXattr {
			return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
				"invalid dir item type for XATTR key, have %d expect %d",
				dirType, types.FtXattr)
		}
		if dirType == types.FtXattr && key.Type != types.XattrItemKey {
			return dirItemErr(leaf, slot, key, ReasonOutOfRangeValue,
				"xattr dir type found for non-XATTR key")
		}

		maxNameLen := uint32(types.NameLen)
		if dirType == types.FtXattr {
			maxNameLen = types.XattrNameMax
		}
		if nameLen > maxNameLen {
			return dirItemErr(leaf, slot, key, ReasonBadItemSize,
				"dir item name len too long, have %d max %d",
				nameLen, maxNameLen)
		}
		if nameLen+dataLen > types.MaxXattrSize(fs.NodeSize) {
			return dirItemErr(leaf, slot, key, ReasonBadItemSize,
				"dir item name and data len too long, have %d max %d",
				nameLen+dataLen, types.MaxXattrSize(fs.NodeSize))
		}
		if dataLen != 0 && dirType != types.FtXattr {
			return dirItemErr(leaf, slot, key, ReasonBadItemSize,
				"dir item with invalid data len, have %d expect 0", dataLen)
		}

		totalSize := types.DirItemHeaderSize + nameLen + dataLen

		// Header plus name and data must also stay inside the item.
		if cur+totalSize > size {
			return dirItemErr(leaf, slot, key, ReasonBadItemSize,
				"dir item data crosses item boundary, have %d boundary %d",
				cur+totalSize, size)
		}

		// For DirItemKey and XattrItemKey the key offset is the name
		// hash and must match the stored name.
		if key.Type == types.DirItemKey || key.Type == types.XattrItemKey {
			name := r.bytes(cur+types.DirItemHeaderSize, nameLen)
			if err := r.err(); err != nil {
				return accessErr(leaf, slot, err)
			}
			if hash := checksums.NameHash(name); key.Offset != hash {
				return dirItemErr(leaf, slot, key, ReasonHashMismatch,
					"name hash mismatch with key, have 0x%016x expect 0x%016x",
					hash, key.Offset)
			}
		}

		cur += totalSize
	}
	return nil
}
