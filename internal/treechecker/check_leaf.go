package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// The tree checker catches unexpected or corrupted tree block data, from
// fuzzed images as well as bugs, when a block is read from disk. It
// checks every reachable member so no other code needs to re-validate
// them. Checks rely only on the block's own bytes plus the trusted
// superblock context; they never mutate the block and never perform I/O.

// CheckLeafFull validates a leaf's structure and every item payload.
// Intended for freshly read, untrusted blocks.
func CheckLeafFull(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer) error {
	return checkLeaf(fs, leaf, true)
}

// CheckLeafRelaxed validates key ordering and item packing only,
// skipping the per-item payload checks. Intended for hot paths that
// already trust item contents.
func CheckLeafRelaxed(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer) error {
	return checkLeaf(fs, leaf, false)
}

func checkLeaf(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer, checkItemData bool) error {
	if level := leaf.Level(); level != 0 {
		return corrupt(leaf, -1, ReasonInvalidLevel,
			"invalid level for leaf, have %d expect 0", level)
	}

	nritems := leaf.NrItems()

	// Blocks of a relocation tree carry the owner of the subvolume they
	// were cloned from, so the required-tree emptiness rule cannot be
	// applied to them.
	if nritems == 0 && !leaf.HeaderFlag(types.HeaderFlagReloc) {
		owner := leaf.Owner()
		switch owner {
		case types.RootTreeObjectID, types.ChunkTreeObjectID,
			types.ExtentTreeObjectID, types.DevTreeObjectID,
			types.FSTreeObjectID, types.DataRelocObjectID:
			return corrupt(leaf, -1, ReasonEmptyRequiredTree,
				"invalid root, root %d must never be empty", owner)
		case 0:
			return corrupt(leaf, -1, ReasonUnknownOwner,
				"invalid owner, root 0 is not defined")
		}
		return nil
	}
	if nritems == 0 {
		return nil
	}

	// Verify, in order per slot:
	// 1) key ordering
	// 2) item offset and size: no overlap, no hole, all inside the leaf
	// 3) item content, when deep checks are requested
	leafDataSize := types.LeafDataSize(fs.NodeSize)
	var prevKey types.Key // zero key sorts before any valid key
	for slot := 0; slot < int(nritems); slot++ {
		key, err := itemKey(leaf, slot)
		if err != nil {
			return accessErr(leaf, slot, err)
		}

		if prevKey.Compare(key) >= 0 {
			return corrupt(leaf, slot, ReasonBadKeyOrder,
				"bad key order, prev (%d %d %d) current (%d %d %d)",
				prevKey.ObjectID, prevKey.Type, prevKey.Offset,
				key.ObjectID, key.Type, key.Offset)
		}

		// Item data is packed from the end of the leaf toward the
		// front: slot 0 ends at the data area end, every later slot
		// ends where its predecessor starts.
		var itemEndExpected uint64
		if slot == 0 {
			itemEndExpected = uint64(leafDataSize)
		} else {
			prevOffset, err := itemOffset(leaf, slot-1)
			if err != nil {
				return accessErr(leaf, slot, err)
			}
			itemEndExpected = uint64(prevOffset)
		}
		end, err := itemEnd(leaf, slot)
		if err != nil {
			return accessErr(leaf, slot, err)
		}
		if end != itemEndExpected {
			return corrupt(leaf, slot, ReasonBadItemPacking,
				"unexpected item end, have %d expect %d",
				end, itemEndExpected)
		}

		// Items could be consistent with each other but still point
		// past the leaf as a group.
		if end > uint64(leafDataSize) {
			return corrupt(leaf, slot, ReasonItemOutOfBounds,
				"slot end outside of leaf, have %d expect range [0, %d]",
				end, leafDataSize)
		}

		if checkItemData {
			if err := checkLeafItem(fs, leaf, key, slot, prevKey); err != nil {
				return err
			}
		}

		prevKey = key
	}

	return nil
}

// checkLeafItem dispatches to the item-type specific checker. Key types
// without a checker are accepted as-is.
func checkLeafItem(fs *types.FsInfo, leaf *extentbuffer.ExtentBuffer,
	key types.Key, slot int, prevKey types.Key) error {
	switch key.Type {
	case types.ExtentDataKey:
		return checkExtentDataItem(fs, leaf, key, slot, prevKey)
	case types.ExtentCsumKey:
		return checkCsumItem(fs, leaf, key, slot, prevKey)
	case types.DirItemKey, types.DirIndexKey, types.XattrItemKey:
		return checkDirItem(fs, leaf, key, slot, prevKey)
	case types.InodeRefKey:
		return checkInodeRef(fs, leaf, key, slot, prevKey)
	case types.BlockGroupItemKey:
		return checkBlockGroupItem(fs, leaf, key, slot)
	case types.ChunkItemKey:
		return checkLeafChunkItem(fs, leaf, key, slot)
	case types.DevItemKey:
		return checkDevItem(fs, leaf, key, slot)
	case types.InodeItemKey:
		return checkInodeItem(fs, leaf, key, slot)
	case types.RootItemKey:
		return checkRootItem(fs, leaf, key, slot)
	case types.ExtentItemKey, types.MetadataItemKey:
		return checkExtentItem(fs, leaf, key, slot)
	case types.TreeBlockRefKey, types.SharedDataRefKey, types.SharedBlockRefKey:
		return checkSimpleKeyedRefs(fs, leaf, key, slot)
	case types.ExtentDataRefKey:
		return checkExtentDataRef(fs, leaf, key, slot)
	}
	return nil
}

// checkPrevIno ensures the current and previous keys share an objectid
// (inode number), catching a missing inode item in subvolume trees.
// Returns nil when everything is fine or the check does not apply.
func checkPrevIno(leaf *extentbuffer.ExtentBuffer, key types.Key, slot int,
	prevKey types.Key) error {
	// No previous key to compare against.
	if slot == 0 {
		return nil
	}
	// Only subvolume trees and their reloc trees order items by inode;
	// trees like the log tree do not follow the requirement.
	if !types.IsFSTree(leaf.Owner()) {
		return nil
	}
	if key.ObjectID == prevKey.ObjectID {
		return nil
	}
	return dirItemErr(leaf, slot, key, ReasonBadKeyValue,
		"invalid previous key objectid, have %d expect %d",
		prevKey.ObjectID, key.ObjectID)
}
