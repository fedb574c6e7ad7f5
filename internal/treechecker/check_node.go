package treechecker

import (
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// CheckNode validates an internal node: its level, that it is not empty,
// and for every consecutive sibling pair that the child pointer is
// usable and the keys strictly increase.
func CheckNode(fs *types.FsInfo, node *extentbuffer.ExtentBuffer) error {
	level := node.Level()
	if level == 0 || level >= types.MaxLevel {
		return corrupt(node, -1, ReasonInvalidLevel,
			"invalid level for node, have %d expect [1, %d]",
			level, types.MaxLevel-1)
	}

	nr := node.NrItems()
	if nr == 0 {
		return corrupt(node, -1, ReasonEmptyNode, "have 0 items")
	}

	for slot := 0; slot < int(nr)-1; slot++ {
		bytenr, err := nodeBlockptr(node, slot)
		if err != nil {
			return accessErr(node, slot, err)
		}
		key, err := nodeKey(node, slot)
		if err != nil {
			return accessErr(node, slot, err)
		}
		nextKey, err := nodeKey(node, slot+1)
		if err != nil {
			return accessErr(node, slot+1, err)
		}

		if bytenr == 0 {
			return corrupt(node, slot, ReasonNullPointer,
				"invalid NULL node pointer")
		}
		if !isAligned(bytenr, fs.SectorSize) {
			return corrupt(node, slot, ReasonMisalignedValue,
				"unaligned pointer, have %d should be aligned to %d",
				bytenr, fs.SectorSize)
		}

		if key.Compare(nextKey) >= 0 {
			return corrupt(node, slot, ReasonBadKeyOrder,
				"bad key order, current (%d %d %d) next (%d %d %d)",
				key.ObjectID, key.Type, key.Offset,
				nextKey.ObjectID, nextKey.Type, nextKey.Offset)
		}
	}

	return nil
}
