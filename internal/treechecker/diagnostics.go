package treechecker

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Reason classifies a detected corruption. Every failure the checker can
// produce carries exactly one of these.
type Reason int

const (
	ReasonInvalidLevel Reason = iota + 1
	ReasonEmptyRequiredTree
	ReasonEmptyNode
	ReasonUnknownOwner
	ReasonBadKeyOrder
	ReasonBadItemPacking
	ReasonItemOutOfBounds
	ReasonBadItemSize
	ReasonBadKeyValue
	ReasonMisalignedValue
	ReasonOutOfRangeValue
	ReasonOverlappingRange
	ReasonRefCountMismatch
	ReasonHashMismatch
	ReasonOverflow
	ReasonNullPointer
	ReasonAccessOutOfBounds
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidLevel:
		return "invalid level"
	case ReasonEmptyRequiredTree:
		return "empty required tree"
	case ReasonEmptyNode:
		return "empty node"
	case ReasonUnknownOwner:
		return "unknown owner"
	case ReasonBadKeyOrder:
		return "bad key order"
	case ReasonBadItemPacking:
		return "bad item packing"
	case ReasonItemOutOfBounds:
		return "item out of bounds"
	case ReasonBadItemSize:
		return "bad item size"
	case ReasonBadKeyValue:
		return "bad key value"
	case ReasonMisalignedValue:
		return "misaligned value"
	case ReasonOutOfRangeValue:
		return "out of range value"
	case ReasonOverlappingRange:
		return "overlapping range"
	case ReasonRefCountMismatch:
		return "ref count mismatch"
	case ReasonHashMismatch:
		return "hash mismatch"
	case ReasonOverflow:
		return "arithmetic overflow"
	case ReasonNullPointer:
		return "null pointer"
	case ReasonAccessOutOfBounds:
		return "access out of bounds"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// CorruptionError is the single failure type of the checker: block
// coordinates, the offending slot (or -1 for block-level checks) and a
// message carrying the observed and expected values.
type CorruptionError struct {
	Reason Reason

	// Block coordinates.
	Owner        uint64
	Block        uint64
	Leaf         bool
	IsSuperblock bool

	// Slot is the item slot the failure was detected at, -1 for
	// block-level failures.
	Slot int

	// Key of the offending slot when one was decoded.
	Key *types.Key

	Msg string

	// Err is set when an accessor bounds violation terminated the
	// check.
	Err error
}

func (e *CorruptionError) Error() string {
	kind := "node"
	if e.Leaf {
		kind = "leaf"
	}
	if e.IsSuperblock {
		return fmt.Sprintf("corrupt superblock syschunk array: %s", e.Msg)
	}
	return fmt.Sprintf("corrupt %s: root=%d block=%d slot=%d, %s",
		kind, e.Owner, e.Block, e.Slot, e.Msg)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// IsCorruption reports whether err is (or wraps) a CorruptionError and
// returns it.
func IsCorruption(err error) (*CorruptionError, bool) {
	var ce *CorruptionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// corrupt builds a CorruptionError against the given block and slot.
func corrupt(eb *extentbuffer.ExtentBuffer, slot int, reason Reason,
	format string, args ...interface{}) *CorruptionError {
	return &CorruptionError{
		Reason: reason,
		Owner:  eb.Owner(),
		Block:  eb.Start(),
		Leaf:   eb.Level() == 0,
		Slot:   slot,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// keyed attaches the slot's key to a corruption error.
func keyed(err *CorruptionError, key types.Key) *CorruptionError {
	err.Key = &key
	return err
}

// fileExtentErr prefixes file extent coordinates, whose key objectid and
// offset are the inode number and file offset.
func fileExtentErr(eb *extentbuffer.ExtentBuffer, slot int, key types.Key,
	reason Reason, format string, args ...interface{}) *CorruptionError {
	err := corrupt(eb, slot, reason, "ino=%d file_offset=%d, %s",
		key.ObjectID, key.Offset, fmt.Sprintf(format, args...))
	return keyed(err, key)
}

// dirItemErr prefixes the inode number for directory-shaped items.
func dirItemErr(eb *extentbuffer.ExtentBuffer, slot int, key types.Key,
	reason Reason, format string, args ...interface{}) *CorruptionError {
	err := corrupt(eb, slot, reason, "ino=%d, %s",
		key.ObjectID, fmt.Sprintf(format, args...))
	return keyed(err, key)
}

// accessErr wraps an accessor bounds failure; fatal for the block.
func accessErr(eb *extentbuffer.ExtentBuffer, slot int, err error) *CorruptionError {
	ce := corrupt(eb, slot, ReasonAccessOutOfBounds, "%v", err)
	ce.Err = err
	return ce
}
