package disk

import (
	"github.com/pkg/errors"

	"github.com/deploymenttheory/go-btrfs/internal/treechecker"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// SysChunk is one entry of the superblock's embedded system chunk
// array.
type SysChunk struct {
	Key        types.Key
	NumStripes uint16
	Length     uint64
	Type       uint64
}

// CheckSysChunkArray walks the packed (key, chunk) pairs of the system
// chunk array, validating each chunk with the same checker the chunk
// tree uses, and returns the decoded entries.
func (sb *Superblock) CheckSysChunkArray() ([]SysChunk, error) {
	used, _ := sb.buf.GetU32(types.SuperSysChunkArraySizeOffset)
	if used > types.SysChunkArraySize {
		return nil, errors.Errorf("system chunk array size %d exceeds maximum %d",
			used, types.SysChunkArraySize)
	}

	fs := sb.FsInfo()
	var chunks []SysChunk

	cur := uint32(types.SuperSysChunkArrayOffset)
	end := uint32(types.SuperSysChunkArrayOffset) + used
	for cur < end {
		if cur+types.DiskKeySize > end {
			return nil, errors.Errorf("system chunk array key at %d crosses array end %d",
				cur, end)
		}
		key, err := sb.buf.GetKey(cur)
		if err != nil {
			return nil, errors.Wrap(err, "system chunk array key")
		}
		if key.ObjectID != types.FirstChunkTreeObjectID ||
			key.Type != types.ChunkItemKey {
			return nil, errors.Errorf("unexpected system chunk array key (%d %d %d)",
				key.ObjectID, key.Type, key.Offset)
		}
		cur += types.DiskKeySize

		if cur+types.ChunkHeaderSize > end {
			return nil, errors.Errorf("system chunk header at %d crosses array end %d",
				cur, end)
		}
		numStripes, err := sb.buf.GetU16(cur + types.ChunkNumStripesOffset)
		if err != nil {
			return nil, errors.Wrap(err, "system chunk stripe count")
		}
		if numStripes == 0 {
			return nil, errors.New("system chunk with 0 stripes")
		}
		if cur+types.ChunkItemSize(int(numStripes)) > end {
			return nil, errors.Errorf("system chunk at %d with %d stripes crosses array end %d",
				cur, numStripes, end)
		}

		if err := treechecker.CheckChunk(fs, sb.buf, cur, key.Offset, -1); err != nil {
			return nil, err
		}

		length, _ := sb.buf.GetU64(cur + types.ChunkLengthOffset)
		chunkType, _ := sb.buf.GetU64(cur + types.ChunkTypeOffset)
		chunks = append(chunks, SysChunk{
			Key:        key,
			NumStripes: numStripes,
			Length:     length,
			Type:       chunkType,
		})

		cur += types.ChunkItemSize(int(numStripes))
	}

	return chunks, nil
}
