package disk

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Superblock is the validated snapshot of the primary superblock copy.
// Everything the tree checker treats as trusted context comes from here.
type Superblock struct {
	FSID          uuid.UUID
	Label         string
	Generation    uint64
	Root          uint64
	ChunkRoot     uint64
	SectorSize    uint32
	NodeSize      uint32
	CsumType      uint16
	CsumSize      uint32
	IncompatFlags uint64

	// The raw superblock bytes, kept for the system chunk array walk.
	buf *extentbuffer.ExtentBuffer
}

// ReadSuperblock reads and sanity-checks the primary superblock from the
// image. A superblock that fails here is rejected outright; no backup
// copies are consulted.
func ReadSuperblock(r io.ReaderAt) (*Superblock, error) {
	raw := make([]byte, types.SuperInfoSize)
	if _, err := r.ReadAt(raw, int64(types.SuperInfoOffset)); err != nil {
		return nil, errors.Wrap(err, "reading superblock")
	}

	buf, err := extentbuffer.FromBytes(types.SuperInfoOffset, raw)
	if err != nil {
		return nil, errors.Wrap(err, "mapping superblock")
	}

	magic, _ := buf.GetU64(types.SuperMagicOffset)
	if magic != types.SuperMagic {
		return nil, errors.Errorf("bad superblock magic: got 0x%016X, want 0x%016X",
			magic, types.SuperMagic)
	}
	bytenr, _ := buf.GetU64(types.SuperBytenrOffset)
	if bytenr != types.SuperInfoOffset {
		return nil, errors.Errorf("superblock bytenr mismatch: got %d, want %d",
			bytenr, types.SuperInfoOffset)
	}

	sectorSize, _ := buf.GetU32(types.SuperSectorSizeOffset)
	if sectorSize < types.MinSectorSize || sectorSize > types.MaxSectorSize ||
		sectorSize&(sectorSize-1) != 0 {
		return nil, errors.Errorf("invalid sectorsize %d", sectorSize)
	}
	nodeSize, _ := buf.GetU32(types.SuperNodeSizeOffset)
	if nodeSize < sectorSize || nodeSize > types.MaxNodeSize ||
		nodeSize&(nodeSize-1) != 0 {
		return nil, errors.Errorf("invalid nodesize %d", nodeSize)
	}

	csumType, _ := buf.GetU16(types.SuperCsumTypeOffset)
	csumSize, err := checksums.Size(csumType)
	if err != nil {
		return nil, errors.Wrap(err, "superblock checksum type")
	}

	rawFSID, _ := buf.ReadBytes(types.SuperFsidOffset, 16)
	fsid, err := uuid.FromBytes(rawFSID)
	if err != nil {
		return nil, errors.Wrap(err, "superblock fsid")
	}

	rawLabel, _ := buf.ReadBytes(types.SuperLabelOffset, types.SuperLabelSize)
	label := string(rawLabel)
	if i := bytes.IndexByte(rawLabel, 0); i >= 0 {
		label = string(rawLabel[:i])
	}

	sb := &Superblock{
		FSID:       fsid,
		Label:      label,
		SectorSize: sectorSize,
		NodeSize:   nodeSize,
		CsumType:   csumType,
		CsumSize:   csumSize,
		buf:        buf,
	}
	sb.Generation, _ = buf.GetU64(types.SuperGenerationOffset)
	sb.Root, _ = buf.GetU64(types.SuperRootOffset)
	sb.ChunkRoot, _ = buf.GetU64(types.SuperChunkRootOffset)
	sb.IncompatFlags, _ = buf.GetU64(types.SuperIncompatFlagsOffset)

	return sb, nil
}

// FsInfo returns the trusted context derived from this superblock.
func (sb *Superblock) FsInfo() *types.FsInfo {
	return &types.FsInfo{
		SectorSize:    sb.SectorSize,
		NodeSize:      sb.NodeSize,
		Generation:    sb.Generation,
		CsumType:      sb.CsumType,
		CsumSize:      sb.CsumSize,
		IncompatFlags: sb.IncompatFlags,
	}
}
