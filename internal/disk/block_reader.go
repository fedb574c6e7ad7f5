package disk

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ReadTreeBlock reads one node-size metadata block into an extent
// buffer. physical is the byte position inside the image; bytenr the
// block's logical address, cross-checked against the header. On a
// single-device image with no relocated chunks the two coincide.
func ReadTreeBlock(r io.ReaderAt, fs *types.FsInfo, physical int64, bytenr uint64) (*extentbuffer.ExtentBuffer, error) {
	raw := make([]byte, fs.NodeSize)
	if _, err := r.ReadAt(raw, physical); err != nil {
		return nil, errors.Wrapf(err, "reading tree block at %d", physical)
	}

	eb, err := extentbuffer.FromBytes(bytenr, raw)
	if err != nil {
		return nil, errors.Wrap(err, "mapping tree block")
	}

	if stored := eb.HeaderBytenr(); stored != bytenr {
		return nil, errors.Errorf("tree block bytenr mismatch: header has %d, expected %d",
			stored, bytenr)
	}
	return eb, nil
}

// VerifyBlockChecksum recomputes the header checksum over everything
// after the digest field and compares it with the stored digest.
func VerifyBlockChecksum(fs *types.FsInfo, eb *extentbuffer.ExtentBuffer) error {
	stored, err := eb.ReadBytes(types.HeaderCsumOffset, fs.CsumSize)
	if err != nil {
		return errors.Wrap(err, "reading stored checksum")
	}

	data := eb.Bytes()
	sum, err := checksums.Sum(fs.CsumType, data[checksums.MaxCsumSize:])
	if err != nil {
		return errors.Wrap(err, "computing block checksum")
	}
	if !bytes.Equal(stored, sum[:fs.CsumSize]) {
		return errors.Errorf("tree block checksum mismatch at %d: have %x, want %x (%s)",
			eb.Start(), stored, sum[:fs.CsumSize], checksums.Name(fs.CsumType))
	}
	return nil
}
