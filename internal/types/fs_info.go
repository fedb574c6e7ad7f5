package types

// FsInfo is the trusted superblock context the tree checker consumes. It
// is assembled once, after the superblock itself has been validated, and
// treated as ground truth by every block-level check.
type FsInfo struct {
	// SectorSize is the filesystem sector size; most item alignment
	// rules are expressed against it.
	SectorSize uint32

	// NodeSize is the size of every metadata block.
	NodeSize uint32

	// Generation is the current transaction generation from the
	// superblock. Items may reference at most Generation+1 to account
	// for the log tree.
	Generation uint64

	// CsumType identifies the checksum algorithm
	// (see internal/checksums), CsumSize its digest width.
	CsumType uint16
	CsumSize uint32

	// IncompatFlags is the superblock's incompatible feature bits.
	IncompatFlags uint64
}

// HasIncompatFeature reports whether the given feature bit is set.
func (fs *FsInfo) HasIncompatFeature(bit uint64) bool {
	return fs.IncompatFlags&bit != 0
}
