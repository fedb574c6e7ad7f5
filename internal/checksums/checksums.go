package checksums

import (
	"crypto/sha256"
	"fmt"
	"hash/crc32"

	"github.com/cespare/xxhash"
	"github.com/zeebo/blake3"
)

// Checksum algorithms selectable in the superblock. Every metadata block
// and every data sector carries a digest of one of these; the digest
// field is always 32 bytes on disk with shorter digests zero padded.
const (
	TypeCRC32C uint16 = 0
	TypeXxhash uint16 = 1
	TypeSHA256 uint16 = 2
	TypeBlake3 uint16 = 3
)

// MaxCsumSize is the size of the on-disk digest field.
const MaxCsumSize = 32

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Size returns the digest width of the given checksum type, or an error
// for an unknown type.
func Size(csumType uint16) (uint32, error) {
	switch csumType {
	case TypeCRC32C:
		return 4, nil
	case TypeXxhash:
		return 8, nil
	case TypeSHA256, TypeBlake3:
		return 32, nil
	}
	return 0, fmt.Errorf("unsupported checksum type %d", csumType)
}

// Name returns the display name of the given checksum type.
func Name(csumType uint16) string {
	switch csumType {
	case TypeCRC32C:
		return "crc32c"
	case TypeXxhash:
		return "xxhash64"
	case TypeSHA256:
		return "sha256"
	case TypeBlake3:
		return "blake3"
	}
	return fmt.Sprintf("unknown(%d)", csumType)
}

// Sum computes the digest of data, little-endian for the integer
// algorithms, left-aligned in a MaxCsumSize buffer. The crc32c variant
// is the standard (final-inverted) CRC-32C; only NameHash uses the raw
// form.
func Sum(csumType uint16, data []byte) ([MaxCsumSize]byte, error) {
	var out [MaxCsumSize]byte
	switch csumType {
	case TypeCRC32C:
		v := crc32.Checksum(data, castagnoli)
		out[0] = byte(v)
		out[1] = byte(v >> 8)
		out[2] = byte(v >> 16)
		out[3] = byte(v >> 24)
	case TypeXxhash:
		v := xxhash.Sum64(data)
		for i := 0; i < 8; i++ {
			out[i] = byte(v >> (8 * i))
		}
	case TypeSHA256:
		d := sha256.Sum256(data)
		copy(out[:], d[:])
	case TypeBlake3:
		d := blake3.Sum256(data)
		copy(out[:], d[:])
	default:
		return out, fmt.Errorf("unsupported checksum type %d", csumType)
	}
	return out, nil
}

// crc32Cel is crc32c with an arbitrary seed and no final inversion,
// matching the on-disk convention.
func crc32Cel(seed uint32, data []byte) uint32 {
	return ^crc32.Update(^seed, castagnoli, data)
}

// NameHash computes the directory entry name hash stored in the key
// offset of DirItemKey and XattrItemKey items. It is crc32c seeded with
// ^1 regardless of the filesystem checksum type.
func NameHash(name []byte) uint64 {
	return uint64(crc32Cel(^uint32(1), name))
}
