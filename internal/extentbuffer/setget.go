package extentbuffer

import "encoding/binary"

// Fixed-width little-endian accessors. All widths funnel into the shared
// readAt/writeAt core, so page straddling and bounds behave identically
// across them. The Cached variants take a MapToken and are semantically
// identical to their plain counterparts.

func (eb *ExtentBuffer) getUint(off, size uint32, tok *MapToken) (uint64, error) {
	var le [8]byte
	if err := eb.readAt(le[:size], off, tok); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(le[:]), nil
}

func (eb *ExtentBuffer) setUint(off, size uint32, val uint64, tok *MapToken) error {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], val)
	return eb.writeAt(le[:size], off, tok)
}

// GetU8 reads the byte at off.
func (eb *ExtentBuffer) GetU8(off uint32) (uint8, error) {
	v, err := eb.getUint(off, 1, nil)
	return uint8(v), err
}

// GetU16 reads the little-endian uint16 at off.
func (eb *ExtentBuffer) GetU16(off uint32) (uint16, error) {
	v, err := eb.getUint(off, 2, nil)
	return uint16(v), err
}

// GetU32 reads the little-endian uint32 at off.
func (eb *ExtentBuffer) GetU32(off uint32) (uint32, error) {
	v, err := eb.getUint(off, 4, nil)
	return uint32(v), err
}

// GetU64 reads the little-endian uint64 at off.
func (eb *ExtentBuffer) GetU64(off uint32) (uint64, error) {
	return eb.getUint(off, 8, nil)
}

// SetU8 writes the byte at off.
func (eb *ExtentBuffer) SetU8(off uint32, val uint8) error {
	return eb.setUint(off, 1, uint64(val), nil)
}

// SetU16 writes the little-endian uint16 at off.
func (eb *ExtentBuffer) SetU16(off uint32, val uint16) error {
	return eb.setUint(off, 2, uint64(val), nil)
}

// SetU32 writes the little-endian uint32 at off.
func (eb *ExtentBuffer) SetU32(off uint32, val uint32) error {
	return eb.setUint(off, 4, uint64(val), nil)
}

// SetU64 writes the little-endian uint64 at off.
func (eb *ExtentBuffer) SetU64(off uint32, val uint64) error {
	return eb.setUint(off, 8, val, nil)
}

// GetU8Cached is GetU8 through a map token.
func (eb *ExtentBuffer) GetU8Cached(tok *MapToken, off uint32) (uint8, error) {
	v, err := eb.getUint(off, 1, tok)
	return uint8(v), err
}

// GetU16Cached is GetU16 through a map token.
func (eb *ExtentBuffer) GetU16Cached(tok *MapToken, off uint32) (uint16, error) {
	v, err := eb.getUint(off, 2, tok)
	return uint16(v), err
}

// GetU32Cached is GetU32 through a map token.
func (eb *ExtentBuffer) GetU32Cached(tok *MapToken, off uint32) (uint32, error) {
	v, err := eb.getUint(off, 4, tok)
	return uint32(v), err
}

// GetU64Cached is GetU64 through a map token.
func (eb *ExtentBuffer) GetU64Cached(tok *MapToken, off uint32) (uint64, error) {
	return eb.getUint(off, 8, tok)
}

// SetU8Cached is SetU8 through a map token.
func (eb *ExtentBuffer) SetU8Cached(tok *MapToken, off uint32, val uint8) error {
	return eb.setUint(off, 1, uint64(val), tok)
}

// SetU16Cached is SetU16 through a map token.
func (eb *ExtentBuffer) SetU16Cached(tok *MapToken, off uint32, val uint16) error {
	return eb.setUint(off, 2, uint64(val), tok)
}

// SetU32Cached is SetU32 through a map token.
func (eb *ExtentBuffer) SetU32Cached(tok *MapToken, off uint32, val uint32) error {
	return eb.setUint(off, 4, uint64(val), tok)
}

// SetU64Cached is SetU64 through a map token.
func (eb *ExtentBuffer) SetU64Cached(tok *MapToken, off uint32, val uint64) error {
	return eb.setUint(off, 8, val, tok)
}
