package extentbuffer

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// PageSize is the granularity of the backing store. A metadata block
// larger than one page is split across several pages that do not form a
// contiguous range; the accessors below present them as one linear
// buffer.
const PageSize = 4096

// BoundsError reports an access that would fall outside the buffer. Any
// consumer must treat it as fatal for the block being inspected.
type BoundsError struct {
	Offset uint32
	Size   uint32
	Length uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("extent buffer access out of bounds: offset=%d size=%d length=%d",
		e.Offset, e.Size, e.Length)
}

// ExtentBuffer holds the resident bytes of one metadata block. The block
// is logically addressed from 0 to Len() regardless of how the pages are
// laid out.
type ExtentBuffer struct {
	start  uint64
	length uint32
	pages  [][]byte
}

// New allocates a zeroed buffer of the given length at the given logical
// address. The length must at least cover a block header.
func New(start uint64, length uint32) (*ExtentBuffer, error) {
	if length < types.HeaderSize {
		return nil, fmt.Errorf("extent buffer length %d smaller than header size %d",
			length, types.HeaderSize)
	}
	eb := &ExtentBuffer{start: start, length: length}
	for remaining := length; remaining > 0; {
		n := uint32(PageSize)
		if remaining < n {
			n = remaining
		}
		eb.pages = append(eb.pages, make([]byte, n))
		remaining -= n
	}
	return eb, nil
}

// FromBytes copies an already-read block image into a fresh buffer.
func FromBytes(start uint64, data []byte) (*ExtentBuffer, error) {
	eb, err := New(start, uint32(len(data)))
	if err != nil {
		return nil, err
	}
	for i, page := range eb.pages {
		copy(page, data[i*PageSize:])
	}
	return eb, nil
}

// Start returns the block's logical address.
func (eb *ExtentBuffer) Start() uint64 {
	return eb.start
}

// Len returns the block's byte length (the node size).
func (eb *ExtentBuffer) Len() uint32 {
	return eb.length
}

// Bytes flattens the buffer into one contiguous slice.
func (eb *ExtentBuffer) Bytes() []byte {
	out := make([]byte, 0, eb.length)
	for _, page := range eb.pages {
		out = append(out, page...)
	}
	return out
}

// MapToken caches the page resolved by the most recent cached accessor
// call so that runs of accesses within one item skip the page lookup. A
// zero token is ready for use; tokens are plain values owned by a single
// call sequence and never shared.
type MapToken struct {
	page []byte
	base uint32
}

func (eb *ExtentBuffer) checkBounds(off, size uint32) error {
	end := uint64(off) + uint64(size)
	if end > uint64(eb.length) {
		return &BoundsError{Offset: off, Size: size, Length: eb.length}
	}
	return nil
}

// readAt copies len(buf) bytes starting at off, splitting across page
// boundaries when the range straddles them. The bounds check runs before
// any page is touched, token or not.
func (eb *ExtentBuffer) readAt(buf []byte, off uint32, tok *MapToken) error {
	size := uint32(len(buf))
	if err := eb.checkBounds(off, size); err != nil {
		return err
	}
	if tok != nil && tok.page != nil &&
		off >= tok.base && off+size <= tok.base+uint32(len(tok.page)) {
		copy(buf, tok.page[off-tok.base:])
		return nil
	}
	idx := off / PageSize
	oip := off % PageSize
	page := eb.pages[idx]
	if tok != nil {
		tok.page = page
		tok.base = idx * PageSize
	}
	if oip+size <= uint32(len(page)) {
		copy(buf, page[oip:oip+size])
		return nil
	}
	part := uint32(copy(buf, page[oip:]))
	for part < size {
		idx++
		page = eb.pages[idx]
		part += uint32(copy(buf[part:], page))
	}
	if tok != nil {
		tok.page = page
		tok.base = idx * PageSize
	}
	return nil
}

// writeAt is the mirror of readAt for the set path.
func (eb *ExtentBuffer) writeAt(data []byte, off uint32, tok *MapToken) error {
	size := uint32(len(data))
	if err := eb.checkBounds(off, size); err != nil {
		return err
	}
	if tok != nil && tok.page != nil &&
		off >= tok.base && off+size <= tok.base+uint32(len(tok.page)) {
		copy(tok.page[off-tok.base:], data)
		return nil
	}
	idx := off / PageSize
	oip := off % PageSize
	page := eb.pages[idx]
	if tok != nil {
		tok.page = page
		tok.base = idx * PageSize
	}
	if oip+size <= uint32(len(page)) {
		copy(page[oip:oip+size], data)
		return nil
	}
	part := uint32(copy(page[oip:], data))
	for part < size {
		idx++
		page = eb.pages[idx]
		part += uint32(copy(page, data[part:]))
	}
	if tok != nil {
		tok.page = page
		tok.base = idx * PageSize
	}
	return nil
}

// ReadBytes returns a copy of n bytes starting at off.
func (eb *ExtentBuffer) ReadBytes(off, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if err := eb.readAt(buf, off, nil); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills buf from off without allocating.
func (eb *ExtentBuffer) ReadInto(buf []byte, off uint32) error {
	return eb.readAt(buf, off, nil)
}

// WriteBytes copies data into the buffer starting at off.
func (eb *ExtentBuffer) WriteBytes(off uint32, data []byte) error {
	return eb.writeAt(data, off, nil)
}
