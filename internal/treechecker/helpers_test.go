package treechecker

import (
	"encoding/binary"
	"testing"

	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/extentbuffer"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var le = binary.LittleEndian

const testBlockStart = 30408704

func testFsInfo() *types.FsInfo {
	return &types.FsInfo{
		SectorSize: 4096,
		NodeSize:   16384,
		Generation: 100,
		CsumType:   checksums.TypeCRC32C,
		CsumSize:   4,
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// leafBuilder assembles a syntactically well formed leaf: descriptors
// grow forward from the header, payloads are packed from the data area
// end backward with no holes.
type leafBuilder struct {
	t       *testing.T
	eb      *extentbuffer.ExtentBuffer
	nritems uint32
	dataEnd uint32
}

func newLeaf(t *testing.T, fs *types.FsInfo, owner uint64) *leafBuilder {
	t.Helper()
	eb, err := extentbuffer.New(testBlockStart, fs.NodeSize)
	must(t, err)
	must(t, eb.SetU64(types.HeaderBytenrOffset, testBlockStart))
	must(t, eb.SetU64(types.HeaderOwnerOffset, owner))
	must(t, eb.SetU64(types.HeaderGenerationOffset, fs.Generation))
	must(t, eb.SetU8(types.HeaderLevelOffset, 0))
	return &leafBuilder{t: t, eb: eb, dataEnd: types.LeafDataSize(fs.NodeSize)}
}

func (b *leafBuilder) addItem(key types.Key, payload []byte) int {
	b.t.Helper()
	slot := int(b.nritems)
	size := uint32(len(payload))
	off := b.dataEnd - size

	desc := types.LeafItemOffset(slot)
	must(b.t, b.eb.SetKey(desc+types.ItemKeyOffset, key))
	must(b.t, b.eb.SetU32(desc+types.ItemOffsetOffset, off))
	must(b.t, b.eb.SetU32(desc+types.ItemSizeOffset, size))
	if size > 0 {
		must(b.t, b.eb.WriteBytes(types.HeaderSize+off, payload))
	}

	b.dataEnd = off
	b.nritems++
	must(b.t, b.eb.SetU32(types.HeaderNrItemsOffset, b.nritems))
	return slot
}

func (b *leafBuilder) setLevel(level uint8) {
	must(b.t, b.eb.SetU8(types.HeaderLevelOffset, level))
}

func (b *leafBuilder) setFlags(flags uint64) {
	must(b.t, b.eb.SetU64(types.HeaderFlagsOffset, flags))
}

// setItemOffset corrupts one descriptor after the fact.
func (b *leafBuilder) setItemOffset(slot int, off uint32) {
	must(b.t, b.eb.SetU32(types.LeafItemOffset(slot)+types.ItemOffsetOffset, off))
}

func (b *leafBuilder) setItemKey(slot int, key types.Key) {
	must(b.t, b.eb.SetKey(types.LeafItemOffset(slot)+types.ItemKeyOffset, key))
}

// nodeBuilder assembles an internal node out of key pointers.
type nodeBuilder struct {
	t       *testing.T
	eb      *extentbuffer.ExtentBuffer
	nritems uint32
}

func newNode(t *testing.T, fs *types.FsInfo, owner uint64, level uint8) *nodeBuilder {
	t.Helper()
	eb, err := extentbuffer.New(testBlockStart, fs.NodeSize)
	must(t, err)
	must(t, eb.SetU64(types.HeaderBytenrOffset, testBlockStart))
	must(t, eb.SetU64(types.HeaderOwnerOffset, owner))
	must(t, eb.SetU64(types.HeaderGenerationOffset, fs.Generation))
	must(t, eb.SetU8(types.HeaderLevelOffset, level))
	return &nodeBuilder{t: t, eb: eb}
}

func (b *nodeBuilder) addPtr(key types.Key, blockptr, generation uint64) int {
	b.t.Helper()
	slot := int(b.nritems)
	base := types.NodeKeyPtrOffset(slot)
	must(b.t, b.eb.SetKey(base+types.KeyPtrKeyOffset, key))
	must(b.t, b.eb.SetU64(base+types.KeyPtrBlockptrOffset, blockptr))
	must(b.t, b.eb.SetU64(base+types.KeyPtrGenerationOffset, generation))
	b.nritems++
	must(b.t, b.eb.SetU32(types.HeaderNrItemsOffset, b.nritems))
	return slot
}

// requireCorruption asserts err carries the wanted reason and slot.
func requireCorruption(t *testing.T, err error, reason Reason, slot int) *CorruptionError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v corruption, check passed", reason)
	}
	ce, ok := IsCorruption(err)
	if !ok {
		t.Fatalf("expected CorruptionError, got %T: %v", err, err)
	}
	if ce.Reason != reason {
		t.Fatalf("reason = %v, want %v (%v)", ce.Reason, reason, ce)
	}
	if ce.Slot != slot {
		t.Fatalf("slot = %d, want %d (%v)", ce.Slot, slot, ce)
	}
	return ce
}

func putKey(b []byte, key types.Key) {
	le.PutUint64(b[types.KeyObjectIDOffset:], key.ObjectID)
	b[types.KeyTypeOffset] = key.Type
	le.PutUint64(b[types.KeyOffsetOffset:], key.Offset)
}

// Item payload fixtures. Every builder produces a payload that passes
// its checker; tests corrupt individual fields afterwards.

func inodeItemPayload(mode, nlink uint32) []byte {
	p := make([]byte, types.InodeItemSize)
	le.PutUint64(p[types.InodeItemGenerationOffset:], 50)
	le.PutUint64(p[types.InodeItemTransidOffset:], 50)
	le.PutUint64(p[types.InodeItemSizeOffset:], 4096)
	le.PutUint32(p[types.InodeItemNlinkOffset:], nlink)
	le.PutUint32(p[types.InodeItemModeOffset:], mode)
	return p
}

func rootItemPayload(size int) []byte {
	p := make([]byte, size)
	le.PutUint64(p[types.RootItemGenerationOffset:], 50)
	le.PutUint64(p[types.RootItemBytenrOffset:], 1<<20)
	le.PutUint64(p[types.RootItemLastSnapshotOffset:], 10)
	p[types.RootItemLevelOffset] = 1
	if size == types.RootItemSize {
		le.PutUint64(p[types.RootItemGenerationV2Offset:], 50)
	}
	return p
}

func fileExtentRegPayload(numBytes uint64) []byte {
	p := make([]byte, types.FileExtentItemSize)
	le.PutUint64(p[types.FileExtentGenerationOffset:], 50)
	le.PutUint64(p[types.FileExtentRamBytesOffset:], numBytes)
	p[types.FileExtentTypeOffset] = types.FileExtentReg
	le.PutUint64(p[types.FileExtentDiskBytenrOffset:], 1<<24)
	le.PutUint64(p[types.FileExtentDiskNumBytesOffset:], numBytes)
	le.PutUint64(p[types.FileExtentOffsetOffset:], 0)
	le.PutUint64(p[types.FileExtentNumBytesOffset:], numBytes)
	return p
}

func fileExtentInlinePayload(data []byte) []byte {
	p := make([]byte, types.FileExtentInlineDataStart+len(data))
	le.PutUint64(p[types.FileExtentGenerationOffset:], 50)
	le.PutUint64(p[types.FileExtentRamBytesOffset:], uint64(len(data)))
	p[types.FileExtentTypeOffset] = types.FileExtentInline
	copy(p[types.FileExtentInlineDataStart:], data)
	return p
}

func dirItemPayload(location types.Key, dirType uint8, name, data []byte) []byte {
	p := make([]byte, int(types.DirItemHeaderSize)+len(name)+len(data))
	putKey(p[types.DirItemLocationOffset:], location)
	le.PutUint64(p[types.DirItemTransidOffset:], 50)
	le.PutUint16(p[types.DirItemDataLenOffset:], uint16(len(data)))
	le.PutUint16(p[types.DirItemNameLenOffset:], uint16(len(name)))
	p[types.DirItemTypeOffset] = dirType
	copy(p[types.DirItemHeaderSize:], name)
	copy(p[int(types.DirItemHeaderSize)+len(name):], data)
	return p
}

func inodeRefPayload(index uint64, name []byte) []byte {
	p := make([]byte, int(types.InodeRefHeaderSize)+len(name))
	le.PutUint64(p[types.InodeRefIndexOffset:], index)
	le.PutUint16(p[types.InodeRefNameLenOffset:], uint16(len(name)))
	copy(p[types.InodeRefHeaderSize:], name)
	return p
}

func chunkItemPayload(length, chunkType uint64, numStripes, subStripes uint16) []byte {
	p := make([]byte, types.ChunkItemSize(int(numStripes)))
	le.PutUint64(p[types.ChunkLengthOffset:], length)
	le.PutUint64(p[types.ChunkOwnerOffset:], types.ExtentTreeObjectID)
	le.PutUint64(p[types.ChunkStripeLenOffset:], types.StripeLen)
	le.PutUint64(p[types.ChunkTypeOffset:], chunkType)
	le.PutUint32(p[types.ChunkSectorSizeOffset:], 4096)
	le.PutUint16(p[types.ChunkNumStripesOffset:], numStripes)
	le.PutUint16(p[types.ChunkSubStripesOffset:], subStripes)
	for i := 0; i < int(numStripes); i++ {
		stripe := p[int(types.ChunkHeaderSize)+i*types.StripeSize:]
		le.PutUint64(stripe[types.StripeDevidOffset:], 1)
		le.PutUint64(stripe[types.StripeOffsetOffset:], uint64(i)<<24)
	}
	return p
}

func devItemPayload(devid, totalBytes, bytesUsed uint64) []byte {
	p := make([]byte, types.DevItemSize)
	le.PutUint64(p[types.DevItemDevidOffset:], devid)
	le.PutUint64(p[types.DevItemTotalBytesOffset:], totalBytes)
	le.PutUint64(p[types.DevItemBytesUsedOffset:], bytesUsed)
	return p
}

func blockGroupPayload(used, chunkObjectID, flags uint64) []byte {
	p := make([]byte, types.BlockGroupItemSize)
	le.PutUint64(p[types.BlockGroupUsedOffset:], used)
	le.PutUint64(p[types.BlockGroupChunkObjectIDOffset:], chunkObjectID)
	le.PutUint64(p[types.BlockGroupFlagsOffset:], flags)
	return p
}

// extentItemPayload builds an ExtentItemKey payload from the fixed
// header plus raw trailing bytes (tree block info and/or inline refs).
func extentItemPayload(refs, generation, flags uint64, tail ...[]byte) []byte {
	p := make([]byte, types.ExtentItemSize)
	le.PutUint64(p[types.ExtentItemRefsOffset:], refs)
	le.PutUint64(p[types.ExtentItemGenerationOffset:], generation)
	le.PutUint64(p[types.ExtentItemFlagsOffset:], flags)
	for _, part := range tail {
		p = append(p, part...)
	}
	return p
}

func treeBlockInfo(level uint8) []byte {
	p := make([]byte, types.TreeBlockInfoSize)
	p[types.TreeBlockInfoLevelOffset] = level
	return p
}

// inlineRef builds the bare 9-byte header used by tree block and shared
// block refs.
func inlineRef(refType uint8, offset uint64) []byte {
	p := make([]byte, types.InlineRefHeaderSize)
	p[types.InlineRefTypeOffset] = refType
	le.PutUint64(p[types.InlineRefOffsetOffset:], offset)
	return p
}

func extentDataRefBody(root, objectid, offset uint64, count uint32) []byte {
	p := make([]byte, types.ExtentDataRefSize)
	le.PutUint64(p[types.ExtentDataRefRootOffset:], root)
	le.PutUint64(p[types.ExtentDataRefObjectIDOffset:], objectid)
	le.PutUint64(p[types.ExtentDataRefOffsetOffset:], offset)
	le.PutUint32(p[types.ExtentDataRefCountOffset:], count)
	return p
}

// inlineDataRef is an extent data ref inline record: the type byte is
// immediately followed by the full ref body, overlaying the header's
// offset field.
func inlineDataRef(root, objectid, offset uint64, count uint32) []byte {
	return append([]byte{types.ExtentDataRefKey},
		extentDataRefBody(root, objectid, offset, count)...)
}

// inlineSharedDataRef is the 9-byte header (offset = parent bytenr)
// followed by the u32 count.
func inlineSharedDataRef(parent uint64, count uint32) []byte {
	p := inlineRef(types.SharedDataRefKey, parent)
	var cnt [4]byte
	le.PutUint32(cnt[:], count)
	return append(p, cnt[:]...)
}
