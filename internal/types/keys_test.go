package types

import "testing"

func TestKeyCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"equal", Key{256, InodeItemKey, 0}, Key{256, InodeItemKey, 0}, 0},
		{"objectid less", Key{255, DirItemKey, 9}, Key{256, InodeItemKey, 0}, -1},
		{"objectid greater", Key{257, InodeItemKey, 0}, Key{256, ChunkItemKey, 9}, 1},
		{"type less", Key{256, InodeItemKey, 9}, Key{256, InodeRefKey, 0}, -1},
		{"type greater", Key{256, ExtentDataKey, 0}, Key{256, DirItemKey, 9}, 1},
		{"offset less", Key{256, ExtentDataKey, 0}, Key{256, ExtentDataKey, 4096}, -1},
		{"offset greater", Key{256, ExtentDataKey, 8192}, Key{256, ExtentDataKey, 4096}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			// Antisymmetry
			if got := tt.b.Compare(tt.a); got != -tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestZeroKeySortsFirst(t *testing.T) {
	var zero Key
	valid := []Key{
		{RootTreeObjectID, RootItemKey, 0},
		{FirstFreeObjectID, InodeItemKey, 0},
		{ExtentCsumObjectID, ExtentCsumKey, 0},
	}
	for _, k := range valid {
		if zero.Compare(k) != -1 {
			t.Errorf("zero key does not sort before %v", k)
		}
	}
}

func TestIsFSTree(t *testing.T) {
	tests := []struct {
		owner uint64
		want  bool
	}{
		{FSTreeObjectID, true},
		{DataRelocObjectID, true},
		{FirstFreeObjectID, true},
		{LastFreeObjectID, true},
		{18446744073709551360, true}, // -256ULL, the last allocatable inode number
		{RootTreeObjectID, false},
		{ExtentTreeObjectID, false},
		{ChunkTreeObjectID, false},
		{CsumTreeObjectID, false},
		{TreeRelocObjectID, false},
		{LastFreeObjectID + 1, false},
	}
	for _, tt := range tests {
		if got := IsFSTree(tt.owner); got != tt.want {
			t.Errorf("IsFSTree(%d) = %v, want %v", tt.owner, got, tt.want)
		}
	}
}

func TestInlineRefSize(t *testing.T) {
	tests := []struct {
		refType uint8
		want    uint32
	}{
		{TreeBlockRefKey, 9},
		{SharedBlockRefKey, 9},
		{ExtentDataRefKey, 29},
		{SharedDataRefKey, 13},
		{0, 0},
		{255, 0},
	}
	for _, tt := range tests {
		if got := InlineRefSize(tt.refType); got != tt.want {
			t.Errorf("InlineRefSize(%d) = %d, want %d", tt.refType, got, tt.want)
		}
	}
}

func TestChunkItemSize(t *testing.T) {
	if got := ChunkItemSize(1); got != 80 {
		t.Errorf("ChunkItemSize(1) = %d, want 80", got)
	}
	if got := ChunkItemSize(4); got != 176 {
		t.Errorf("ChunkItemSize(4) = %d, want 176", got)
	}
}

func TestRaidIndex(t *testing.T) {
	tests := []struct {
		chunkType uint64
		wantBit   uint64
	}{
		{BlockGroupData, 0},
		{BlockGroupSystem, 0},
		{BlockGroupData | BlockGroupRaid1, BlockGroupRaid1},
		{BlockGroupMetadata | BlockGroupRaid10, BlockGroupRaid10},
		{BlockGroupData | BlockGroupRaid6, BlockGroupRaid6},
		{BlockGroupSystem | BlockGroupDup, BlockGroupDup},
	}
	for _, tt := range tests {
		got := RaidArray[RaidIndex(tt.chunkType)]
		if got.ProfileBit != tt.wantBit {
			t.Errorf("RaidIndex(0x%x) resolved profile bit 0x%x, want 0x%x",
				tt.chunkType, got.ProfileBit, tt.wantBit)
		}
	}
}

func TestLeafLayoutHelpers(t *testing.T) {
	if got := LeafDataSize(16384); got != 16384-HeaderSize {
		t.Errorf("LeafDataSize(16384) = %d", got)
	}
	if got := LeafItemOffset(0); got != HeaderSize {
		t.Errorf("LeafItemOffset(0) = %d, want %d", got, HeaderSize)
	}
	if got := LeafItemOffset(3); got != HeaderSize+3*ItemSize {
		t.Errorf("LeafItemOffset(3) = %d", got)
	}
	if got := NodeKeyPtrOffset(2); got != HeaderSize+2*KeyPtrSize {
		t.Errorf("NodeKeyPtrOffset(2) = %d", got)
	}
}
