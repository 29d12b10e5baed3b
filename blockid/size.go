package blockid

import (
	"golang.org/x/xerrors"
)

// MinSizeMarker and MaxSizeMarker bound the 4-bit size marker packed into a
// BlockId header: block size is 2^(12+marker) bytes.
const (
	MinSizeMarker = 0
	MaxSizeMarker = 15
)

// MaxFileSize is the largest FileOffset/FileSize the deterministic
// variable-size prefix plus a uint32-indexed sequence of maximum-sized
// blocks can address.
const MaxFileSize = uint64(1)<<59 - 280*(uint64(1)<<27)

// MaxBlockOffset is the exclusive upper bound for a BlockOffset: the
// largest permitted block size, 128 MiB.
const MaxBlockOffset = uint32(1) << 27

// BlockSize is a block size in bytes, constrained to exactly one of
// 2^12 .. 2^27.
type BlockSize struct {
	marker uint8
}

// NewBlockSize constructs a BlockSize from a raw byte count. It fails
// unless bytes is exactly 2^m for some m in [12, 27].
func NewBlockSize(bytes uint32) (BlockSize, error) {
	for m := uint8(MinSizeMarker); m <= MaxSizeMarker; m++ {
		if uint32(1)<<(12+m) == bytes {
			return BlockSize{marker: m}, nil
		}
	}
	return BlockSize{}, xerrors.Errorf("blockid: %d is not a supported block size", bytes)
}

// BlockSizeFromMarker constructs a BlockSize from its 4-bit size marker.
func BlockSizeFromMarker(marker uint8) (BlockSize, error) {
	if marker > MaxSizeMarker {
		return BlockSize{}, xerrors.Errorf("blockid: size marker %d out of range [0,%d]", marker, MaxSizeMarker)
	}
	return BlockSize{marker: marker}, nil
}

// Marker returns the 4-bit size marker, m, such that Bytes() == 2^(12+m).
func (s BlockSize) Marker() uint8 { return s.marker }

// Bytes returns the block size in bytes.
func (s BlockSize) Bytes() uint32 { return uint32(1) << (12 + s.marker) }

// ValidBlockSize reports whether bytes is a supported block size, without
// constructing a BlockSize.
func ValidBlockSize(bytes uint32) bool {
	_, err := NewBlockSize(bytes)
	return err == nil
}

// SmallestBlockSizeAtLeast returns the smallest supported BlockSize whose
// byte count is >= n, for padding a variable-length payload (such as an
// encoded info block) up to one of the 16 block sizes a BlockId can name.
// It fails if n exceeds the largest supported block size.
func SmallestBlockSizeAtLeast(n uint32) (BlockSize, error) {
	for m := uint8(MinSizeMarker); m <= MaxSizeMarker; m++ {
		size := uint32(1) << (12 + m)
		if size >= n {
			return BlockSize{marker: m}, nil
		}
	}
	return BlockSize{}, xerrors.Errorf("blockid: %d bytes exceeds the largest supported block size", n)
}

// BlockOffset is a byte offset within a single block, in [0, MaxBlockOffset).
type BlockOffset struct {
	v uint32
}

// NewBlockOffset constructs a BlockOffset, failing if v is out of range.
func NewBlockOffset(v uint32) (BlockOffset, error) {
	if v >= MaxBlockOffset {
		return BlockOffset{}, xerrors.Errorf("blockid: block offset %d out of range [0,%d)", v, MaxBlockOffset)
	}
	return BlockOffset{v: v}, nil
}

// Uint32 returns the raw offset value.
func (o BlockOffset) Uint32() uint32 { return o.v }

// BlockIndex names the i-th block of a file's block list.
type BlockIndex struct {
	v uint32
}

// NewBlockIndex constructs a BlockIndex from a raw index.
func NewBlockIndex(v uint32) BlockIndex { return BlockIndex{v: v} }

// Uint32 returns the raw index value.
func (i BlockIndex) Uint32() uint32 { return i.v }

// FileSize is a total file size, in [0, MaxFileSize].
type FileSize struct {
	v uint64
}

// NewFileSize constructs a FileSize, failing if v exceeds MaxFileSize.
func NewFileSize(v uint64) (FileSize, error) {
	if v > MaxFileSize {
		return FileSize{}, xerrors.Errorf("blockid: file size %d exceeds MaxFileSize %d", v, MaxFileSize)
	}
	return FileSize{v: v}, nil
}

// Uint64 returns the raw size value.
func (s FileSize) Uint64() uint64 { return s.v }

// Add returns s+other, failing if the sum would exceed MaxFileSize.
func (s FileSize) Add(other FileSize) (FileSize, error) {
	return NewFileSize(s.v + other.v)
}

// FileOffset is a byte offset into a file, in [0, MaxFileSize].
type FileOffset struct {
	v uint64
}

// NewFileOffset constructs a FileOffset, failing if v exceeds MaxFileSize.
func NewFileOffset(v uint64) (FileOffset, error) {
	if v > MaxFileSize {
		return FileOffset{}, xerrors.Errorf("blockid: file offset %d exceeds MaxFileSize %d", v, MaxFileSize)
	}
	return FileOffset{v: v}, nil
}

// Uint64 returns the raw offset value.
func (o FileOffset) Uint64() uint64 { return o.v }

// AddBlockOffset returns o+b, failing if the sum would exceed MaxFileSize.
func (o FileOffset) AddBlockOffset(b BlockOffset) (FileOffset, error) {
	return NewFileOffset(o.v + uint64(b.v))
}

// ShardId is a reserved, globally unique 64-bit shard identifier. It is
// constructed but never resolved by this version.
type ShardId struct {
	v uint64
}

// NewShardId constructs a ShardId from a nonzero raw value.
func NewShardId(v uint64) (ShardId, error) {
	if v == 0 {
		return ShardId{}, xerrors.New("blockid: ShardId must be nonzero")
	}
	return ShardId{v: v}, nil
}

// Uint64 returns the raw shard id value.
func (s ShardId) Uint64() uint64 { return s.v }
