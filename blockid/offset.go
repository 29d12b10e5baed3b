package blockid

import "golang.org/x/xerrors"

// stripe describes one run of same-sized blocks in the deterministic
// variable-size prefix: blockCount blocks of size bytes each, starting at
// file offset startOffset and block index startIndex.
type stripe struct {
	startOffset uint64
	startIndex  uint32
	size        uint32
	blockCount  uint32
}

// stripes is built once at init time from the block size schedule: for
// each size marker m in [0,15], a base of 16 blocks of size 2^(12+m), plus
// (for m>3) a run of m-3 extra blocks of that same size appended before the
// transition to the next marker. This keeps cumulative offsets aligned to
// the next stripe's block size.
var stripes [MaxSizeMarker + 1]stripe

// RepeatingBlocksStartOffset is the total size of the deterministic prefix
// (block indices 0..333); at and beyond this file offset, blocks are
// uniform at the maximum 128 MiB size.
const RepeatingBlocksStartOffset = uint64(7_247_757_312)

// RepeatingBlocksStartIndex is the first block index of the uniform tail.
const RepeatingBlocksStartIndex = uint32(334)

// MaxBlockSizeBytes is the size of every block in the uniform tail.
const MaxBlockSizeBytes = uint32(1) << 27

func init() {
	var offset uint64
	var index uint32
	for m := uint8(0); m <= MaxSizeMarker; m++ {
		size := uint32(1) << (12 + m)
		count := uint32(16)
		if m > 3 {
			count += uint32(m) - 3
		}
		stripes[m] = stripe{
			startOffset: offset,
			startIndex:  index,
			size:        size,
			blockCount:  count,
		}
		offset += uint64(size) * uint64(count)
		index += count
	}
	if offset != RepeatingBlocksStartOffset {
		panic("blockid: deterministic prefix schedule does not sum to RepeatingBlocksStartOffset")
	}
	if index != RepeatingBlocksStartIndex {
		panic("blockid: deterministic prefix schedule does not span RepeatingBlocksStartIndex blocks")
	}
}

// Translate maps a FileOffset to the (BlockIndex, BlockOffset) pair that
// addresses it under the deterministic schedule: a variable-size prefix
// (block indices 0..333) followed by uniform 128 MiB blocks.
func Translate(o FileOffset) (BlockIndex, BlockOffset, error) {
	if o.v >= MaxFileSize {
		return BlockIndex{}, BlockOffset{}, xerrors.Errorf("blockid: file offset %d is not less than MaxFileSize %d", o.v, MaxFileSize)
	}

	if o.v >= RepeatingBlocksStartOffset {
		rel := o.v - RepeatingBlocksStartOffset
		idx := RepeatingBlocksStartIndex + uint32(rel/uint64(MaxBlockSizeBytes))
		off := uint32(rel % uint64(MaxBlockSizeBytes))
		return NewBlockIndex(idx), BlockOffset{v: off}, nil
	}

	for _, s := range stripes {
		stripeEnd := s.startOffset + uint64(s.size)*uint64(s.blockCount)
		if o.v < stripeEnd {
			rel := o.v - s.startOffset
			withinIdx := uint32(rel / uint64(s.size))
			off := uint32(rel % uint64(s.size))
			return NewBlockIndex(s.startIndex + withinIdx), BlockOffset{v: off}, nil
		}
	}
	// Unreachable: the stripes cover [0, RepeatingBlocksStartOffset) by
	// construction and o.v < RepeatingBlocksStartOffset was checked above.
	return BlockIndex{}, BlockOffset{}, xerrors.Errorf("blockid: BUG: offset %d not covered by any stripe", o.v)
}

// BlockSizeForIndex returns the block size of the i-th block under the
// deterministic schedule.
func BlockSizeForIndex(i BlockIndex) BlockSize {
	if i.v >= RepeatingBlocksStartIndex {
		sz, _ := NewBlockSize(MaxBlockSizeBytes)
		return sz
	}
	for _, s := range stripes {
		if i.v >= s.startIndex && i.v < s.startIndex+s.blockCount {
			sz, _ := NewBlockSize(s.size)
			return sz
		}
	}
	sz, _ := NewBlockSize(MaxBlockSizeBytes)
	return sz
}
