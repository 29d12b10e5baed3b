package infoblock

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sealedfs/sealedfs/blockid"
)

// InfoBlock is the decoded view of an info Block's contents: an ordered
// list of nodes, node 0 being the block's "entry point" (a Vault node for
// the top-level vault block, a Directory node for a directory block).
type InfoBlock struct {
	nodes []Node
}

// NewVault builds the top-level info block: a single Vault node pointing
// at root and index.
func NewVault(root, index blockid.BlockId) InfoBlock {
	return InfoBlock{nodes: []Node{NewVaultNode(BlockID(root), BlockID(index))}}
}

// NewIndex builds the distinguished, currently-empty Index block.
func NewIndex() InfoBlock {
	return InfoBlock{nodes: nil}
}

// NewDirectory builds an info block holding a single empty Directory node.
func NewDirectory() InfoBlock {
	return InfoBlock{nodes: []Node{NewDirectoryNode(nil)}}
}

// FromNodes wraps an explicit node list as an InfoBlock.
func FromNodes(nodes []Node) InfoBlock {
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	return InfoBlock{nodes: cp}
}

// NodeCount returns the number of nodes in the block.
func (ib InfoBlock) NodeCount() int { return len(ib.nodes) }

// NodeAt returns the node at index i. Panics if i is out of range: callers
// address nodes only through LocalIds produced by this same block, and an
// out-of-range LocalId is a malformed-encoding bug, not a caller error.
func (ib InfoBlock) NodeAt(i int) Node {
	return ib.nodes[i]
}

// Nodes returns a copy of the block's node list.
func (ib InfoBlock) Nodes() []Node {
	cp := make([]Node, len(ib.nodes))
	copy(cp, ib.nodes)
	return cp
}

// withNodes returns a copy of ib with its node list replaced.
func (ib InfoBlock) withNodes(nodes []Node) InfoBlock {
	return FromNodes(nodes)
}

// Encode serializes ib to bytes in the wire format Decode reads back. The
// format is a small fixed header per node (a uint8 kind tag, uint32
// lengths) followed by UTF-8 name bytes and Id payloads: binary.Write for
// fixed-width fields, explicit length prefixes for variable-width ones.
func (ib InfoBlock) Encode() []byte {
	var buf bytes.Buffer
	mustWrite(&buf, binary.LittleEndian, uint32(len(ib.nodes)))
	for _, n := range ib.nodes {
		writeNode(&buf, n)
	}
	return buf.Bytes()
}

// Decode parses bytes previously produced by Encode. It panics if data is
// truncated or structurally malformed: a corrupt info block is an
// invariant violation, not a recoverable condition for this version.
func Decode(data []byte) InfoBlock {
	r := bytes.NewReader(data)
	var count uint32
	mustRead(r, binary.LittleEndian, &count)
	nodes := make([]Node, count)
	for i := range nodes {
		nodes[i] = readNode(r)
	}
	return InfoBlock{nodes: nodes}
}

func writeNode(buf *bytes.Buffer, n Node) {
	switch n.kind {
	case DirectoryNode:
		mustWrite(buf, binary.LittleEndian, uint8(DirectoryNode))
		mustWrite(buf, binary.LittleEndian, uint32(len(n.entries)))
		for _, e := range n.entries {
			writeString(buf, e.Name)
			writeID(buf, e.ID)
		}
	case FileNode:
		mustWrite(buf, binary.LittleEndian, uint8(FileNode))
		mustWrite(buf, binary.LittleEndian, n.fileSize)
		writeID(buf, n.fileID)
	case VaultNode:
		mustWrite(buf, binary.LittleEndian, uint8(VaultNode))
		writeID(buf, n.root)
		writeID(buf, n.index)
	default:
		panic("infoblock: encode of node with unknown kind")
	}
}

func readNode(r *bytes.Reader) Node {
	var kind uint8
	mustRead(r, binary.LittleEndian, &kind)
	switch NodeKind(kind) {
	case DirectoryNode:
		var count uint32
		mustRead(r, binary.LittleEndian, &count)
		entries := make([]Entry, count)
		for i := range entries {
			entries[i] = Entry{Name: readString(r), ID: readID(r)}
		}
		return NewDirectoryNode(entries)
	case FileNode:
		var size uint64
		mustRead(r, binary.LittleEndian, &size)
		return NewFileNode(size, readID(r))
	case VaultNode:
		root := readID(r)
		index := readID(r)
		return NewVaultNode(root, index)
	default:
		panic("infoblock: decode of node with unknown kind byte")
	}
}

func writeID(buf *bytes.Buffer, id Id) {
	switch id.tag {
	case LocalTag:
		mustWrite(buf, binary.LittleEndian, uint8(LocalTag))
		mustWrite(buf, binary.LittleEndian, id.local)
	case BlockTag:
		mustWrite(buf, binary.LittleEndian, uint8(BlockTag))
		words := blockIDToWords(id.block)
		mustWrite(buf, binary.LittleEndian, words)
	case ShardTag:
		mustWrite(buf, binary.LittleEndian, uint8(ShardTag))
		mustWrite(buf, binary.LittleEndian, id.shard.Uint64())
	default:
		panic("infoblock: encode of Id with unknown tag")
	}
}

func readID(r *bytes.Reader) Id {
	var tag uint8
	mustRead(r, binary.LittleEndian, &tag)
	switch IdTag(tag) {
	case LocalTag:
		var local uint16
		mustRead(r, binary.LittleEndian, &local)
		return LocalID(local)
	case BlockTag:
		var words [4]uint64
		mustRead(r, binary.LittleEndian, &words)
		return BlockID(blockIDFromWords(words))
	case ShardTag:
		var v uint64
		mustRead(r, binary.LittleEndian, &v)
		shard, err := blockid.NewShardId(v)
		if err != nil {
			panic("infoblock: decode of ShardId: " + err.Error())
		}
		return ShardID(shard)
	default:
		panic("infoblock: decode of Id with unknown tag byte")
	}
}

func writeString(buf *bytes.Buffer, s string) {
	mustWrite(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) string {
	var length uint32
	mustRead(r, binary.LittleEndian, &length)
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		panic("infoblock: decode of name: " + err.Error())
	}
	return string(b)
}

// mustWrite panics on a binary.Write failure. The codec only ever writes
// into a bytes.Buffer, which cannot fail, but the error is checked rather
// than discarded.
func mustWrite(w io.Writer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic("infoblock: encoding: " + err.Error())
	}
}

func mustRead(r io.Reader, order binary.ByteOrder, data interface{}) {
	if err := binary.Read(r, order, data); err != nil {
		panic("infoblock: truncated or malformed encoding: " + err.Error())
	}
}

// blockIDToWords splits a BlockId's 32 raw bytes into four little-endian
// uint64 words, the on-wire representation of a block id.
func blockIDToWords(id blockid.BlockId) [4]uint64 {
	b := id.Bytes()
	var w [4]uint64
	for i := 0; i < 4; i++ {
		w[i] = binary.LittleEndian.Uint64(b[i*8 : i*8+8])
	}
	return w
}

// blockIDFromWords is the inverse of blockIDToWords.
func blockIDFromWords(w [4]uint64) blockid.BlockId {
	var b [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*8:i*8+8], w[i])
	}
	return blockid.FromBytes(b)
}
