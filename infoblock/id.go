// Package infoblock implements the structured schema encoded inside an
// info Block: nodes (directory/file/vault), their entries, and the
// three-way local/block/shard identifier union, together with the codec
// that reads and writes this schema as bytes.
package infoblock

import "github.com/sealedfs/sealedfs/blockid"

// IdTag discriminates the three ways an Id can reference a node.
type IdTag uint8

const (
	// LocalTag references a node within the same info block's node list.
	LocalTag IdTag = iota
	// BlockTag references another info block globally by BlockId.
	BlockTag
	// ShardTag references shard-resolvable content. Reserved; never
	// resolved by this version.
	ShardTag
)

func (t IdTag) String() string {
	switch t {
	case LocalTag:
		return "Local"
	case BlockTag:
		return "Block"
	case ShardTag:
		return "Shard"
	default:
		return "Unknown"
	}
}

// Id is the three-way tagged union an Entry or a Vault/File node uses to
// reference another node: a LocalId within the same block, a BlockId
// referencing another info block, or a reserved ShardId.
type Id struct {
	tag   IdTag
	local uint16
	block blockid.BlockId
	shard blockid.ShardId
}

// LocalID constructs an Id referencing the node at the given index within
// the containing info block's node list.
func LocalID(index uint16) Id {
	return Id{tag: LocalTag, local: index}
}

// BlockID constructs an Id referencing another info block.
func BlockID(id blockid.BlockId) Id {
	return Id{tag: BlockTag, block: id}
}

// ShardID constructs a reserved Id referencing shard-resolvable content.
func ShardID(id blockid.ShardId) Id {
	return Id{tag: ShardTag, shard: id}
}

// Tag reports which variant id holds.
func (id Id) Tag() IdTag { return id.tag }

// AsLocal returns the local node index and true if id is a LocalId.
func (id Id) AsLocal() (uint16, bool) {
	return id.local, id.tag == LocalTag
}

// AsBlock returns the referenced BlockId and true if id is a BlockId.
func (id Id) AsBlock() (blockid.BlockId, bool) {
	return id.block, id.tag == BlockTag
}

// AsShard returns the referenced ShardId and true if id is a ShardId.
func (id Id) AsShard() (blockid.ShardId, bool) {
	return id.shard, id.tag == ShardTag
}

// Equal reports whether id and other reference the same node by the same
// means (both local with equal index, or both block with equal id, or
// both shard with equal id).
func (id Id) Equal(other Id) bool {
	if id.tag != other.tag {
		return false
	}
	switch id.tag {
	case LocalTag:
		return id.local == other.local
	case BlockTag:
		return id.block.Equal(other.block)
	case ShardTag:
		return id.shard.Uint64() == other.shard.Uint64()
	default:
		return false
	}
}

// Entry is a named reference from a directory node to another node.
type Entry struct {
	Name string
	ID   Id
}
