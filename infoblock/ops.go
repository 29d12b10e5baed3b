package infoblock

import (
	"golang.org/x/xerrors"

	"github.com/sealedfs/sealedfs/blockid"
)

// maxLocalNodes is the largest number of nodes one info block may hold,
// bounded by the 16-bit width of a LocalId.
const maxLocalNodes = 1<<16 - 1

// GetRootIDAndIndexID returns the root directory and index BlockIds held
// by the top-level Vault node (node 0). It panics if node 0 is not a
// Vault node or if either id it holds is not itself a BlockId: both are
// invariant violations for a well-formed vault info block, not conditions
// a caller can usefully recover from.
func (ib InfoBlock) GetRootIDAndIndexID() (rootID, indexID blockid.BlockId) {
	root, index, ok := ib.NodeAt(0).Vault()
	if !ok {
		panic("infoblock: GetRootIDAndIndexID: node 0 is not a Vault node")
	}
	rootID, ok = root.AsBlock()
	if !ok {
		panic("infoblock: GetRootIDAndIndexID: vault's root id is not a BlockId")
	}
	indexID, ok = index.AsBlock()
	if !ok {
		panic("infoblock: GetRootIDAndIndexID: vault's index id is not a BlockId")
	}
	return rootID, indexID
}

// UpdateRootID returns a copy of ib with the top-level Vault node's root
// id replaced by newRoot, its index id unchanged. Panics if node 0 is not
// a Vault node.
func (ib InfoBlock) UpdateRootID(newRoot blockid.BlockId) InfoBlock {
	_, index, ok := ib.NodeAt(0).Vault()
	if !ok {
		panic("infoblock: UpdateRootID: node 0 is not a Vault node")
	}
	nodes := ib.Nodes()
	nodes[0] = NewVaultNode(BlockID(newRoot), index)
	return ib.withNodes(nodes)
}

// DirectoryCreateLocalNode appends newNode to ib's node list and adds an
// entry named name pointing at it (by LocalId) to the directory at
// dirNodeIdx. It returns the updated block and the new node's local
// index. Panics if the node at dirNodeIdx is not a Directory node; fails
// with an error (not a panic, since a large enough vault can reach this
// in ordinary operation) if the node list is already at its 65535-node
// capacity.
func (ib InfoBlock) DirectoryCreateLocalNode(dirNodeIdx int, name string, newNode Node) (InfoBlock, uint16, error) {
	entries, ok := ib.NodeAt(dirNodeIdx).Entries()
	if !ok {
		panic("infoblock: DirectoryCreateLocalNode: node is not a Directory node")
	}
	if len(ib.nodes) >= maxLocalNodes {
		return InfoBlock{}, 0, xerrors.Errorf("infoblock: node list is full at %d nodes", maxLocalNodes)
	}

	newIndex := uint16(len(ib.nodes))
	nodes := ib.Nodes()
	nodes = append(nodes, newNode)
	entries = append(entries, Entry{Name: name, ID: LocalID(newIndex)})
	nodes[dirNodeIdx] = nodes[dirNodeIdx].withEntries(entries)
	return ib.withNodes(nodes), newIndex, nil
}

// DirectoryGetEntryBlockIDAndNodeIndex looks up name among the entries of
// the directory at dirNodeIdx and returns its Id (local, block or shard)
// and true, or a zero Id and false if no entry by that name exists.
// Panics if the node at dirNodeIdx is not a Directory node.
func (ib InfoBlock) DirectoryGetEntryBlockIDAndNodeIndex(dirNodeIdx int, name string) (Id, bool) {
	entries, ok := ib.NodeAt(dirNodeIdx).Entries()
	if !ok {
		panic("infoblock: DirectoryGetEntryBlockIDAndNodeIndex: node is not a Directory node")
	}
	for _, e := range entries {
		if e.Name == name {
			return e.ID, true
		}
	}
	return Id{}, false
}

// DirectorySetEntryBlockIDAndNodeIndex finds the entry named name in the
// directory at dirNodeIdx and replaces its Id with newID, returning the
// updated block and true. If no entry by that name exists, or the entry
// already holds newID, it returns ib unchanged and false. Panics if the
// node at dirNodeIdx is not a Directory node.
func (ib InfoBlock) DirectorySetEntryBlockIDAndNodeIndex(dirNodeIdx int, name string, newID Id) (InfoBlock, bool) {
	entries, ok := ib.NodeAt(dirNodeIdx).Entries()
	if !ok {
		panic("infoblock: DirectorySetEntryBlockIDAndNodeIndex: node is not a Directory node")
	}
	for i, e := range entries {
		if e.Name == name {
			if e.ID.Equal(newID) {
				return ib, false
			}
			entries[i] = Entry{Name: e.Name, ID: newID}
			nodes := ib.Nodes()
			nodes[dirNodeIdx] = nodes[dirNodeIdx].withEntries(entries)
			return ib.withNodes(nodes), true
		}
	}
	return ib, false
}

// ListEntry is one row of a directory listing: an entry's name and the
// kind of node it resolves to.
type ListEntry struct {
	Name string
	Kind NodeKind
}

// NodeResolver resolves a BlockId to the info block it names. The vault
// engine implements it by loading and decoding the block from the
// provider; infoblock itself has no notion of storage.
type NodeResolver interface {
	ResolveBlock(id blockid.BlockId) (InfoBlock, error)
}

// DirectoryList lists the directory at dirNodeIdx's entries, resolving
// each entry's kind: local entries look their node up directly in ib,
// block-addressed entries are resolved via resolver (closing the gap
// where only same-block entries could be listed). Shard-addressed
// entries are not supported in this version and produce an error. Panics
// if the node at dirNodeIdx is not a Directory node.
func (ib InfoBlock) DirectoryList(dirNodeIdx int, resolver NodeResolver) ([]ListEntry, error) {
	entries, ok := ib.NodeAt(dirNodeIdx).Entries()
	if !ok {
		panic("infoblock: DirectoryList: node is not a Directory node")
	}

	result := make([]ListEntry, 0, len(entries))
	for _, e := range entries {
		kind, err := ib.resolveEntryKind(e, resolver)
		if err != nil {
			return nil, xerrors.Errorf("infoblock: listing entry %q: %w", e.Name, err)
		}
		result = append(result, ListEntry{Name: e.Name, Kind: kind})
	}
	return result, nil
}

func (ib InfoBlock) resolveEntryKind(e Entry, resolver NodeResolver) (NodeKind, error) {
	switch e.ID.Tag() {
	case LocalTag:
		idx, _ := e.ID.AsLocal()
		return ib.NodeAt(int(idx)).Kind(), nil
	case BlockTag:
		blockID, _ := e.ID.AsBlock()
		if resolver == nil {
			return 0, xerrors.Errorf("infoblock: block-addressed entry requires a NodeResolver")
		}
		resolved, err := resolver.ResolveBlock(blockID)
		if err != nil {
			return 0, xerrors.Errorf("resolving block %s: %w", blockID, err)
		}
		return resolved.NodeAt(0).Kind(), nil
	case ShardTag:
		return 0, xerrors.Errorf("shard-addressed entries are not resolvable in this version")
	default:
		return 0, xerrors.Errorf("unknown id tag")
	}
}
