package infoblock

// NodeKind discriminates the three shapes a Node can take.
type NodeKind uint8

const (
	// DirectoryNode holds a list of named Entry references.
	DirectoryNode NodeKind = iota
	// FileNode holds a content size and an Id pointing at the file's data.
	FileNode
	// VaultNode holds the root directory Id and the index Id. Node 0 of a
	// vault's top-level info block is a VaultNode.
	VaultNode
)

func (k NodeKind) String() string {
	switch k {
	case DirectoryNode:
		return "Directory"
	case FileNode:
		return "File"
	case VaultNode:
		return "Vault"
	default:
		return "Unknown"
	}
}

// Node is the tagged union of the three node shapes an info block's node
// list can hold. Go has no sum types, so Node carries all three payloads
// and a kind tag; callers switch on Kind() and read the matching accessor.
type Node struct {
	kind NodeKind

	entries []Entry // DirectoryNode

	fileSize uint64 // FileNode
	fileID   Id     // FileNode

	root  Id // VaultNode
	index Id // VaultNode
}

// NewDirectoryNode builds a Directory node from entries. The slice is
// copied; later mutation of the caller's slice does not affect the node.
func NewDirectoryNode(entries []Entry) Node {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return Node{kind: DirectoryNode, entries: cp}
}

// NewFileNode builds a File node referencing size bytes of content at id.
func NewFileNode(size uint64, id Id) Node {
	return Node{kind: FileNode, fileSize: size, fileID: id}
}

// NewVaultNode builds a Vault node from its root directory and index ids.
func NewVaultNode(root, index Id) Node {
	return Node{kind: VaultNode, root: root, index: index}
}

// Kind reports which shape the node holds.
func (n Node) Kind() NodeKind { return n.kind }

// Entries returns the node's entries and true if n is a Directory node.
// The returned slice is a copy.
func (n Node) Entries() ([]Entry, bool) {
	if n.kind != DirectoryNode {
		return nil, false
	}
	cp := make([]Entry, len(n.entries))
	copy(cp, n.entries)
	return cp, true
}

// File returns the node's size and content Id and true if n is a File node.
func (n Node) File() (uint64, Id, bool) {
	if n.kind != FileNode {
		return 0, Id{}, false
	}
	return n.fileSize, n.fileID, true
}

// Vault returns the node's root and index Ids and true if n is a Vault node.
func (n Node) Vault() (root, index Id, ok bool) {
	if n.kind != VaultNode {
		return Id{}, Id{}, false
	}
	return n.root, n.index, true
}

// withEntries returns a copy of n with its entries replaced. Panics if n is
// not a Directory node; callers are expected to have checked Kind first.
func (n Node) withEntries(entries []Entry) Node {
	if n.kind != DirectoryNode {
		panic("infoblock: withEntries on a non-Directory node")
	}
	return NewDirectoryNode(entries)
}
