// Package vault implements the vault engine: opening and initializing a
// vault's on-disk pointer file, and the path-addressed directory
// operations (create, list) layered on top of the content-addressed
// block store.
package vault

import (
	"log"

	"golang.org/x/xerrors"

	"github.com/sealedfs/sealedfs/block"
	"github.com/sealedfs/sealedfs/blockid"
	"github.com/sealedfs/sealedfs/infoblock"
	"github.com/sealedfs/sealedfs/provider"
	"github.com/sealedfs/sealedfs/vaultpath"
)

// ErrPathNotFound is returned when a VaultPath does not resolve to an
// existing node.
var ErrPathNotFound = xerrors.New("vault: path not found")

// ErrNotADirectory is returned when a path component that must be a
// directory resolves to something else.
var ErrNotADirectory = xerrors.New("vault: path component is not a directory")

// ErrNotImplemented is returned by the file operations, which this
// version does not implement.
var ErrNotImplemented = xerrors.New("vault: not implemented")

// File is a named blob of file content.
type File struct {
	Name string
	Data []byte
}

// Entry is one row of a directory listing.
type Entry = infoblock.ListEntry

// Vault is a handle to an open vault: its provider, the path of its
// pointer file, and the ids of its currently-committed vault, root and
// index blocks.
type Vault struct {
	provider    *provider.Provider
	cipher      block.Cipher
	pointerPath string

	vaultBlockID blockid.BlockId
	rootID       blockid.BlockId
	indexID      blockid.BlockId
}

// Initialize creates a brand-new vault: an empty root directory
// containing a single "welcome" subdirectory, a reserved index block,
// and the top-level vault block tying them together, then atomically
// writes vaultBlockID to pointerPath.
func Initialize(p *provider.Provider, pointerPath string) (*Vault, error) {
	cipher := p.Cipher()

	rootIB := infoblock.NewDirectory()
	rootIB, _, err := rootIB.DirectoryCreateLocalNode(0, "welcome", infoblock.NewDirectoryNode(nil))
	if err != nil {
		return nil, xerrors.Errorf("vault: initializing root directory: %w", err)
	}
	rootID, err := addInfoBlock(p, cipher, rootIB)
	if err != nil {
		return nil, xerrors.Errorf("vault: writing root block: %w", err)
	}

	indexID, err := addInfoBlock(p, cipher, infoblock.NewIndex())
	if err != nil {
		return nil, xerrors.Errorf("vault: writing index block: %w", err)
	}

	vaultIB := infoblock.NewVault(rootID, indexID)
	vaultBlockID, err := addInfoBlock(p, cipher, vaultIB)
	if err != nil {
		return nil, xerrors.Errorf("vault: writing vault block: %w", err)
	}

	if err := provider.SaveBlockIDToFile(pointerPath, vaultBlockID); err != nil {
		return nil, xerrors.Errorf("vault: writing pointer file: %w", err)
	}

	log.Printf("vault: initialized at %s (vault=%s)", pointerPath, vaultBlockID)
	return &Vault{
		provider:     p,
		cipher:       cipher,
		pointerPath:  pointerPath,
		vaultBlockID: vaultBlockID,
		rootID:       rootID,
		indexID:      indexID,
	}, nil
}

// Open reads pointerPath's vault block id, loads and decodes the vault
// block, and returns a Vault handle positioned at its current root and
// index.
func Open(p *provider.Provider, pointerPath string) (*Vault, error) {
	vaultBlockID, err := provider.LoadBlockIDFromFile(pointerPath)
	if err != nil {
		return nil, xerrors.Errorf("vault: opening %s: %w", pointerPath, err)
	}
	cipher := p.Cipher()
	vaultBlock, err := p.LoadBlockFromFile(vaultBlockID, cipher)
	if err != nil {
		return nil, xerrors.Errorf("vault: loading vault block: %w", err)
	}
	vaultIB := infoblock.Decode(vaultBlock.Data())
	rootID, indexID := vaultIB.GetRootIDAndIndexID()
	if _, err := p.LoadBlockFromFile(rootID, cipher); err != nil {
		return nil, xerrors.Errorf("vault: loading root block: %w", err)
	}
	if _, err := p.LoadBlockFromFile(indexID, cipher); err != nil {
		return nil, xerrors.Errorf("vault: loading index block: %w", err)
	}

	return &Vault{
		provider:     p,
		cipher:       cipher,
		pointerPath:  pointerPath,
		vaultBlockID: vaultBlockID,
		rootID:       rootID,
		indexID:      indexID,
	}, nil
}

// RootID returns the BlockId of the vault's current root directory block.
func (v *Vault) RootID() blockid.BlockId { return v.rootID }

// IndexID returns the BlockId of the vault's index block.
func (v *Vault) IndexID() blockid.BlockId { return v.indexID }

// VaultBlockID returns the BlockId of the vault's current top-level block.
func (v *Vault) VaultBlockID() blockid.BlockId { return v.vaultBlockID }

// ResolveBlock implements infoblock.NodeResolver, letting DirectoryList
// resolve block-addressed entries through this vault's provider.
func (v *Vault) ResolveBlock(id blockid.BlockId) (infoblock.InfoBlock, error) {
	return loadInfoBlock(v.provider, id)
}

// List returns the entries of the directory at path.
func (v *Vault) List(path vaultpath.VaultPath) ([]Entry, error) {
	ib, nodeIdx, err := v.resolveDirectory(path)
	if err != nil {
		return nil, err
	}
	entries, err := ib.DirectoryList(nodeIdx, v)
	if err != nil {
		return nil, xerrors.Errorf("vault: listing %s: %w", path, err)
	}
	return entries, nil
}

// Get is unimplemented: file content storage is out of scope for this
// version.
func (v *Vault) Get(path vaultpath.VaultPath) (File, bool, error) {
	return File{}, false, ErrNotImplemented
}

// Put is unimplemented: file content storage is out of scope for this
// version.
func (v *Vault) Put(path vaultpath.VaultPath, f File) error {
	return ErrNotImplemented
}

// resolveDirectory walks path from the root, resolving both local and
// block-addressed directory entries, and returns the info block holding
// the target directory node together with that node's index within it.
func (v *Vault) resolveDirectory(path vaultpath.VaultPath) (infoblock.InfoBlock, int, error) {
	ib, err := loadInfoBlock(v.provider, v.rootID)
	if err != nil {
		return infoblock.InfoBlock{}, 0, xerrors.Errorf("vault: loading root block: %w", err)
	}
	nodeIdx := 0

	for _, name := range path.Components() {
		id, found := ib.DirectoryGetEntryBlockIDAndNodeIndex(nodeIdx, name)
		if !found {
			return infoblock.InfoBlock{}, 0, xerrors.Errorf("%w: %s", ErrPathNotFound, path)
		}
		switch id.Tag() {
		case infoblock.LocalTag:
			idx, _ := id.AsLocal()
			if ib.NodeAt(int(idx)).Kind() != infoblock.DirectoryNode {
				return infoblock.InfoBlock{}, 0, xerrors.Errorf("%w: %s", ErrNotADirectory, path)
			}
			nodeIdx = int(idx)
		case infoblock.BlockTag:
			blockID, _ := id.AsBlock()
			child, err := loadInfoBlock(v.provider, blockID)
			if err != nil {
				return infoblock.InfoBlock{}, 0, xerrors.Errorf("vault: resolving %q: %w", name, err)
			}
			if child.NodeAt(0).Kind() != infoblock.DirectoryNode {
				return infoblock.InfoBlock{}, 0, xerrors.Errorf("%w: %s", ErrNotADirectory, path)
			}
			ib, nodeIdx = child, 0
		default:
			return infoblock.InfoBlock{}, 0, xerrors.Errorf("vault: %q is not a directory entry this version can resolve", name)
		}
	}
	return ib, nodeIdx, nil
}

// realFrame is one separately-addressed info block touched by a
// CreateDirectory walk: the block as it was last loaded (or freshly
// created), and, for every frame but the root, the location of the entry
// in its parent real frame that references it by BlockId.
type realFrame struct {
	id blockid.BlockId
	ib infoblock.InfoBlock

	parent          int    // index into the realFrame slice, or -1 for the root
	parentNodeIndex int    // node index within the parent's ib holding the entry below
	parentEntryName string // entry name within the parent's ib
}

// CreateDirectory ensures path and all of its ancestors exist, creating
// whichever suffix of path does not already exist. It walks
// forward from the root over an explicit stack (never recursion over
// borrowed state), tracking both the chain of separately-addressed info
// blocks it passes through (BlockId-referenced children) and its current
// position inside the nearest such block (which may be several
// LocalId-addressed directory levels deep, since every freshly created
// directory is inlined as a local node of its nearest real ancestor
// rather than becoming its own block). Once the suffix is created, it
// walks the real-block chain backward, patching each parent's entry to
// the freshly recomputed BlockId of its child, and finally commits the
// new root through the vault block and the pointer file: a crash at any
// point before the pointer-file write leaves the previous, still-valid
// tree intact.
//
// CreateDirectory is idempotent: creating a path that already exists is a
// no-op, including when that existing path descends through
// locally-addressed entries.
func (v *Vault) CreateDirectory(path vaultpath.VaultPath) error {
	components := path.Components()
	if len(components) == 0 {
		return nil
	}

	rootIB, err := loadInfoBlock(v.provider, v.rootID)
	if err != nil {
		return xerrors.Errorf("vault: loading root block: %w", err)
	}

	frames := []realFrame{{id: v.rootID, ib: rootIB, parent: -1}}
	curReal := 0
	curNodeIndex := 0
	createdAnything := false

	for _, name := range components {
		real := &frames[curReal]
		entryID, found := real.ib.DirectoryGetEntryBlockIDAndNodeIndex(curNodeIndex, name)
		if found {
			switch entryID.Tag() {
			case infoblock.LocalTag:
				idx, _ := entryID.AsLocal()
				if real.ib.NodeAt(int(idx)).Kind() != infoblock.DirectoryNode {
					return xerrors.Errorf("%w: %q", ErrNotADirectory, name)
				}
				curNodeIndex = int(idx)
			case infoblock.BlockTag:
				childBlockID, _ := entryID.AsBlock()
				childIB, err := loadInfoBlock(v.provider, childBlockID)
				if err != nil {
					return xerrors.Errorf("vault: resolving %q: %w", name, err)
				}
				if childIB.NodeAt(0).Kind() != infoblock.DirectoryNode {
					return xerrors.Errorf("%w: %q", ErrNotADirectory, name)
				}
				frames = append(frames, realFrame{
					id:              childBlockID,
					ib:              childIB,
					parent:          curReal,
					parentNodeIndex: curNodeIndex,
					parentEntryName: name,
				})
				curReal = len(frames) - 1
				curNodeIndex = 0
			default:
				return xerrors.Errorf("vault: %q is not a directory entry this version can resolve", name)
			}
			continue
		}

		newIB, newIdx, err := real.ib.DirectoryCreateLocalNode(curNodeIndex, name, infoblock.NewDirectoryNode(nil))
		if err != nil {
			return xerrors.Errorf("vault: creating %q: %w", name, err)
		}
		real.ib = newIB
		curNodeIndex = int(newIdx)
		createdAnything = true
	}

	if !createdAnything {
		return nil
	}

	// Backward pass: commit the deepest real frame first, patching each
	// parent's entry with the freshly committed child id as we go.
	var pendingChildID blockid.BlockId
	havePendingChild := false
	var pendingNodeIndex int
	var pendingEntryName string

	var newRootID blockid.BlockId
	for i := len(frames) - 1; i >= 0; i-- {
		f := &frames[i]
		if havePendingChild {
			f.ib, _ = f.ib.DirectorySetEntryBlockIDAndNodeIndex(pendingNodeIndex, pendingEntryName, infoblock.BlockID(pendingChildID))
		}
		id, err := addInfoBlock(v.provider, v.cipher, f.ib)
		if err != nil {
			return xerrors.Errorf("vault: writing directory block: %w", err)
		}
		if f.parent < 0 {
			newRootID = id
			break
		}
		pendingChildID, havePendingChild = id, true
		pendingNodeIndex, pendingEntryName = f.parentNodeIndex, f.parentEntryName
	}

	vaultIB, err := loadInfoBlock(v.provider, v.vaultBlockID)
	if err != nil {
		return xerrors.Errorf("vault: loading vault block: %w", err)
	}
	vaultIB = vaultIB.UpdateRootID(newRootID)
	newVaultBlockID, err := addInfoBlock(v.provider, v.cipher, vaultIB)
	if err != nil {
		return xerrors.Errorf("vault: writing vault block: %w", err)
	}

	if err := provider.SaveBlockIDToFile(v.pointerPath, newVaultBlockID); err != nil {
		return xerrors.Errorf("vault: updating pointer file: %w", err)
	}

	v.rootID = newRootID
	v.vaultBlockID = newVaultBlockID
	log.Printf("vault: created %s (root=%s)", path, v.rootID)
	return nil
}

func loadInfoBlock(p *provider.Provider, id blockid.BlockId) (infoblock.InfoBlock, error) {
	b, err := p.GetBlock(id)
	if err != nil {
		return infoblock.InfoBlock{}, err
	}
	return infoblock.Decode(b.Data()), nil
}

// addInfoBlock encodes ib, pads the result up to the smallest supported
// block size it fits in (an info block's encoding is variable-length,
// but every BlockId names one of the 16 fixed power-of-two block sizes),
// encrypts and writes it, and returns its BlockId.
func addInfoBlock(p *provider.Provider, cipher block.Cipher, ib infoblock.InfoBlock) (blockid.BlockId, error) {
	encoded := ib.Encode()
	size, err := blockid.SmallestBlockSizeAtLeast(uint32(len(encoded)))
	if err != nil {
		return blockid.BlockId{}, xerrors.Errorf("vault: encoding info block: %w", err)
	}
	padded := make([]byte, size.Bytes())
	copy(padded, encoded)

	b := block.New(blockid.InfoKind, padded)
	eb := block.Encrypt(b, cipher)
	id, err := eb.ID(blockid.InfoKind)
	if err != nil {
		return blockid.BlockId{}, err
	}
	if _, err := p.AddBlock(id, eb, b); err != nil {
		return blockid.BlockId{}, err
	}
	return id, nil
}
