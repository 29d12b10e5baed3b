package infoblock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"

	"github.com/sealedfs/sealedfs/blockid"
)

func mustBlockID(t *testing.T, b byte) blockid.BlockId {
	t.Helper()
	var hash [32]byte
	hash[0] = b
	size, err := blockid.NewBlockSize(4096)
	if err != nil {
		t.Fatal(err)
	}
	id, err := blockid.New(hash, size, true)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestEncodeDecodeRoundTripVault(t *testing.T) {
	root := mustBlockID(t, 1)
	index := mustBlockID(t, 2)
	ib := NewVault(root, index)

	decoded := Decode(ib.Encode())

	gotRoot, gotIndex := decoded.GetRootIDAndIndexID()
	if !gotRoot.Equal(root) {
		t.Fatalf("root id mismatch after round trip")
	}
	if !gotIndex.Equal(index) {
		t.Fatalf("index id mismatch after round trip")
	}
}

func TestEncodeDecodeRoundTripDirectory(t *testing.T) {
	ib := NewDirectory()
	ib, idx, err := ib.DirectoryCreateLocalNode(0, "welcome", NewDirectoryNode(nil))
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("expected new node index 1, got %d", idx)
	}

	decoded := Decode(ib.Encode())
	entries, ok := decoded.NodeAt(0).Entries()
	if !ok {
		t.Fatalf("node 0 is not a Directory after round trip")
	}
	if len(entries) != 1 || entries[0].Name != "welcome" {
		t.Fatalf("unexpected entries after round trip: %+v", entries)
	}
	local, ok := entries[0].ID.AsLocal()
	if !ok || local != 1 {
		t.Fatalf("expected local entry index 1, got %v ok=%v", local, ok)
	}
}

func TestEncodeDecodeRoundTripBlockEntry(t *testing.T) {
	child := mustBlockID(t, 9)
	ib := NewDirectory()
	entries, _ := ib.NodeAt(0).Entries()
	entries = append(entries, Entry{Name: "other-vault", ID: BlockID(child)})
	ib = ib.withNodes([]Node{ib.NodeAt(0).withEntries(entries)})

	decoded := Decode(ib.Encode())
	got, ok := decoded.DirectoryGetEntryBlockIDAndNodeIndex(0, "other-vault")
	if !ok {
		t.Fatalf("expected entry to be found")
	}
	blockID, ok := got.AsBlock()
	if !ok || !blockID.Equal(child) {
		t.Fatalf("block id mismatch after round trip")
	}
}

func TestDirectoryCreateLocalNodeAppendsAndIndexes(t *testing.T) {
	ib := NewDirectory()
	var err error
	ib, idxA, err := ib.DirectoryCreateLocalNode(0, "a", NewDirectoryNode(nil))
	if err != nil {
		t.Fatal(err)
	}
	ib, idxB, err := ib.DirectoryCreateLocalNode(0, "b", NewFileNode(42, LocalID(idxA)))
	if err != nil {
		t.Fatal(err)
	}
	if idxA == idxB {
		t.Fatalf("expected distinct local indices, got %d and %d", idxA, idxB)
	}
	if ib.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes (directory + a + b), got %d", ib.NodeCount())
	}

	size, id, ok := ib.NodeAt(int(idxB)).File()
	if !ok || size != 42 {
		t.Fatalf("unexpected file node: size=%d ok=%v", size, ok)
	}
	local, ok := id.AsLocal()
	if !ok || local != idxA {
		t.Fatalf("file node should reference idxA, got %d ok=%v", local, ok)
	}
}

func TestDirectorySetEntryBlockIDAndNodeIndex(t *testing.T) {
	ib := NewDirectory()
	ib, idx, err := ib.DirectoryCreateLocalNode(0, "f", NewFileNode(0, LocalID(0)))
	if err != nil {
		t.Fatal(err)
	}

	replacement := mustBlockID(t, 7)
	updated, changed := ib.DirectorySetEntryBlockIDAndNodeIndex(0, "f", BlockID(replacement))
	if !changed {
		t.Fatalf("expected entry to be found and changed")
	}
	got, ok := updated.DirectoryGetEntryBlockIDAndNodeIndex(0, "f")
	if !ok {
		t.Fatalf("expected entry still present")
	}
	gotBlock, ok := got.AsBlock()
	if !ok || !gotBlock.Equal(replacement) {
		t.Fatalf("entry id not updated")
	}

	// original is untouched (functional update).
	orig, ok := ib.DirectoryGetEntryBlockIDAndNodeIndex(0, "f")
	if !ok {
		t.Fatalf("original entry missing")
	}
	origLocal, ok := orig.AsLocal()
	if !ok || origLocal != idx {
		t.Fatalf("original entry should be untouched, got %v ok=%v", origLocal, ok)
	}

	_, changed = ib.DirectorySetEntryBlockIDAndNodeIndex(0, "nope", BlockID(replacement))
	if changed {
		t.Fatalf("expected no change for missing entry")
	}

	// Re-setting the id an entry already holds is reported as no change.
	_, changed = updated.DirectorySetEntryBlockIDAndNodeIndex(0, "f", BlockID(replacement))
	if changed {
		t.Fatalf("expected no change setting an entry to its current id")
	}
}

type fakeResolver struct {
	blocks map[blockid.BlockId]InfoBlock
}

func (f fakeResolver) ResolveBlock(id blockid.BlockId) (InfoBlock, error) {
	ib, ok := f.blocks[id]
	if !ok {
		return InfoBlock{}, xerrors.Errorf("fakeResolver: no block registered for %s", id)
	}
	return ib, nil
}

func TestDirectoryListResolvesLocalAndBlockEntries(t *testing.T) {
	childVaultID := mustBlockID(t, 3)
	childVault := NewVault(mustBlockID(t, 4), mustBlockID(t, 5))

	ib := NewDirectory()
	ib, _, err := ib.DirectoryCreateLocalNode(0, "local-dir", NewDirectoryNode(nil))
	if err != nil {
		t.Fatal(err)
	}
	entries, _ := ib.NodeAt(0).Entries()
	entries = append(entries, Entry{Name: "nested-vault", ID: BlockID(childVaultID)})
	ib = ib.withNodes([]Node{ib.NodeAt(0).withEntries(entries), ib.NodeAt(1)})

	resolver := fakeResolver{blocks: map[blockid.BlockId]InfoBlock{childVaultID: childVault}}
	list, err := ib.DirectoryList(0, resolver)
	if err != nil {
		t.Fatal(err)
	}
	want := []ListEntry{
		{Name: "local-dir", Kind: DirectoryNode},
		{Name: "nested-vault", Kind: VaultNode},
	}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Fatalf("listing: diff (-want +got):\n%s", diff)
	}
}

func TestDirectoryListAllLocalKinds(t *testing.T) {
	ib := NewDirectory()
	var err error
	ib, _, err = ib.DirectoryCreateLocalNode(0, "subdir", NewDirectoryNode(nil))
	if err != nil {
		t.Fatal(err)
	}
	ib, _, err = ib.DirectoryCreateLocalNode(0, "notes.txt", NewFileNode(123, LocalID(0)))
	if err != nil {
		t.Fatal(err)
	}
	ib, _, err = ib.DirectoryCreateLocalNode(0, "inner-vault", NewVaultNode(LocalID(0), LocalID(0)))
	if err != nil {
		t.Fatal(err)
	}

	// Every entry is a LocalId, so no resolver is needed.
	list, err := ib.DirectoryList(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []ListEntry{
		{Name: "subdir", Kind: DirectoryNode},
		{Name: "notes.txt", Kind: FileNode},
		{Name: "inner-vault", Kind: VaultNode},
	}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Fatalf("listing: diff (-want +got):\n%s", diff)
	}
}

func TestUpdateRootID(t *testing.T) {
	root := mustBlockID(t, 1)
	index := mustBlockID(t, 2)
	newRoot := mustBlockID(t, 3)

	ib := NewVault(root, index)
	updated := ib.UpdateRootID(newRoot)

	gotRoot, gotIndex := updated.GetRootIDAndIndexID()
	if !gotRoot.Equal(newRoot) {
		t.Fatalf("root id not updated")
	}
	if !gotIndex.Equal(index) {
		t.Fatalf("index id should be unchanged")
	}

	// original untouched.
	origRoot, _ := ib.GetRootIDAndIndexID()
	if !origRoot.Equal(root) {
		t.Fatalf("original vault block mutated")
	}
}

func TestGetRootIDAndIndexIDPanicsOnNonVaultNode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewDirectory().GetRootIDAndIndexID()
}
