// Package provider implements the content-addressed block store: an
// in-memory cache of plaintext blocks backed by a directory of on-disk
// encrypted blobs, one file per BlockId, plus the atomic pointer-file
// helpers a vault's root id is persisted through.
package provider

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/sealedfs/sealedfs/block"
	"github.com/sealedfs/sealedfs/blockid"
)

// Provider is a content-addressed store of blocks: a process-lifetime
// in-memory cache of decrypted blocks in front of a directory of on-disk
// encrypted blobs named by their BlockId.
type Provider struct {
	baseDir string
	cipher  block.Cipher

	mu     sync.Mutex
	blocks map[blockid.BlockId]block.Block
}

// New returns a Provider that persists encrypted blocks under baseDir and
// decrypts them with cipher when reading them back. baseDir is created if
// it does not already exist.
func New(baseDir string, cipher block.Cipher) (*Provider, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, xerrors.Errorf("provider: creating base dir: %w", err)
	}
	return &Provider{
		baseDir: baseDir,
		cipher:  cipher,
		blocks:  make(map[blockid.BlockId]block.Block),
	}, nil
}

// Cipher returns the cipher the provider decrypts on-disk blobs with.
func (p *Provider) Cipher() block.Cipher { return p.cipher }

func (p *Provider) blobPath(id blockid.BlockId) string {
	return filepath.Join(p.baseDir, id.Base64()+".bin")
}

// GetBlock returns the cached plaintext block for id, reading and
// decrypting its on-disk blob and populating the cache on a miss. It
// fails if neither the cache nor the disk has the block.
func (p *Provider) GetBlock(id blockid.BlockId) (block.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.blocks[id]; ok {
		return b, nil
	}
	b, err := p.loadBlockFromFileLocked(id, p.cipher)
	if err != nil {
		return block.Block{}, err
	}
	p.blocks[id] = b
	return b, nil
}

// LoadBlockFromFile reads id's blob from disk, decrypts it with cipher
// and populates the cache with the result. It is the explicit variant of
// GetBlock's miss path, used while opening a vault.
func (p *Provider) LoadBlockFromFile(id blockid.BlockId, cipher block.Cipher) (block.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.loadBlockFromFileLocked(id, cipher)
	if err != nil {
		return block.Block{}, err
	}
	p.blocks[id] = b
	return b, nil
}

func (p *Provider) loadBlockFromFileLocked(id blockid.BlockId, cipher block.Cipher) (block.Block, error) {
	data, err := ioutil.ReadFile(p.blobPath(id))
	if err != nil {
		return block.Block{}, xerrors.Errorf("provider: loading block %s: %w", id, err)
	}
	return block.FromBytes(data).Decrypt(id.Kind(), cipher), nil
}

// AddBlock caches plain in memory and writes eb's encrypted bytes to id's
// blob file. AddBlock is idempotent: if id is already cached, the
// existing block is returned and the disk is not touched again, matching
// the write-once semantics of content-addressed storage.
func (p *Provider) AddBlock(id blockid.BlockId, eb block.EncryptedBlock, plain block.Block) (block.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.blocks[id]; ok {
		return existing, nil
	}
	if err := renameio.WriteFile(p.blobPath(id), eb.Bytes(), 0644); err != nil {
		return block.Block{}, xerrors.Errorf("provider: writing block %s: %w", id, err)
	}
	p.blocks[id] = plain
	return plain, nil
}

// LoadBlockIDFromFile reads a BlockId previously written by
// SaveBlockIDToFile, e.g. a vault's root-pointer file.
func LoadBlockIDFromFile(path string) (blockid.BlockId, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return blockid.BlockId{}, xerrors.Errorf("provider: loading block id from %s: %w", path, err)
	}
	if len(data) != 32 {
		return blockid.BlockId{}, xerrors.Errorf("provider: pointer file %s has %d bytes, want 32", path, len(data))
	}
	var raw [32]byte
	copy(raw[:], data)
	return blockid.FromBytes(raw), nil
}

// SaveBlockIDToFile atomically writes id to path, so a crash between
// writing a new root block and updating the pointer can never leave the
// pointer referencing a root block that was never written, only (at
// worst) one still referencing the previous, equally valid root.
func SaveBlockIDToFile(path string, id blockid.BlockId) error {
	raw := id.Bytes()
	if err := renameio.WriteFile(path, raw[:], 0644); err != nil {
		return xerrors.Errorf("provider: saving block id to %s: %w", path, err)
	}
	return nil
}
