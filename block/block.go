// Package block implements the immutable byte-buffer types the store is
// built from: a plaintext Block and its encrypted, hashable counterpart
// EncryptedBlock.
package block

import (
	"github.com/sealedfs/sealedfs/blockid"
	"lukechampine.com/blake3"
)

// Block is an immutable, unencrypted byte buffer.
type Block struct {
	kind blockid.Kind
	data []byte
}

// New wraps data as a Block of the given kind. The caller's slice is
// copied so later mutation of the original does not alter the Block.
func New(kind blockid.Kind, data []byte) Block {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Block{kind: kind, data: cp}
}

// Data returns a copy of the block's bytes; callers may mutate the result
// freely without affecting the Block.
func (b Block) Data() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

// Kind returns the block's Kind.
func (b Block) Kind() blockid.Kind { return b.kind }

// Size returns the block's size in bytes.
func (b Block) Size() int { return len(b.data) }

// Cipher encrypts and decrypts block bytes. The only implementation
// shipped in this version, IdentityCipher, performs no transformation;
// Cipher exists so a real algorithm can be substituted later without
// changing any caller.
type Cipher interface {
	Encrypt(plaintext []byte) []byte
	Decrypt(ciphertext []byte) []byte
}

// IdentityCipher is the identity Cipher: ciphertext equals plaintext.
type IdentityCipher struct{}

// Encrypt implements Cipher.
func (IdentityCipher) Encrypt(plaintext []byte) []byte {
	cp := make([]byte, len(plaintext))
	copy(cp, plaintext)
	return cp
}

// Decrypt implements Cipher.
func (IdentityCipher) Decrypt(ciphertext []byte) []byte {
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	return cp
}

// EncryptedBlock is an immutable buffer of a Block's encrypted bytes. It is
// the only thing a BlockId is ever derived from: the id binds the size
// marker and kind bit to a BLAKE3 hash of exactly these bytes.
type EncryptedBlock struct {
	data []byte
}

// Encrypt produces the EncryptedBlock for b under cipher c. Encrypt is the
// only producer of encrypted bytes for a given plaintext Block.
func Encrypt(b Block, c Cipher) EncryptedBlock {
	return EncryptedBlock{data: c.Encrypt(b.Data())}
}

// Decrypt recovers the plaintext Block of kind from eb under cipher c.
func (eb EncryptedBlock) Decrypt(kind blockid.Kind, c Cipher) Block {
	return New(kind, c.Decrypt(eb.data))
}

// Bytes returns a copy of the block's encrypted bytes.
func (eb EncryptedBlock) Bytes() []byte {
	cp := make([]byte, len(eb.data))
	copy(cp, eb.data)
	return cp
}

// FromBytes wraps raw encrypted bytes read from disk as an EncryptedBlock.
func FromBytes(data []byte) EncryptedBlock {
	return EncryptedBlock{data: append([]byte(nil), data...)}
}

// ID computes the BlockId for eb: BLAKE3 of the ciphertext bytes, bound to
// the size marker derived from len(eb.data) and whether kind has a header.
func (eb EncryptedBlock) ID(kind blockid.Kind) (blockid.BlockId, error) {
	size, err := blockid.NewBlockSize(uint32(len(eb.data)))
	if err != nil {
		return blockid.BlockId{}, err
	}
	hash := blake3.Sum256(eb.data)
	return blockid.New(hash, size, kind == blockid.InfoKind)
}
