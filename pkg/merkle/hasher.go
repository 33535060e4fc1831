package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/wealdtech/go-merkletree/v2/blake2b"
	"golang.org/x/crypto/sha3"
)

// Domain separation tags prepended to every hashed preimage so that a leaf,
// a branch and a whole list can never collide with one another.
const (
	TagLeaf   byte = 0x00
	TagBranch byte = 0x01
	TagList   byte = 0x02
)

// Supported hasher names.
const (
	HasherSHA256    = "sha256"
	HasherKeccak256 = "keccak256"
	HasherBlake2b   = "blake2b"
	HasherSHA3      = "sha3-256"
)

// Hasher defines how leaves, branches and lists are hashed.
type Hasher interface {
	// HashLeaf hashes the serialized form of a list element.
	HashLeaf(value []byte) Hash

	// HashNode combines two children into their parent. A nil right child
	// marks the final unpaired node of an odd-width level, whose hash is
	// carried up unchanged.
	HashNode(left Hash, right *Hash) Hash

	// HashList binds the element count to the Merkle root of the list.
	HashList(length uint64, root Hash) Hash

	// Name returns the configuration name of the digest.
	Name() string
}

type digestFunc func(data ...[]byte) []byte

// taggedHasher applies the domain separation scheme on top of a digest.
type taggedHasher struct {
	name   string
	digest digestFunc
}

func (h *taggedHasher) HashLeaf(value []byte) Hash {
	return h.sum([]byte{TagLeaf}, value)
}

func (h *taggedHasher) HashNode(left Hash, right *Hash) Hash {
	if right == nil {
		return left
	}
	return h.sum([]byte{TagBranch}, left[:], right[:])
}

func (h *taggedHasher) HashList(length uint64, root Hash) Hash {
	var lengthBytes [8]byte
	binary.LittleEndian.PutUint64(lengthBytes[:], length)
	return h.sum([]byte{TagList}, lengthBytes[:], root[:])
}

func (h *taggedHasher) Name() string {
	return h.name
}

func (h *taggedHasher) sum(data ...[]byte) Hash {
	var out Hash
	copy(out[:], h.digest(data...))
	return out
}

// NewSHA256Hasher returns the default hasher.
func NewSHA256Hasher() Hasher {
	return &taggedHasher{name: HasherSHA256, digest: func(data ...[]byte) []byte {
		d := sha256.New()
		for _, b := range data {
			d.Write(b)
		}
		return d.Sum(nil)
	}}
}

// NewKeccak256Hasher returns a hasher over keccak256, matching Solidity's
// keccak256(abi.encodePacked(...)) for the same preimages.
func NewKeccak256Hasher() Hasher {
	return &taggedHasher{name: HasherKeccak256, digest: crypto.Keccak256}
}

// NewBlake2bHasher returns a hasher over BLAKE2b-256.
func NewBlake2bHasher() Hasher {
	return &taggedHasher{name: HasherBlake2b, digest: blake2b.New().Hash}
}

// NewSHA3Hasher returns a hasher over SHA3-256.
func NewSHA3Hasher() Hasher {
	return &taggedHasher{name: HasherSHA3, digest: func(data ...[]byte) []byte {
		d := sha3.New256()
		for _, b := range data {
			d.Write(b)
		}
		return d.Sum(nil)
	}}
}

// NewHasher returns the hasher registered under name. An empty name selects
// sha256.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", HasherSHA256:
		return NewSHA256Hasher(), nil
	case HasherKeccak256:
		return NewKeccak256Hasher(), nil
	case HasherBlake2b:
		return NewBlake2bHasher(), nil
	case HasherSHA3:
		return NewSHA3Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported hasher: %s", name)
	}
}

// SupportedHashers lists the names accepted by NewHasher.
func SupportedHashers() []string {
	return []string{HasherSHA256, HasherKeccak256, HasherBlake2b, HasherSHA3}
}

// EmptyListHash returns the well-known hash of a list with no elements.
func EmptyListHash(h Hasher) Hash {
	return h.HashList(0, Hash{})
}
