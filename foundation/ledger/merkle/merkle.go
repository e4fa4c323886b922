// Package merkle provides a merkle tree implementation that commits a block
// to its ordered list of transactions.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/signature"
)

// Hashable represents the behavior concrete data must exhibit to be used
// in the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree over data of some type T that exhibits the
// behavior defined by the Hashable constraint. A tree may be empty, in which
// case its root is the zero hash.
type Tree[T Hashable[T]] struct {
	root   *node[T]
	leafs  []*node[T]
	values []T
}

// node is a single element of the tree. A leaf node carries a value; an
// interior node carries the hash of its two children.
type node[T Hashable[T]] struct {
	hash   []byte
	left   *node[T]
	right  *node[T]
	parent *node[T]
	value  T
	leaf   bool
	dup    bool
}

// NewTree constructs a merkle tree from the ordered set of values. The order
// of the values is part of what the root commits to.
func NewTree[T Hashable[T]](values []T) (*Tree[T], error) {
	t := Tree[T]{
		values: values,
	}

	if len(values) == 0 {
		return &t, nil
	}

	var leafs []*node[T]
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return nil, err
		}

		leafs = append(leafs, &node[T]{
			hash:  hash,
			value: value,
			leaf:  true,
		})
	}

	// An odd number of leafs gets the last leaf duplicated so every
	// interior node has two children.
	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &node[T]{
			hash:  last.hash,
			value: last.value,
			leaf:  true,
			dup:   true,
		})
	}

	root, err := buildIntermediate(leafs)
	if err != nil {
		return nil, err
	}

	t.root = root
	t.leafs = leafs

	return &t, nil
}

// Values returns the ordered set of values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// MerkleRoot returns the root hash of the tree, nil for an empty tree.
func (t *Tree[T]) MerkleRoot() []byte {
	if t.root == nil {
		return nil
	}
	return t.root.hash
}

// MerkleRootHex returns the root hash of the tree in hex, the zero hash
// for an empty tree.
func (t *Tree[T]) MerkleRootHex() string {
	if t.root == nil {
		return signature.ZeroHash
	}
	return hexutil.Encode(t.root.hash)
}

// Contains reports whether the specified value is committed to by the tree
// by rehashing the path from the value's leaf up to the root.
func (t *Tree[T]) Contains(value T) (bool, error) {
	for _, leaf := range t.leafs {
		if leaf.dup || !leaf.value.Equals(value) {
			continue
		}

		hash, err := value.Hash()
		if err != nil {
			return false, err
		}
		if !bytes.Equal(hash, leaf.hash) {
			return false, nil
		}

		for parent := leaf.parent; parent != nil; parent = parent.parent {
			sum := sha256.Sum256(append(parent.left.hash, parent.right.hash...))
			if !bytes.Equal(sum[:], parent.hash) {
				return false, nil
			}
		}

		return true, nil
	}

	return false, nil
}

// =============================================================================

// buildIntermediate constructs the interior nodes of the tree level by level
// until a single root remains.
func buildIntermediate[T Hashable[T]](nodes []*node[T]) (*node[T], error) {
	if len(nodes) == 0 {
		return nil, errors.New("no nodes to build from")
	}

	var level []*node[T]

	for i := 0; i < len(nodes); i += 2 {
		left, right := nodes[i], nodes[i]
		if i+1 < len(nodes) {
			right = nodes[i+1]
		}

		sum := sha256.Sum256(append(left.hash, right.hash...))
		n := node[T]{
			hash:  sum[:],
			left:  left,
			right: right,
		}
		left.parent = &n
		right.parent = &n

		level = append(level, &n)
	}

	if len(level) == 1 {
		return level[0], nil
	}

	return buildIntermediate(level)
}
