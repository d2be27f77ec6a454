// Package avltree implements an authenticated AVL+ tree: a balanced binary
// search tree over byte-string keys whose root digest commits to its full
// contents, and whose insertions emit a path proof that lets an independent
// verifier recompute the new digest without holding the rest of the tree.
//
// This is the authenticated map the note contract commits to on-chain (note
// register R4): keyed by 32-byte reserve ids, valued by serialized
// signatures, insert-only (deletions are never needed by this system).
package avltree

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DigestLen is the length of a root digest: one byte of tree height followed
// by a 32-byte label hash, matching the AvlTreeData encoding the note
// contract reads out of register R4.
const DigestLen = 1 + 32

// Digest is a 33-byte authenticated root digest.
type Digest [DigestLen]byte

var emptyLabel [32]byte

// ErrDuplicateKey is returned by Insert when key is already present.
type ErrDuplicateKey struct{ Key []byte }

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("avltree: duplicate key %x", e.Key)
}

// ErrKeyLength is returned when a key's length doesn't match the tree's
// fixed key length.
type ErrKeyLength struct{ Got, Want int }

func (e *ErrKeyLength) Error() string {
	return fmt.Sprintf("avltree: key length %d, want %d", e.Got, e.Want)
}

// node is a tree node. labelOverride is set only on the stub nodes a
// Verifier synthesizes from a proof's OtherLabel entries: such a node's
// subtree is never examined, only its cached label and height, because an
// AVL insert only ever restructures nodes along the root-to-leaf path.
type node struct {
	key, value    []byte
	left, right   *node
	height        int8
	labelOverride *[32]byte
}

func stub(label [32]byte, height int8) *node {
	l := label
	return &node{height: height, labelOverride: &l}
}

func (n *node) childHeight() int8 {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node) label() [32]byte {
	if n == nil {
		return emptyLabel
	}
	if n.labelOverride != nil {
		return *n.labelOverride
	}
	lh, rh := n.left.label(), n.right.label()
	buf := make([]byte, 0, 1+32+32+2+len(n.key)+2+len(n.value))
	buf = append(buf, byte(n.height))
	buf = append(buf, lh[:]...)
	buf = append(buf, rh[:]...)
	buf = appendLenPrefixed(buf, n.key)
	buf = appendLenPrefixed(buf, n.value)
	return blake2b.Sum256(buf)
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = append(buf, byte(len(data)>>8), byte(len(data)))
	return append(buf, data...)
}

func balanceFactor(n *node) int {
	return int(n.left.childHeight()) - int(n.right.childHeight())
}

func fixHeight(n *node) {
	lh, rh := n.left.childHeight(), n.right.childHeight()
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	fixHeight(n)
	fixHeight(l)
	return l
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	fixHeight(n)
	fixHeight(r)
	return r
}

func rebalance(n *node) *node {
	fixHeight(n)
	switch b := balanceFactor(n); {
	case b > 1:
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	default:
		return n
	}
}

// Step is one existing node visited while descending to an insertion point,
// recorded in root-to-leaf order. It carries everything an independent
// verifier needs to reconstruct the subtree rooted at that node without the
// rest of the tree: the node's own key/value/height, which child the
// insertion descended into, and the label+height of the child it did not
// descend into (a subtree an AVL insert never restructures).
type Step struct {
	Key, Value  []byte
	Height      int8
	WentRight   bool
	OtherLabel  [32]byte
	OtherHeight int8
}

// InsertProof is the data produced by one Insert call: the root-to-leaf
// path of existing nodes visited, plus the inserted key/value. It both
// documents where the new entry landed and lets an independent Verifier
// recompute the resulting digest from the pre-insertion digest alone.
type InsertProof struct {
	Path       []Step
	Key, Value []byte
}

// insert runs the shared BST-insert-then-rebalance algorithm used by both
// Tree.Insert (on a real tree) and Verifier (on a proof-synthesized shadow
// tree), so the two can never drift apart.
func insert(root *node, key, value []byte) (newRoot *node, path []Step, err error) {
	var walk func(n *node) *node
	walk = func(n *node) *node {
		if n == nil {
			return &node{key: append([]byte(nil), key...), value: append([]byte(nil), value...), height: 1}
		}
		cmp := bytes.Compare(key, n.key)
		switch {
		case cmp == 0:
			err = &ErrDuplicateKey{Key: key}
			return n
		case cmp < 0:
			path = append(path, Step{Key: n.key, Value: n.value, Height: n.height, WentRight: false, OtherLabel: n.right.label(), OtherHeight: n.right.childHeight()})
			n.left = walk(n.left)
		default:
			path = append(path, Step{Key: n.key, Value: n.value, Height: n.height, WentRight: true, OtherLabel: n.left.label(), OtherHeight: n.left.childHeight()})
			n.right = walk(n.right)
		}
		if err != nil {
			return n
		}
		return rebalance(n)
	}

	newRoot = walk(root)
	if err != nil {
		return nil, nil, err
	}
	return newRoot, path, nil
}

// Tree is an authenticated, insert-only AVL+ map with a fixed key length.
// It is not safe for concurrent use; callers that need one (the note
// history does) must serialize access, or — per the source design — simply
// rebuild a fresh Tree from the persisted ordered entries for each mutation.
type Tree struct {
	root      *node
	keyLength int
}

// New creates an empty tree with a fixed key length. Value length is
// unconstrained (the note/reserve/receipt contracts only fix key length).
func New(keyLength int) *Tree {
	return &Tree{keyLength: keyLength}
}

// KeyLength returns the tree's fixed key length.
func (t *Tree) KeyLength() int { return t.keyLength }

// Digest returns the 33-byte root digest: height byte + label hash.
func (t *Tree) Digest() Digest {
	return digestOf(t.root)
}

func digestOf(n *node) Digest {
	var d Digest
	d[0] = byte(n.childHeight())
	lbl := n.label()
	copy(d[1:], lbl[:])
	return d
}

// Insert adds key -> value, returning the path proof for the insertion.
// Fails with ErrDuplicateKey if key is already present, leaving the tree
// unchanged.
func (t *Tree) Insert(key, value []byte) (InsertProof, error) {
	if len(key) != t.keyLength {
		return InsertProof{}, &ErrKeyLength{Got: len(key), Want: t.keyLength}
	}
	newRoot, path, err := insert(t.root, key, value)
	if err != nil {
		return InsertProof{}, err
	}
	t.root = newRoot
	return InsertProof{Path: path, Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)}, nil
}

// Get returns the value stored for key, if present.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	n := t.root
	for n != nil {
		cmp := bytes.Compare(key, n.key)
		switch {
		case cmp == 0:
			return n.value, true
		case cmp < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil, false
}

// Entries returns all (key, value) pairs in key order.
func (t *Tree) Entries() []KV {
	var out []KV
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, KV{Key: n.key, Value: n.value})
		walk(n.right)
	}
	walk(t.root)
	return out
}

// KV is a key/value pair returned by Entries.
type KV struct{ Key, Value []byte }
