package avltree

import "fmt"

// ErrProofMismatch is returned by Verify when the proof's reconstructed
// pre-insertion root does not hash to the digest the verifier was given.
type ErrProofMismatch struct {
	Want, Got Digest
}

func (e *ErrProofMismatch) Error() string {
	return fmt.Sprintf("avltree: proof root %x does not match expected digest %x", e.Got, e.Want)
}

// Verify checks an InsertProof against the digest the tree had before the
// insertion, and returns the digest the tree has afterward. It needs no
// access to the rest of the tree: the proof's path carries the label of
// every subtree an AVL insert does not touch, which is everything this
// computation needs besides the nodes actually restructured by the insert.
func Verify(pre Digest, proof InsertProof) (Digest, error) {
	shadowRoot := synthesize(proof.Path)

	if got := digestOf(shadowRoot); got != pre {
		return Digest{}, &ErrProofMismatch{Want: pre, Got: got}
	}

	newRoot, _, err := insert(shadowRoot, proof.Key, proof.Value)
	if err != nil {
		return Digest{}, fmt.Errorf("avltree: replaying proof: %w", err)
	}
	return digestOf(newRoot), nil
}

// synthesize rebuilds the minimal shadow tree an insertion proof's path
// describes: real nodes for every step actually visited, and opaque
// label-only stubs for every sibling subtree the insert never restructures.
// The bottom of the path has no real child yet — that's the spot the new
// key will occupy — so it folds around a nil child.
func synthesize(path []Step) *node {
	return synthesizeAbove(path, nil)
}
