package avltree

import "bytes"

// MembershipProof lets an independent verifier confirm that key maps to
// value in a tree with a given root digest, without holding the rest of the
// tree — used by the redeem transaction, which must hand the on-chain
// reserve contract a proof that a particular signature is present in the
// note's committed history.
type MembershipProof struct {
	// Ancestors is the root-to-parent path above the found node, in
	// descending order; same shape as an insertion Step since ancestors
	// play the identical role (their own key/value/height, plus the
	// label+height of the subtree not descended into).
	Ancestors []Step

	Key, Value            []byte
	FoundHeight           int8
	LeftLabel, RightLabel [32]byte
	LeftHeight, RightHeight int8
}

// ErrKeyNotFound is returned by Lookup when key is absent.
type ErrKeyNotFound struct{ Key []byte }

func (e *ErrKeyNotFound) Error() string { return "avltree: key not found" }

// Lookup returns a membership proof for key, or ErrKeyNotFound.
func (t *Tree) Lookup(key []byte) (MembershipProof, error) {
	var ancestors []Step
	n := t.root
	for n != nil {
		cmp := bytes.Compare(key, n.key)
		switch {
		case cmp == 0:
			return MembershipProof{
				Ancestors:   ancestors,
				Key:         append([]byte(nil), n.key...),
				Value:       append([]byte(nil), n.value...),
				FoundHeight: n.height,
				LeftLabel:   n.left.label(),
				LeftHeight:  n.left.childHeight(),
				RightLabel:  n.right.label(),
				RightHeight: n.right.childHeight(),
			}, nil
		case cmp < 0:
			ancestors = append(ancestors, Step{Key: n.key, Value: n.value, Height: n.height, WentRight: false, OtherLabel: n.right.label(), OtherHeight: n.right.childHeight()})
			n = n.left
		default:
			ancestors = append(ancestors, Step{Key: n.key, Value: n.value, Height: n.height, WentRight: true, OtherLabel: n.left.label(), OtherHeight: n.left.childHeight()})
			n = n.right
		}
	}
	return MembershipProof{}, &ErrKeyNotFound{Key: key}
}

// VerifyMembership confirms proof is consistent with root digest, returning
// the proven value.
func VerifyMembership(root Digest, proof MembershipProof) ([]byte, error) {
	found := &node{
		key: proof.Key, value: proof.Value, height: proof.FoundHeight,
		left:  stub(proof.LeftLabel, proof.LeftHeight),
		right: stub(proof.RightLabel, proof.RightHeight),
	}
	ancestorNode := synthesizeAbove(proof.Ancestors, found)
	if got := digestOf(ancestorNode); got != root {
		return nil, &ErrProofMismatch{Want: root, Got: got}
	}
	return proof.Value, nil
}

// synthesizeAbove folds a deepest-first ancestor path around an already
// constructed child node, the shared core of both insertion-proof and
// membership-proof reconstruction.
func synthesizeAbove(ancestors []Step, child *node) *node {
	for i := len(ancestors) - 1; i >= 0; i-- {
		s := ancestors[i]
		n := &node{key: s.Key, value: s.Value, height: s.Height}
		other := stub(s.OtherLabel, s.OtherHeight)
		if s.WentRight {
			n.left, n.right = other, child
		} else {
			n.left, n.right = child, other
		}
		child = n
	}
	return child
}
