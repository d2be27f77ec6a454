// Package schnorr implements the Schnorr-style signature primitive C1:
// signing over secp256k1 with a blake2b-256 Fiat-Shamir challenge
// (spec.md §4.1). Verification is implicit on-chain, via the receipt and
// reserve contracts comparing z·G against a + e·owner_pk — this package
// only ever needs to produce and (de)serialize signatures, never check
// them.
package schnorr

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/blake2b"
)

// curve is secp256k1; its order curve.N is used throughout for scalar
// reduction.
var curve = btcec.S256()

// topBit is 2^255: the contract's numeric encoding requires both the
// challenge and the response to have their top bit clear (spec.md §4.1
// step 4), since the contract reads them as signed 256-bit integers.
var topBit = new(big.Int).Lsh(big.NewInt(1), 255)

// Signature is a Schnorr signature (a, z): a nonce commitment point and a
// response scalar, serialized as 33+32 = 65 bytes (spec.md §2 Signature).
type Signature struct {
	a *btcec.PublicKey
	z *big.Int
}

// ABytes returns a's compressed point encoding (33 bytes).
func (s Signature) ABytes() []byte { return s.a.SerializeCompressed() }

// ZBytes returns z as a 32-byte big-endian scalar.
func (s Signature) ZBytes() []byte {
	out := make([]byte, 32)
	s.z.FillBytes(out)
	return out
}

// Bytes returns the signature's 65-byte wire form: ABytes() || ZBytes().
func (s Signature) Bytes() []byte {
	return append(s.ABytes(), s.ZBytes()...)
}

// Equal reports whether two signatures encode the same (a, z) pair.
func (s Signature) Equal(other Signature) bool {
	if s.a == nil || other.a == nil {
		return s.a == other.a
	}
	return s.a.IsEqual(other.a) && s.z.Cmp(other.z) == 0
}

// Parse decodes a 65-byte signature produced by Bytes.
func Parse(b []byte) (Signature, error) {
	if len(b) != 65 {
		return Signature{}, fmt.Errorf("schnorr: signature must be 65 bytes, got %d", len(b))
	}
	aPub, err := btcec.ParsePubKey(b[:33])
	if err != nil {
		return Signature{}, fmt.Errorf("schnorr: parse a: %w", err)
	}
	return FromParts(aPub, b[33:])
}

// FromParts reconstructs a Signature from its decoded a point and raw
// z bytes — the shape the context-extension registers on a redeem
// transaction carry (spec.md §4.6).
func FromParts(aPub *btcec.PublicKey, zBytes []byte) (Signature, error) {
	if len(zBytes) != 32 {
		return Signature{}, fmt.Errorf("schnorr: z must be 32 bytes, got %d", len(zBytes))
	}
	if aPub == nil {
		return Signature{}, fmt.Errorf("schnorr: missing a")
	}
	z := new(big.Int).SetBytes(zBytes)
	return Signature{a: aPub, z: z}, nil
}

// ErrInvalidPrivateKey is returned when a supplied private key does not
// derive the expected owner public key.
type ErrInvalidPrivateKey struct {
	Expected, Found       *btcec.PublicKey
	ExpectedHex, FoundHex string
}

func (e *ErrInvalidPrivateKey) Error() string {
	return fmt.Sprintf("schnorr: private key derives %s, want %s", e.FoundHex, e.ExpectedHex)
}

// PrivToPub computes x·G for scalar x, failing if x is not a valid
// secp256k1 private scalar (zero, or ≥ curve order).
func PrivToPub(x *big.Int) (*btcec.PublicKey, error) {
	if x.Sign() <= 0 || x.Cmp(curve.N) >= 0 {
		return nil, fmt.Errorf("schnorr: private scalar out of range")
	}
	px, py := curve.ScalarBaseMult(x.Bytes())
	return btcec.ParsePubKey(elliptic.MarshalCompressed(curve, px, py))
}

// randScalar samples a uniform nonzero scalar in [1, N).
func randScalar() (*big.Int, error) {
	for {
		r, err := rand.Int(rand.Reader, curve.N)
		if err != nil {
			return nil, fmt.Errorf("schnorr: sample nonce: %w", err)
		}
		if r.Sign() != 0 {
			return r, nil
		}
	}
}

// challenge computes e = blake2b256(serialize(a) || m || serialize(pub))
// reduced modulo the curve order (spec.md §4.1 step 2).
func challenge(a, pub *btcec.PublicKey, m []byte) *big.Int {
	data := make([]byte, 0, 33+len(m)+33)
	data = append(data, a.SerializeCompressed()...)
	data = append(data, m...)
	data = append(data, pub.SerializeCompressed()...)
	h := blake2b.Sum256(data)
	e := new(big.Int).SetBytes(h[:])
	return e.Mod(e, curve.N)
}

// Sign produces a Schnorr signature over m with private scalar x
// (spec.md §4.1): sample a nonce, derive the Fiat-Shamir challenge, and
// restart if either the challenge or the response would overflow the
// contract's 255-bit numeric encoding.
func Sign(m []byte, x *big.Int) (Signature, error) {
	pub, err := PrivToPub(x)
	if err != nil {
		return Signature{}, err
	}
	for {
		r, err := randScalar()
		if err != nil {
			return Signature{}, err
		}
		aPoint, err := PrivToPub(r)
		if err != nil {
			return Signature{}, err
		}
		e := challenge(aPoint, pub, m)
		if e.Cmp(topBit) >= 0 {
			continue
		}
		z := new(big.Int).Mul(e, x)
		z.Add(z, r)
		z.Mod(z, curve.N)
		if z.Cmp(topBit) >= 0 {
			continue
		}
		return Signature{a: aPoint, z: z}, nil
	}
}
