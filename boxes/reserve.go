package boxes

import "github.com/btcsuite/btcd/btcec/v2"

// ReserveBoxSpec is the projection of a ledger box at the reserve contract.
// Its NFT Identifier is minted equal to the box id of the first input of
// the minting transaction.
type ReserveBoxSpec struct {
	Owner        *btcec.PublicKey
	RefundHeight *int64
	Identifier   TokenID
	Box          RawBox
}

// NewReserveBoxSpec parses box as a reserve.
func NewReserveBoxSpec(box RawBox) (*ReserveBoxSpec, error) {
	tok, err := box.FirstToken()
	if err != nil {
		return nil, err
	}

	owner, err := GroupElement(box, R4)
	if err != nil {
		return nil, err
	}

	refundHeight, err := OptionalLong(box, R5)
	if err != nil {
		return nil, err
	}

	return &ReserveBoxSpec{
		Owner:        owner,
		RefundHeight: refundHeight,
		Identifier:   tok.ID,
		Box:          box,
	}, nil
}
