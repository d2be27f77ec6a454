package boxes

// OracleBoxSpec is the projection of a data-input box published by the gold
// price oracle: R4 holds the price of one kg of gold in the ledger's base
// currency unit. Redeem divides by 1_000_000 to get a per-mg price
// (spec.md §4.5.5).
type OracleBoxSpec struct {
	PricePerKg int64
	Box        RawBox
}

// NewOracleBoxSpec parses box as an oracle data input.
func NewOracleBoxSpec(box RawBox) (*OracleBoxSpec, error) {
	price, err := Long(box, R4)
	if err != nil {
		return nil, err
	}
	if price < 0 {
		return nil, &ErrInvalidField{Field: "R4"}
	}
	return &OracleBoxSpec{PricePerKg: price, Box: box}, nil
}

// PricePerMilligram returns the per-mg gold price, floor-divided per
// spec.md §4.5.5.
func (o OracleBoxSpec) PricePerMilligram() int64 {
	return o.PricePerKg / 1_000_000
}
