package acceptance

import (
	"fmt"
	"io"

	"github.com/naoina/toml"
)

// rawPredicate is the TOML wire shape every predicate variant decodes
// through: a `type` discriminator plus the union of every variant's fields.
// naoina/toml maps nested `[[conditions]]` tables onto the Conditions slice
// directly, so Or composes without a second decode pass.
type rawPredicate struct {
	Type       string         `toml:"type"`
	Agents     []string       `toml:"agents"`
	Kind       string         `toml:"kind"`
	Conditions []rawPredicate `toml:"conditions"`
	Percent    float64        `toml:"percent"`
	Algorithm  string         `toml:"algorithm"`
}

// LoadPredicate decodes a single TOML-encoded predicate, dispatching on its
// `type` tag (spec.md §4.8: "or | whitelist | blacklist | collateral").
func LoadPredicate(r io.Reader) (Predicate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("acceptance: read predicate: %w", err)
	}
	var raw rawPredicate
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("acceptance: decode predicate: %w", err)
	}
	return buildPredicate(raw)
}

func buildPredicate(raw rawPredicate) (Predicate, error) {
	switch raw.Type {
	case "whitelist":
		return Whitelist{Agents: raw.Agents, Kind: WhitelistKind(raw.Kind)}, nil
	case "blacklist":
		return Blacklist{Agents: raw.Agents, Kind: WhitelistKind(raw.Kind)}, nil
	case "or":
		conditions := make([]Predicate, 0, len(raw.Conditions))
		for i, c := range raw.Conditions {
			p, err := buildPredicate(c)
			if err != nil {
				return nil, fmt.Errorf("acceptance: condition %d: %w", i, err)
			}
			conditions = append(conditions, p)
		}
		return Or{Conditions: conditions}, nil
	case "collateral":
		algorithm := Algorithm(raw.Algorithm)
		if algorithm == "" {
			algorithm = AlgorithmInitial
		}
		return Collateral{Percent: raw.Percent, Algorithm: algorithm}, nil
	default:
		return nil, &ErrUnknownPredicateType{Type: raw.Type}
	}
}

// ErrUnknownPredicateType is returned when a predicate's `type` tag is none
// of or, whitelist, blacklist, collateral.
type ErrUnknownPredicateType struct{ Type string }

func (e *ErrUnknownPredicateType) Error() string {
	return fmt.Sprintf("acceptance: unknown predicate type %q", e.Type)
}
