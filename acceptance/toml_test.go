package acceptance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPredicateWhitelist(t *testing.T) {
	doc := `
type = "whitelist"
kind = "issuer"
agents = ["I1", "I2"]
`
	p, err := LoadPredicate(strings.NewReader(doc))
	require.NoError(t, err)
	w, ok := p.(Whitelist)
	require.True(t, ok)
	require.Equal(t, KindIssuer, w.Kind)
	require.Equal(t, []string{"I1", "I2"}, w.Agents)
}

func TestLoadPredicateCollateralDefaultsAlgorithm(t *testing.T) {
	doc := `
type = "collateral"
percent = 86.0
`
	p, err := LoadPredicate(strings.NewReader(doc))
	require.NoError(t, err)
	c, ok := p.(Collateral)
	require.True(t, ok)
	require.Equal(t, AlgorithmInitial, c.Algorithm)
	require.Equal(t, 86.0, c.Percent)
}

func TestLoadPredicateOrComposesNestedConditions(t *testing.T) {
	doc := `
type = "or"

[[conditions]]
type = "whitelist"
kind = "issuer"
agents = ["I1"]

[[conditions]]
type = "collateral"
percent = 90.0
`
	p, err := LoadPredicate(strings.NewReader(doc))
	require.NoError(t, err)
	or, ok := p.(Or)
	require.True(t, ok)
	require.Len(t, or.Conditions, 2)
	_, ok = or.Conditions[0].(Whitelist)
	require.True(t, ok)
	_, ok = or.Conditions[1].(Collateral)
	require.True(t, ok)
}

func TestLoadPredicateUnknownTypeErrors(t *testing.T) {
	doc := `type = "bogus"`
	_, err := LoadPredicate(strings.NewReader(doc))
	require.Error(t, err)
	var typeErr *ErrUnknownPredicateType
	require.ErrorAs(t, err, &typeErr)
}
