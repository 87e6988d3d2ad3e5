package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, TokenSimilarity{}.Score("westmalle tripel", "westmalle tripel"))
}

func TestTokenSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, TokenSimilarity{}.Score("", "westmalle"))
	assert.Equal(t, 0.0, TokenSimilarity{}.Score("westmalle", ""))
}

func TestTokenSimilarity_Symmetric(t *testing.T) {
	s := TokenSimilarity{}
	assert.InDelta(t, s.Score("brouwerij huyghe", "huyghe brouwerij"), s.Score("huyghe brouwerij", "brouwerij huyghe"), 1e-9)
}

func TestTokenSimilarity_ReorderedTokensScoreHigh(t *testing.T) {
	// The Jaccard term is order-insensitive, so swapped words stay well
	// above unrelated names.
	s := TokenSimilarity{}
	swapped := s.Score("brouwerij huyghe", "huyghe brouwerij")
	unrelated := s.Score("brouwerij huyghe", "brasserie dupont")
	assert.Greater(t, swapped, unrelated)
	assert.Greater(t, swapped, 0.7)
}

func TestTokenSimilarity_DistinctNamesScoreLow(t *testing.T) {
	s := TokenSimilarity{}
	assert.Less(t, s.Score("westmalle tripel", "westvleteren tripel"), 0.85)
}

func TestJaro_Transposition(t *testing.T) {
	assert.Greater(t, jaro("martha", "marhta"), 0.9)
}

func TestTokenJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, tokenJaccard("a b", "b a"), 1e-9)
	assert.InDelta(t, 1.0/3, tokenJaccard("a b", "a c"), 1e-9)
	assert.Equal(t, 0.0, tokenJaccard("a", "b"))
}
