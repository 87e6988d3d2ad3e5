// Package match partitions normalized records into canonical entities
// using blocked fuzzy-name matching with transitive (union-find) merge.
package match

import (
	"math"
	"strings"
)

// Similarity scores how alike two comparison keys are, in [0, 1].
// Implementations must be symmetric and return 1 for identical keys.
type Similarity interface {
	Score(a, b string) float64
}

// TokenSimilarity is the default similarity: the mean of Jaro
// similarity on the whole key and Jaccard overlap on the token sets.
// Jaro tolerates transposed characters, the token overlap tolerates
// reordered or partially missing words.
type TokenSimilarity struct{}

// Score implements Similarity.
func (TokenSimilarity) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return (jaro(a, b) + tokenJaccard(a, b)) / 2
}

// tokenJaccard computes |A∩B| / |A∪B| over whitespace tokens.
func tokenJaccard(a, b string) float64 {
	as := strings.Fields(a)
	bs := strings.Fields(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	set := make(map[string]bool, len(as))
	for _, t := range as {
		set[t] = true
	}
	union := len(set)
	inter := 0
	for _, t := range bs {
		if set[t] {
			inter++
			set[t] = false // count each shared token once
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// jaro computes the Jaro similarity of two strings.
func jaro(s1, s2 string) float64 {
	if s1 == s2 {
		return 1
	}
	len1, len2 := len(s1), len(s2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	matchWindow := max(len1, len2)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	matched1 := make([]bool, len1)
	matched2 := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := int(math.Max(0, float64(i-matchWindow)))
		end := int(math.Min(float64(len2-1), float64(i+matchWindow)))
		for j := start; j <= end; j++ {
			if matched2[j] || s1[i] != s2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Count transpositions among matched characters.
	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2)/m) / 3
}
