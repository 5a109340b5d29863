// Package textindex provides lightweight lexical similarity used by the
// in-process memory store and the solution registry index. Descriptions are
// folded into fixed-width hashed bag-of-words vectors; similarity is cosine,
// reported as a distance where 0 is identical and values grow with
// dissimilarity.
package textindex

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Dim is the width of hashed term vectors. Collisions are tolerable at this
// size for the short descriptions being indexed.
const Dim = 256

// Vectorize folds the text's terms into a hashed term-frequency vector.
// Tokenization lowercases and splits on anything that is not a letter or
// digit. The zero text yields the zero vector.
func Vectorize(text string) []float32 {
	vec := make([]float32, Dim)
	for _, term := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%Dim]++
	}
	return vec
}

// Tokenize splits text into lowercase terms.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CosineDistance returns 1 - cosine similarity between two vectors.
// A zero vector on either side yields the maximum distance of 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
