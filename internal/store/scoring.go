package store

import (
	"math"
	"strings"
	"unicode"
)

// CosineScore maps cosine similarity into [0,1]: 1 means identical
// direction, 0.5 orthogonal, 0 opposite. The postgres backend computes the
// same mapping in SQL so both backends score identically.
func CosineScore(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// KeywordScore is the fraction of distinct query terms present in the
// content, in [0,1]. It is the memory backend's stand-in for full-text rank.
func KeywordScore(query, content string) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return 0
	}
	contentTerms := make(map[string]struct{})
	for _, term := range tokenize(content) {
		contentTerms[term] = struct{}{}
	}
	seen := make(map[string]struct{}, len(queryTerms))
	matched := 0
	distinct := 0
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		distinct++
		if _, ok := contentTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(distinct)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
