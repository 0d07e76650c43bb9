// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeText canonicalizes text for comparison and logging: control
// characters are stripped, runs of whitespace collapse to a single space,
// and the result is trimmed. Casing is preserved.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits text into lowercased terms with edge punctuation removed.
func Tokenize(s string) []string {
	fields := strings.Fields(NormalizeText(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := NormalizeToken(f)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NormalizeToken lowercases a single token and trims leading/trailing
// punctuation, keeping internal punctuation like hyphens and underscores.
func NormalizeToken(token string) string {
	token = strings.ToLower(token)
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

// UniqueTokens returns tokens deduplicated, preserving first-seen order.
func UniqueTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// TokenOverlap returns the fraction of distinct query tokens present in the
// candidate token set, in [0,1]. An empty query yields 0.
func TokenOverlap(queryTokens, candidateTokens []string) float64 {
	unique := UniqueTokens(queryTokens)
	if len(unique) == 0 {
		return 0
	}
	set := make(map[string]bool, len(candidateTokens))
	for _, t := range candidateTokens {
		set[t] = true
	}
	matched := 0
	for _, t := range unique {
		if set[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(unique))
}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
