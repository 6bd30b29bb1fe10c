// Package suggest ranks known digimon names against an identifier that did
// not resolve, so a detail lookup for "Agumn" can offer "Agumon".
//
// Candidates are scored in two tiers:
//
//  1. Phonetic: Double Metaphone codes of the query and candidate tokens
//     overlap, and the best Jaro-Winkler score reaches the phonetic threshold.
//  2. Fuzzy: no phonetic overlap, but Jaro-Winkler alone reaches the stricter
//     fuzzy threshold.
//
// Phonetic matches always rank above fuzzy ones; within a tier the higher
// score wins and ties keep the candidates' input order.
package suggest

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
	defaultLimit             = 3
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically overlapping candidate. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.phoneticThreshold = threshold
		}
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a candidate with
// no phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.fuzzyThreshold = threshold
		}
	}
}

// WithLimit caps the number of suggestions returned. Default: 3.
func WithLimit(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// Suggestion is one ranked candidate.
type Suggestion struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Phonetic bool    `json:"phonetic"`
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	limit             int
}

// New returns a Matcher configured by opts.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		limit:             defaultLimit,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Suggest returns up to the configured limit of candidates resembling query,
// best first. A case-insensitive exact match scores 1, which is how a casing
// mismatch in a detail lookup surfaces. Duplicate candidates are reported once.
func (m *Matcher) Suggest(query string, candidates []string) []Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(candidates) == 0 {
		return []Suggestion{}
	}
	qTokens := strings.Fields(q)
	qCodes := codesForTokens(qTokens)

	out := []Suggestion{}
	seen := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		tokens := strings.Fields(lower)
		score := bestJWScore(qTokens, tokens, q, lower)
		phonetic := codesOverlap(qCodes, codesForTokens(tokens))

		switch {
		case phonetic && score >= m.phoneticThreshold:
			out = append(out, Suggestion{Name: name, Score: score, Phonetic: true})
		case !phonetic && score >= m.fuzzyThreshold:
			out = append(out, Suggestion{Name: name, Score: score})
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		if a.Phonetic != b.Phonetic {
			if a.Phonetic {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Score, a.Score)
	})
	if len(out) > m.limit {
		out = out[:m.limit]
	}
	return out
}

// codesForTokens returns the union of the Double Metaphone codes of tokens,
// skipping empty codes.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore is the highest Jaro-Winkler similarity across the full
// strings, the space-stripped strings, and every token pair.
func bestJWScore(qTokens, tokens []string, qFull, full string) float64 {
	score := matchr.JaroWinkler(qFull, full, false)

	if len(qTokens) > 1 || len(tokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(qTokens, ""), strings.Join(tokens, ""), false); s > score {
			score = s
		}
	}

	for _, a := range qTokens {
		for _, b := range tokens {
			if s := matchr.JaroWinkler(a, b, false); s > score {
				score = s
			}
		}
	}
	return score
}
