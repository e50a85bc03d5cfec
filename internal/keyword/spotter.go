// Package keyword implements tiered keyword detection on final transcripts.
//
// The spotter checks each finalized transcript against two ordered keyword
// tiers: CRITICAL phrases force an immediate HIGH threat signal, ALERT
// phrases raise the level to MEDIUM. Matching is case-insensitive substring
// matching — the keyword lists are static, language-agnostic configuration
// data, so English and Hindi phrases coexist in one tier.
//
// An optional fuzzy stage catches recognizer mis-hearings of CRITICAL
// single words ("halp" for "help") using Double Metaphone phonetic codes
// with Jaro-Winkler ranking. It is off by default.
package keyword

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Tier classifies the severity of a keyword match.
type Tier int

const (
	// TierNone means no keyword matched.
	TierNone Tier = iota

	// TierAlert raises the threat level to MEDIUM unless already higher.
	TierAlert

	// TierCritical forces the threat level to HIGH immediately.
	TierCritical
)

// String returns the human-readable name of the tier.
func (t Tier) String() string {
	switch t {
	case TierAlert:
		return "ALERT"
	case TierCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// Match describes a keyword hit in a transcript.
type Match struct {
	// Tier is the severity of the matched keyword.
	Tier Tier

	// Keyword is the list entry that matched.
	Keyword string

	// Fuzzy reports whether the hit came from the phonetic stage rather
	// than exact substring matching.
	Fuzzy bool
}

// Default keyword tiers. The lists mix English and Hindi phrases; both are
// matched simultaneously.
var (
	// DefaultCritical phrases force HIGH immediately.
	DefaultCritical = []string{
		"help", "help me", "stop", "stop it", "police", "call police",
		"rape", "attack",
		"bachaao", "bachao", "madad", "chodo", "mat karo", "ruko", "nahi",
	}

	// DefaultAlert phrases raise to MEDIUM.
	DefaultAlert = []string{
		"don't touch", "get away", "go away", "leave me", "no", "please",
	}
)

// defaultFuzzyThreshold is the minimum Jaro-Winkler score for a phonetic
// candidate to be accepted.
const defaultFuzzyThreshold = 0.85

// Option is a functional option for configuring a [Spotter].
type Option func(*Spotter)

// WithCritical replaces the CRITICAL tier list.
func WithCritical(words []string) Option {
	return func(s *Spotter) { s.critical = lowered(words) }
}

// WithAlert replaces the ALERT tier list.
func WithAlert(words []string) Option {
	return func(s *Spotter) { s.alert = lowered(words) }
}

// WithFuzzy enables the phonetic fuzzy stage for single-word CRITICAL
// entries with the given Jaro-Winkler threshold. A threshold of 0 uses the
// default 0.85.
func WithFuzzy(threshold float64) Option {
	return func(s *Spotter) {
		s.fuzzy = true
		if threshold > 0 {
			s.fuzzyThreshold = threshold
		}
	}
}

// Spotter checks finalized transcripts against the keyword tiers. It is
// read-only after construction and safe for concurrent use.
type Spotter struct {
	critical []string
	alert    []string

	fuzzy          bool
	fuzzyThreshold float64

	// criticalCodes caches the Double Metaphone codes of single-word
	// CRITICAL entries for the fuzzy stage.
	criticalCodes map[string][2]string
}

// New creates a Spotter with the default bilingual tier lists, then applies
// the supplied options.
func New(opts ...Option) *Spotter {
	s := &Spotter{
		critical:       lowered(DefaultCritical),
		alert:          lowered(DefaultAlert),
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	if s.fuzzy {
		s.criticalCodes = make(map[string][2]string)
		for _, kw := range s.critical {
			if strings.ContainsRune(kw, ' ') {
				continue
			}
			primary, secondary := matchr.DoubleMetaphone(kw)
			s.criticalCodes[kw] = [2]string{primary, secondary}
		}
	}
	return s
}

// Analyze checks one finalized transcript and returns the strongest match.
// CRITICAL is checked before ALERT; the first matching keyword within a
// tier short-circuits the rest of that tier. A transcript with no hits
// returns a Match with [TierNone].
func (s *Spotter) Analyze(text string) Match {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return Match{}
	}

	for _, kw := range s.critical {
		if strings.Contains(lower, kw) {
			return Match{Tier: TierCritical, Keyword: kw}
		}
	}

	if s.fuzzy {
		if kw, ok := s.fuzzyCritical(lower); ok {
			return Match{Tier: TierCritical, Keyword: kw, Fuzzy: true}
		}
	}

	for _, kw := range s.alert {
		if strings.Contains(lower, kw) {
			return Match{Tier: TierAlert, Keyword: kw}
		}
	}

	return Match{}
}

// fuzzyCritical tests each transcript word against the phonetic codes of
// the single-word CRITICAL entries, ranking candidates by Jaro-Winkler
// similarity on the original strings.
func (s *Spotter) fuzzyCritical(lower string) (string, bool) {
	var (
		best      string
		bestScore float64
	)
	for _, word := range strings.Fields(lower) {
		wp, ws := matchr.DoubleMetaphone(word)
		for kw, codes := range s.criticalCodes {
			if !codesOverlap(wp, ws, codes[0], codes[1]) {
				continue
			}
			score := matchr.JaroWinkler(word, kw, false)
			if score >= s.fuzzyThreshold && score > bestScore {
				best = kw
				bestScore = score
			}
		}
	}
	return best, best != ""
}

// codesOverlap reports whether any non-empty metaphone code is shared.
func codesOverlap(ap, as, bp, bs string) bool {
	for _, a := range []string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || (bs != "" && a == bs) {
			return true
		}
	}
	return false
}

// lowered returns a copy of words with every entry lowercased.
func lowered(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
