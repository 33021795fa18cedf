package predictor

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ayusman/mudra/internal/observability"
)

// Scoring weights.
const (
	PositionPoints    = 10
	ExactBonus        = 50
	PrefixBonus       = 20
	SubsequencePoints = 5
	PresencePoints    = 1
)

// DefaultMaxSuggestions is the result cap; larger limits are clamped to it.
const DefaultMaxSuggestions = 10

// Suggestion is one ranked dictionary word.
type Suggestion struct {
	Word       string `json:"word"`
	Score      int    `json:"score"`
	ExactMatch bool   `json:"exact_match"`
}

// Options tunes a Predictor.
type Options struct {
	MaxSuggestions int
	// CacheSize is the number of memoized sequences; 0 disables the cache.
	CacheSize int
}

// Predictor scores the dictionary against a symbol sequence.
type Predictor struct {
	dict  *Dictionary
	max   int
	cache *lru.Cache[string, []Suggestion]
}

// New creates a predictor over dict.
func New(dict *Dictionary, opts Options) *Predictor {
	if opts.MaxSuggestions <= 0 || opts.MaxSuggestions > DefaultMaxSuggestions {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	p := &Predictor{dict: dict, max: opts.MaxSuggestions}
	if opts.CacheSize > 0 {
		// Only fails for a non-positive size.
		p.cache, _ = lru.New[string, []Suggestion](opts.CacheSize)
	}
	return p
}

// Dictionary returns the dictionary being searched.
func (p *Predictor) Dictionary() *Dictionary {
	return p.dict
}

// Predict ranks every dictionary word against symbols. The result is
// recomputed from the full dictionary unless an identical query for the same
// dictionary version is cached; callers own the returned slice.
func (p *Predictor) Predict(symbols []string) []Suggestion {
	if len(symbols) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observability.RecordPrediction(time.Since(start)) }()

	words, version := p.dict.snapshot()

	var key string
	if p.cache != nil {
		key = strconv.FormatUint(version, 10) + "\x00" + strings.Join(symbols, "\x1f")
		if hit, ok := p.cache.Get(key); ok {
			return cloneSuggestions(hit)
		}
	}

	var out []Suggestion
	for _, w := range words {
		score, exact := Score(w, symbols)
		if score > 0 {
			out = append(out, Suggestion{Word: w, Score: score, ExactMatch: exact})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	if len(out) > p.max {
		out = out[:p.max]
	}

	if p.cache != nil {
		p.cache.Add(key, cloneSuggestions(out))
	}
	return out
}

// less orders exact matches first, then higher score, then shorter words,
// then words lexically so the order never depends on dictionary order.
func less(a, b Suggestion) bool {
	if a.ExactMatch != b.ExactMatch {
		return a.ExactMatch
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	la, lb := utf8.RuneCountInString(a.Word), utf8.RuneCountInString(b.Word)
	if la != lb {
		return la < lb
	}
	return a.Word < b.Word
}

// Score rates one word against the sequence. Strategies are tried in order
// and the first non-zero score wins:
//
//  1. positional: 10 per leading symbol equal to the word's character at the
//     same position, stopping at the first mismatch; a full match adds 50
//     and is exact when lengths agree, otherwise adds 20. Only applies when
//     the word is at least as long as the sequence.
//  2. ordered subsequence: 5 per symbol when every symbol is found left to
//     right in the word, without backtracking.
//  3. presence: 1 per symbol occurring anywhere in the word.
func Score(word string, symbols []string) (score int, exact bool) {
	if len(symbols) == 0 {
		return 0, false
	}
	chars := splitChars(word)

	if len(chars) >= len(symbols) {
		matched := true
		for i, sym := range symbols {
			if chars[i] != sym {
				matched = false
				break
			}
			score += PositionPoints
		}
		if matched {
			if len(symbols) == len(chars) {
				return score + ExactBonus, true
			}
			return score + PrefixBonus, false
		}
	}
	if score > 0 {
		return score, false
	}

	cursor, found := 0, 0
	for _, sym := range symbols {
		for cursor < len(chars) {
			c := chars[cursor]
			cursor++
			if c == sym {
				found++
				break
			}
		}
	}
	if found == len(symbols) {
		return found * SubsequencePoints, false
	}

	for _, sym := range symbols {
		for _, c := range chars {
			if c == sym {
				score += PresencePoints
				break
			}
		}
	}
	return score, false
}

// splitChars splits a word into one string per code point.
func splitChars(w string) []string {
	out := make([]string, 0, len(w))
	for _, r := range w {
		out = append(out, string(r))
	}
	return out
}

func cloneSuggestions(s []Suggestion) []Suggestion {
	if s == nil {
		return nil
	}
	out := make([]Suggestion, len(s))
	copy(out, s)
	return out
}
