// Package predictor ranks dictionary words against a partial symbol sequence.
package predictor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// FallbackWords is used when the dictionary file cannot be read.
var FallbackWords = []string{"അമ്മ", "അച്ഛന്‍", "വീട്"}

// PartialMatchLimit caps PartialMatches results.
const PartialMatchLimit = 5

// NormalizeWord trims surrounding whitespace and a byte order mark, then
// applies NFC so words typed or decoded differently compare equal. Case is
// left alone.
func NormalizeWord(w string) string {
	w = strings.TrimPrefix(strings.TrimSpace(w), "\ufeff")
	return norm.NFC.String(strings.TrimSpace(w))
}

// Dictionary is an ordered, duplicate-free word list. Reads and custom-word
// inserts may happen from different goroutines.
type Dictionary struct {
	mu      sync.RWMutex
	words   []string
	index   map[string]struct{}
	version uint64
}

// NewDictionary builds a dictionary from words, normalizing each one and
// dropping blanks and duplicates while keeping first-seen order.
func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{index: make(map[string]struct{}, len(words))}
	for _, w := range words {
		d.insert(w)
	}
	return d
}

// ReadDictionary parses a newline-delimited UTF-8 word list.
func ReadDictionary(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{index: make(map[string]struct{})}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.insert(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}

// LoadDictionary reads a word list file. On any failure it returns the
// fallback dictionary together with the error so the caller can log it.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewDictionary(FallbackWords), fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	d, err := ReadDictionary(f)
	if err != nil {
		return NewDictionary(FallbackWords), err
	}
	return d, nil
}

func (d *Dictionary) insert(w string) bool {
	w = NormalizeWord(w)
	if w == "" {
		return false
	}
	if _, ok := d.index[w]; ok {
		return false
	}
	d.index[w] = struct{}{}
	d.words = append(d.words, w)
	d.version++
	return true
}

// AddCustomWord inserts a word unless it is blank or already present.
// It reports whether the dictionary changed.
func (d *Dictionary) AddCustomWord(w string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insert(w)
}

// Contains reports whether the normalized word is present.
func (d *Dictionary) Contains(w string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[NormalizeWord(w)]
	return ok
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

// Words returns a copy of the word list in insertion order.
func (d *Dictionary) Words() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// PartialMatches returns up to PartialMatchLimit words containing prefix,
// in dictionary order.
func (d *Dictionary) PartialMatches(prefix string) []string {
	prefix = NormalizeWord(prefix)

	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, w := range d.words {
		if strings.Contains(w, prefix) {
			out = append(out, w)
			if len(out) == PartialMatchLimit {
				break
			}
		}
	}
	return out
}

// snapshot returns the current words and version. The slice must not be
// modified; inserts only ever append, so it stays valid.
func (d *Dictionary) snapshot() ([]string, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.words[:len(d.words):len(d.words)], d.version
}
