// Package sequence holds the ordered list of confirmed symbols for one
// authoring session.
package sequence

import "strings"

// Sequence is an append/undo list of symbols. It is owned by a single
// writer and is not safe for concurrent use.
type Sequence struct {
	symbols []string
}

// New returns an empty sequence.
func New() *Sequence {
	return &Sequence{}
}

// Append adds a symbol at the end.
func (s *Sequence) Append(symbol string) {
	s.symbols = append(s.symbols, symbol)
}

// RemoveLast drops the last symbol and returns it. ok is false when empty.
func (s *Sequence) RemoveLast() (symbol string, ok bool) {
	if len(s.symbols) == 0 {
		return "", false
	}
	symbol = s.symbols[len(s.symbols)-1]
	s.symbols = s.symbols[:len(s.symbols)-1]
	return symbol, true
}

// Clear removes every symbol and returns how many were removed.
func (s *Sequence) Clear() int {
	n := len(s.symbols)
	s.symbols = nil
	return n
}

// Symbols returns a copy of the symbols in order.
func (s *Sequence) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Last returns the last symbol, or "".
func (s *Sequence) Last() string {
	if len(s.symbols) == 0 {
		return ""
	}
	return s.symbols[len(s.symbols)-1]
}

// Len returns the number of symbols.
func (s *Sequence) Len() int {
	return len(s.symbols)
}

// String joins the symbols the way the recognition screen displays them.
func (s *Sequence) String() string {
	return strings.Join(s.symbols, " + ")
}
