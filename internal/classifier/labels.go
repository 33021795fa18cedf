package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnknownLabel is reported for a probability index the label map does not name.
const UnknownLabel = "Unknown"

// LabelMap maps classifier output indices to symbols.
type LabelMap struct {
	byIndex map[int]string
	max     int
}

// NewLabelMap builds a label map from an index to label mapping.
// Labels are NFC-normalized so they compare equal to dictionary words.
func NewLabelMap(m map[int]string) (*LabelMap, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("label map is empty")
	}
	lm := &LabelMap{byIndex: make(map[int]string, len(m)), max: -1}
	for idx, label := range m {
		if idx < 0 {
			return nil, fmt.Errorf("label map index %d is negative", idx)
		}
		label = norm.NFC.String(strings.TrimSpace(label))
		if label == "" {
			return nil, fmt.Errorf("label map index %d has an empty label", idx)
		}
		lm.byIndex[idx] = label
		if idx > lm.max {
			lm.max = idx
		}
	}
	return lm, nil
}

// LabelsFromSlice builds a contiguous label map where label i has index i.
func LabelsFromSlice(labels []string) (*LabelMap, error) {
	m := make(map[int]string, len(labels))
	for i, l := range labels {
		m[i] = l
	}
	return NewLabelMap(m)
}

// ParseLabelMap decodes a JSON object whose keys are string-encoded integers.
func ParseLabelMap(data []byte) (*LabelMap, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse label map: %w", err)
	}
	m := make(map[int]string, len(raw))
	for key, label := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("label map key %q is not an integer", key)
		}
		m[idx] = label
	}
	return NewLabelMap(m)
}

// LoadLabelMap reads a label map JSON file.
func LoadLabelMap(path string) (*LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	return ParseLabelMap(data)
}

// Len is the number of classes, which is also the expected probability vector length.
func (m *LabelMap) Len() int {
	return len(m.byIndex)
}

// Label returns the label for idx, or UnknownLabel.
func (m *LabelMap) Label(idx int) string {
	if l, ok := m.byIndex[idx]; ok {
		return l
	}
	return UnknownLabel
}

// Labels returns every label ordered by index.
func (m *LabelMap) Labels() []string {
	idx := make([]int, 0, len(m.byIndex))
	for i := range m.byIndex {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for i, k := range idx {
		out[i] = m.byIndex[k]
	}
	return out
}

// Index returns the index of label, or -1.
func (m *LabelMap) Index(label string) int {
	label = norm.NFC.String(label)
	best := -1
	for i, l := range m.byIndex {
		if l == label && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
