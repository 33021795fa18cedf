package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/mudra/internal/features"
)

// Scaler applies the per-dimension standardization the model was trained with.
type Scaler struct {
	mean  [features.Len]float32
	scale [features.Len]float32
}

type scalerParams struct {
	Mean  []float32 `json:"mean"`
	Scale []float32 `json:"scale"`
}

// NewScaler builds a scaler from explicit parameters. Both slices must have
// features.Len entries. A zero scale is treated as 1 so constant features
// pass through centred rather than producing Inf.
func NewScaler(mean, scale []float32) (*Scaler, error) {
	if len(mean) != features.Len {
		return nil, fmt.Errorf("scaler mean has %d values, expected %d", len(mean), features.Len)
	}
	if len(scale) != features.Len {
		return nil, fmt.Errorf("scaler scale has %d values, expected %d", len(scale), features.Len)
	}

	s := &Scaler{}
	copy(s.mean[:], mean)
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

// IdentityScaler returns a scaler that leaves vectors unchanged.
func IdentityScaler() *Scaler {
	s := &Scaler{}
	for i := range s.scale {
		s.scale[i] = 1
	}
	return s
}

// ParseScaler decodes scaler parameters from a {"mean": [...], "scale": [...]} document.
func ParseScaler(data []byte) (*Scaler, error) {
	var p scalerParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse scaler params: %w", err)
	}
	return NewScaler(p.Mean, p.Scale)
}

// LoadScaler reads scaler parameters from a JSON file.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler params: %w", err)
	}
	return ParseScaler(data)
}

// Transform returns (v - mean) / scale for every dimension.
func (s *Scaler) Transform(v features.Vector) features.Vector {
	var out features.Vector
	for i := range v {
		out[i] = (v[i] - s.mean[i]) / s.scale[i]
	}
	return out
}
