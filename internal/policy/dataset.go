package policy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
)

//go:embed data/policies.json
var defaultDataset []byte

// Dataset is an ordered, read-only sequence of policies.
type Dataset struct {
	policies []Policy
	byID     map[int]int
}

// New validates policies and builds a Dataset that owns a private copy of
// them.
func New(policies []Policy) (*Dataset, error) {
	if err := validate(policies); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDataset, err)
	}
	ds := &Dataset{
		policies: make([]Policy, len(policies)),
		byID:     make(map[int]int, len(policies)),
	}
	for i, p := range policies {
		ds.policies[i] = p.Clone()
		ds.byID[p.ID] = i
	}
	return ds, nil
}

// Parse decodes a JSON array of policies.
func Parse(data []byte) (*Dataset, error) {
	var policies []Policy
	if err := json.Unmarshal(data, &policies); err != nil {
		return nil, fmt.Errorf("%w: decoding policies: %w", apperrors.ErrInvalidDataset, err)
	}
	return New(policies)
}

// Load reads the dataset at path. An empty path loads the embedded default
// dataset.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return ds, nil
}

// Default returns the dataset compiled into the binary.
func Default() (*Dataset, error) {
	return Parse(defaultDataset)
}

// Len returns the number of policies.
func (d *Dataset) Len() int {
	return len(d.policies)
}

// All returns every policy in dataset order.
func (d *Dataset) All() []Policy {
	out := make([]Policy, len(d.policies))
	for i, p := range d.policies {
		out[i] = p.Clone()
	}
	return out
}

// At returns the policy at position i in dataset order.
func (d *Dataset) At(i int) Policy {
	return d.policies[i].Clone()
}

// ByID returns the policy with the given id. The boolean is false when no
// such policy exists.
func (d *Dataset) ByID(id int) (Policy, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Policy{}, false
	}
	return d.policies[i].Clone(), true
}
