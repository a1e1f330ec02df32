package corridor

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// #region loader

var validate = validator.New()

// LoadSpec reads a corridor specification YAML file and builds a registry.
// Any record with an absent or mistyped field is rejected here, not coerced.
func LoadSpec(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corridor spec %s: %w", path, err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrValidation, path, err)
	}
	return BuildRegistry(spec)
}

// BuildRegistry validates an in-memory corridor spec and registers every row.
func BuildRegistry(spec Spec) (*Registry, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	reg := NewRegistry()
	for i, rec := range spec.Corridor {
		p := Parameter{
			Name:       rec.ParameterName,
			Unit:       rec.Unit,
			Direction:  Direction(rec.Direction),
			LegalLimit: *rec.LegalLimit,
			GoldLimit:  *rec.GoldLimit,
			NormMin:    *rec.NormalizationMin,
			NormMax:    *rec.NormalizationMax,
			Weight:     *rec.Weight,
			Channel:    *rec.ChannelIndex,
		}
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("corridor row %d: %w", i, err)
		}
	}
	return reg, nil
}

// #endregion loader
