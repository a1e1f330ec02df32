package corridor

import (
	"errors"
	"fmt"
)

// #region errors

// ErrDomain marks a parameter whose normalization bounds cannot produce a
// risk coordinate (min >= max, or the parameter was never registered).
var ErrDomain = errors.New("corridor: domain error")

// ErrValidation marks a corridor record rejected at load time.
var ErrValidation = errors.New("corridor: validation error")

// ErrDuplicateParameter marks an attempt to re-register a parameter name.
// Parameters are immutable once registered.
var ErrDuplicateParameter = errors.New("corridor: duplicate parameter")

// domainErr wraps ErrDomain with the offending parameter name.
func domainErr(param, detail string) error {
	return fmt.Errorf("%w: parameter %q: %s", ErrDomain, param, detail)
}

// #endregion errors
