package catalog

import (
	"errors"
	"fmt"
)

// ErrMissingHeader is returned when the dataset has no header row.
var ErrMissingHeader = errors.New("dataset has no header row")

// LoadError indicates the dataset could not be ingested. The server must not
// start serving when this is returned.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Errorf("load catalog: %w", e.Err).Error()
	}
	return fmt.Errorf("load catalog %q: %w", e.Path, e.Err).Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
