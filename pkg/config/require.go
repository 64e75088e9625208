package config

import (
	"errors"
	"fmt"
)

// Required collects the env names whose values are empty.
type Required struct {
	missing []string
}

func (r *Required) NonEmpty(value, envName string) {
	if value == "" {
		r.missing = append(r.missing, envName)
	}
}

func (r *Required) NonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		r.missing = append(r.missing, envName)
	}
}

func (r *Required) Err() error {
	if len(r.missing) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.missing))
	for _, name := range r.missing {
		errs = append(errs, fmt.Errorf("missing required env %s", name))
	}
	return errors.Join(errs...)
}
