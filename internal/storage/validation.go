package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally-ho/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSessionRecord ensures a record can be stored losslessly.
func validateSessionRecord(record *model.SessionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.ID, "record.ID"); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("record %s has no creation time", record.ID)
	}
	for i := range record.Entries {
		if record.Entries[i].Label.Raw == "" {
			return fmt.Errorf("record %s entry %d has an empty label", record.ID, i)
		}
	}
	return nil
}
