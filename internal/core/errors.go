package core

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an entity whose configuration the engine cannot
// work with, such as a card closing day outside 1..31. It is surfaced to the
// caller and never corrected silently.
type ConfigurationError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %d configuration: %s", e.Entity, e.ID, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist or lives
// outside the requesting member's family.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvariantViolation is fatal: a multi-row write was found partially applied.
type InvariantViolation struct {
	Op     string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// IsValidation reports whether err comes from rejecting caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionLong, ErrInvalidScope,
		ErrInvalidMode, ErrInvalidFrequency, ErrNoSettlement, ErrInvalidCount, ErrInvalidDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
