package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecord          = errors.New("models: no matching record found")
	ErrInvalidID         = errors.New("models: invalid object id")
	ErrDuplicate         = errors.New("models: duplicate key")
	ErrStatusConflict    = errors.New("models: order status changed concurrently")
	ErrEditConflict      = errors.New("models: record changed concurrently")
	ErrUnknownStatus     = errors.New("models: unknown order status")
	ErrInvalidTransition = errors.New("models: order status cannot move backwards")
	ErrOrderDelivered    = errors.New("models: order already delivered")
	ErrInvalidFilter     = errors.New("models: invalid filter value")
)

// DuplicateError names the field whose unique index rejected a write.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Duplicate %s entered", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
