package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrParse is returned when a stored document cannot be decoded into a Building.
type ErrParse struct {
	Source string
	Err    error
}

func (e ErrParse) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e ErrParse) Unwrap() error { return e.Err }

// ErrValidation describes user input that failed a format check.
type ErrValidation struct {
	Field  string
	Value  string
	Reason string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Mutation outcomes reported by Apartment methods.
var (
	ErrAlreadyResident = errors.New("already a resident")
	ErrNotResident     = errors.New("not a resident")
	ErrNumberNotFound  = errors.New("phone number not registered")
)

// IsNotFound reports whether err carries an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsParse reports whether err carries an ErrParse.
func IsParse(err error) bool {
	var pe ErrParse
	return errors.As(err, &pe)
}
