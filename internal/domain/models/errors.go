package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredColumn is returned when a step runs on data that lacks
	// fields produced by an earlier step.
	ErrMissingRequiredColumn = errors.New("missing required column")
	// ErrInvalidVersion is returned for a matrix version outside Absolute, Up, Down.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrEmptySeries marks results computed from no data. Results carry it
	// through Err; it is never returned as a call error.
	ErrEmptySeries     = errors.New("empty series")
	ErrInvalidArgument = errors.New("invalid argument")
)

// MissingColumnError names the absent column and the input that lacked it.
type MissingColumnError struct {
	Column string
	Input  string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %q in %s", ErrMissingRequiredColumn, e.Column, e.Input)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingRequiredColumn }

type InvalidVersionError struct {
	Value string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("%s %q: want Absolute, Up or Down", ErrInvalidVersion, e.Value)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }
