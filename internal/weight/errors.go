package weight

import (
	"errors"
	"fmt"
)

var (
	ErrConflict      = errors.New("entry for this date already exists")
	ErrInvalidEntry  = errors.New("invalid entry")
	ErrInvalidParams = errors.New("invalid model parameters")
	ErrDuplicateDate = errors.New("duplicate date")
	ErrAsOfTooFar    = errors.New("as of date too far in the future")
)

// LoadError means the dataset could not be read from its source, or the content is malformed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset from %s: %s", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// WriteError means persisting the dataset failed; the in-memory state was rolled back.
type WriteError struct {
	Source string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write dataset to %s: %s", e.Source, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough data yet: have %d entries, need %d", e.Have, e.Need)
}
