package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the base of every precondition failure raised before
	// a request reaches the search backend.
	ErrValidation = errors.New("validation failed")

	// ErrEntityTypeMismatch signals an entity whose dynamic type differs from
	// the type a repository is pinned to.
	ErrEntityTypeMismatch = fmt.Errorf("%w: entity type mismatch", ErrValidation)
	// ErrNotAddable signals an entity that refuses to be indexed.
	ErrNotAddable = fmt.Errorf("%w: entity cannot be added to the index", ErrValidation)
	// ErrEmptyChangeSet signals a partial update without changed fields.
	ErrEmptyChangeSet = fmt.Errorf("%w: entity has no changed fields", ErrValidation)
	// ErrScrollDurationMissing signals a scroll without a keep-alive duration.
	ErrScrollDurationMissing = fmt.Errorf("%w: scroll duration is required", ErrValidation)
	// ErrForbiddenExtension signals a query extension whose name is reserved.
	ErrForbiddenExtension = fmt.Errorf("%w: query extension name is reserved", ErrValidation)

	// ErrDocumentNotFound signals a missing index document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNoLoader signals hydration without an entity store collaborator.
	ErrNoLoader = errors.New("no entity loader configured")
)

// EntityTypeError reports which type a repository expected and which one it got.
type EntityTypeError struct {
	Expected string
	Got      string
}

func (e *EntityTypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrEntityTypeMismatch.Error(), e.Expected, e.Got)
}

func (e *EntityTypeError) Unwrap() error { return ErrEntityTypeMismatch }

// NewEntityTypeError creates a type mismatch error.
func NewEntityTypeError(expected, got string) error {
	return &EntityTypeError{Expected: expected, Got: got}
}
