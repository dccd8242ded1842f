package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers missing or invalid marker files and flags.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound is returned when no repository, parent or archive exists.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientArchives is returned when a count policy asks for more
	// archives than the catalog holds.
	ErrInsufficientArchives = errors.New("insufficient archives")
	// ErrInvalidSelection rejects malformed interactive input as a whole.
	ErrInvalidSelection = errors.New("invalid selection")
	ErrTransfer         = errors.New("transfer failed")
	ErrArchiveExists    = errors.New("archive already exists")
)

// TransferError reports a failed engine create or delete call.
type TransferError struct {
	Op         string
	Repository string
	Archive    string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s in %s: %v", e.Op, e.Archive, e.Repository, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

func NewTransferError(op string, repo *Repository, archive string, err error) *TransferError {
	return &TransferError{Op: op, Repository: repo.Root, Archive: archive, Err: err}
}
