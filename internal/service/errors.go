package service

import (
	"errors"
	"fmt"

	"github.com/fouadsmari/DIA360-sub000/internal/repository"
)

var (
	// ErrInvalidInput request parameters are missing or malformed; nothing was written.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound the requested record does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrSyncInProgress a run for the same (account, range) is already in flight.
	ErrSyncInProgress = errors.New("sync already in progress")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
