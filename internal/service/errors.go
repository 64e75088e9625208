package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_backend/internal/repo"
)

var (
	ErrValidation    = errors.New("validation")                // 400
	ErrUnauthorized  = errors.New("unauthorized")              // 401
	ErrForbidden     = errors.New("forbidden")                 // 403
	ErrNotFound      = errors.New("not found")                 // 404
	ErrConflict      = errors.New("conflict")                  // 409
	ErrPaymentFailed = errors.New("payment processing failed") // 502
)

// conflictError is a named kind of ErrConflict.
type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }

func (e *conflictError) Unwrap() error { return ErrConflict }

// Conflict refinements; errors.Is(err, ErrConflict) holds for each.
var (
	ErrInsufficientStock error = &conflictError{"insufficient stock"}
	ErrAlreadyRefunded   error = &conflictError{"order already refunded"}
	ErrInvalidTransition error = &conflictError{"invalid status transition"}
	ErrHasDependents     error = &conflictError{"has dependents"}
)

// storeErr maps repository errors onto the service taxonomy. what names the
// entity for the message.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repo.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, repo.ErrAlreadyRefunded):
		return ErrAlreadyRefunded
	case errors.Is(err, repo.ErrHasDependents):
		detail := strings.TrimPrefix(err.Error(), repo.ErrHasDependents.Error()+": ")
		return fmt.Errorf("%w: %s still has %s", ErrHasDependents, what, detail)
	case errors.Is(err, repo.ErrAlreadyRated):
		return fmt.Errorf("%w: product already rated by this user", ErrConflict)
	case errors.Is(err, repo.ErrTokenRevoked):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}
