// Package apperr defines the error kinds surfaced by inventory operations and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError reports a request that is missing or has malformed fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports that state changed underneath the request, usually a
// stock record taken by a concurrent disposal or dispatch. Callers must re-read
// before retrying.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError reports a pick larger than the pieces left on a stock record.
type CapacityError struct {
	StockRecordID string
	Requested     int
	Available     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("stock record %s has %d pieces remaining, %d requested", e.StockRecordID, e.Available, e.Requested)
}

// TransientStoreError wraps a connectivity or timeout failure from the data
// store. It is the only kind retried automatically.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store failure: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}

// ToFiber converts a known error kind into a *fiber.Error. Unknown errors are
// returned unchanged so the app's ErrorHandler logs them and answers 500.
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var (
		fe         *fiber.Error
		validation *ValidationError
		notFound   *NotFoundError
		conflict   *ConflictError
		capacity   *CapacityError
		transient  *TransientStoreError
	)
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.As(err, &validation):
		return fiber.NewError(fiber.StatusBadRequest, validation.Msg)
	case errors.As(err, &notFound):
		return fiber.NewError(fiber.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		return fiber.NewError(fiber.StatusConflict, conflict.Msg)
	case errors.As(err, &capacity):
		return fiber.NewError(fiber.StatusUnprocessableEntity, capacity.Error())
	case errors.As(err, &transient):
		return fiber.NewError(fiber.StatusServiceUnavailable, "The data store is temporarily unavailable, please try again")
	}
	return err
}
