// Package apperr defines the error kinds surfaced by storefront operations.
//
// Stores and services return (or wrap) one of the sentinel kinds below so that
// HTTP handlers can map failures to status codes with errors.Is, without
// knowing anything about MongoDB.
package apperr

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error kinds.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
)

// kindError attaches a human message to a kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NotFound returns an ErrNotFound with a message, e.g. NotFound("product").
func NotFound(what string) error {
	return &kindError{kind: ErrNotFound, msg: what + " not found"}
}

// Conflict returns an ErrConflict with the given message.
func Conflict(msg string) error {
	return &kindError{kind: ErrConflict, msg: msg}
}

// Invalid returns an ErrInvalid with a formatted message.
func Invalid(format string, args ...any) error {
	return &kindError{kind: ErrInvalid, msg: fmt.Sprintf(format, args...)}
}

// Forbidden returns an ErrForbidden with the given message.
func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

// StockError names the order item that could not be fulfilled.
// Missing is set when the product no longer exists.
type StockError struct {
	ProductID primitive.ObjectID
	Name      string
	Requested int
	Available int
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s not found", e.ProductID.Hex())
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// Is matches ErrInsufficientStock, and ErrNotFound for a missing product.
func (e *StockError) Is(target error) bool {
	if target == ErrInsufficientStock {
		return true
	}
	return e.Missing && target == ErrNotFound
}

// Kind returns the sentinel kind of err, or nil if err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrInsufficientStock, ErrNotFound, ErrConflict, ErrInvalid, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
