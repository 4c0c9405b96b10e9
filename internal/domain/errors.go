package domain

import "errors"

// Domain errors (no external dependencies).
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicate       = errors.New("duplicate resource")
	ErrConflict        = errors.New("conflict with current state")
	ErrNotEligible     = errors.New("invoice not eligible for e-Factura")
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
)
