package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification-flow errors. Each maps to exactly one client-visible failure;
// none of them discloses whether an email is registered anywhere in the system.
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPersonalEmail    = errors.New("please use your work email address")
	ErrDomainMismatch   = errors.New("email domain does not match company domain")
	ErrCodeExpired      = errors.New("verification code has expired")
	ErrTooManyAttempts  = errors.New("too many attempts, request a new code")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrAlreadyFinalized = errors.New("verification is no longer valid")
	ErrRoleConflict     = errors.New("email is already linked to a vendor or admin account")
)
