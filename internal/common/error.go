// Package common defines shared constants and sentinel errors used across
// idkeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

// Token errors, as classified by the codec.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// Authentication and authorization errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)

// Password reset errors.
var (
	ErrTokenAlreadyUsed = errors.New("reset token already used or superseded")
	ErrMissingToken     = errors.New("missing token")
)

// Collaborator failures.
var (
	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrDeliveryFailed   = errors.New("email delivery failed")
)

// Repository errors. Services translate these before they leave the layer.
var (
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Input errors.
var (
	ErrValidation       = errors.New("validation error")
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
)
