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

	// Step-up verification kinds.
	ErrCameraAccessDenied = errors.New("camera access denied")
	ErrNoFace             = errors.New("no face detected")
	ErrInvalidOtpFormat   = errors.New("otp must be exactly 6 digits")
	ErrRemoteCallFailed   = errors.New("remote call failed")
	ErrStaleCredential    = errors.New("cached verification expired")
	ErrTokenExpired       = errors.New("session token expired")
	ErrInvalidTransition  = errors.New("invalid step-up transition")
	ErrLocked             = errors.New("passwords are locked")
)
