// Package service implements the AuthorHash registry workflows: certificate
// issuance and lookup, the anchor reconciliation sweep, email access tokens,
// and operator accounts.
package service

import "errors"

var (
	// ErrInvalidHash is returned when a content hash is not a 64-character
	// hex digest.
	ErrInvalidHash = errors.New("content hash must be a 64-character hex digest")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrReferenceExhausted is returned when the issuance workflow cannot
	// find an unused reference within the configured attempt budget. The
	// caller must treat the issuance as failed and retry the whole request.
	ErrReferenceExhausted = errors.New("failed to generate unique certificate reference")

	// ErrTokenNotFound is returned when an access token does not exist.
	ErrTokenNotFound = errors.New("access token not found")

	// ErrTokenExpired is returned when an access token is past its expiry
	// or has already been consumed. There is no retry path; the user must
	// request a new token.
	ErrTokenExpired = errors.New("access token expired or already used")
)
