// Package errors provides the standardized error kinds of the service.
// Use cases return these sentinels (optionally wrapped with context) and
// the HTTP boundary maps them to status codes and client-facing type tags.
package errors

import (
	"errors"
	"fmt"
)

// Payload and shape errors.
var (
	// ErrInvalidPayload indicates a missing/empty field or malformed JSON body.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidEmail indicates the supplied email does not match the expected shape.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidUserAgent indicates a missing User-Agent, or a User-Agent that
	// does not match the one bound to the session.
	ErrInvalidUserAgent = errors.New("invalid user agent")
)

// Lookup errors.
var (
	// ErrUserNotFound indicates no user matches the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates no session matches the given identifiers.
	ErrSessionNotFound = errors.New("session not found")

	// ErrResetLinkNotFound indicates no password reset request matches the given id.
	ErrResetLinkNotFound = errors.New("reset link not found")
)

// Credential and lockout errors.
var (
	// ErrUserAlreadyExists indicates a signup attempt with an email that is taken.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrWrongCredentials indicates a password mismatch at sign-in.
	ErrWrongCredentials = errors.New("wrong credentials")

	// ErrInvalidPassword indicates a password that fails the policy, or a
	// change-password attempt with a non-matching old password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserBlocked indicates the account lockout window is still active.
	ErrUserBlocked = errors.New("user blocked")
)

// Token and session errors.
var (
	// ErrTokenInvalid indicates a token that cannot be parsed or does not
	// match the stored session state.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSignatureInvalid indicates a token whose signature does not verify.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrExpiredSignature indicates a token past its expiry where freshness is required.
	ErrExpiredSignature = errors.New("expired signature")

	// ErrSessionExpired indicates the session backing a refresh no longer
	// exists or has been revoked.
	ErrSessionExpired = errors.New("session expired")

	// ErrActiveSessionExists indicates a refresh attempt while the id token is still fresh.
	ErrActiveSessionExists = errors.New("active session exists")
)

// Single-use link errors.
var (
	// ErrResetLinkExpired indicates a used or expired password reset request.
	ErrResetLinkExpired = errors.New("reset link expired")

	// ErrVerificationLinkExpired indicates an expired email verification request.
	ErrVerificationLinkExpired = errors.New("verification link expired")
)

// Internal errors.
var (
	// ErrKeyNotFound indicates the DEK record backing a user is missing.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCryptoFailure indicates an encryption or decryption failure
	// (most commonly a GCM tag that does not verify).
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrPartialDelete indicates a user delete that completed only partially
	// because a dependent record was already missing.
	ErrPartialDelete = errors.New("partial delete")

	// ErrServerError indicates an unexpected internal failure (store driver,
	// cancelled context, broken invariant).
	ErrServerError = errors.New("server error")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
