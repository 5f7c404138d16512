package auth

import "errors"

var (
	// ErrDuplicateIdentity means the username or email is already taken.
	ErrDuplicateIdentity = errors.New("username or email already taken")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordMismatch means password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUnauthenticated means the session token is missing, invalid or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
)
