package identity

import "fmt"

// ErrInvalidCredentials is returned for an unknown email or wrong password.
// It never says which.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrEmailAlreadyExists is returned when registering a taken email.
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already exists: %s", e.Email)
}

// ErrInvalidToken wraps a rejected session or Google ID token.
type ErrInvalidToken struct {
	Cause error
}

func (e *ErrInvalidToken) Error() string {
	return fmt.Sprintf("invalid token: %v", e.Cause)
}

func (e *ErrInvalidToken) Unwrap() error {
	return e.Cause
}

// ErrUserNotFound is returned when a token refers to a deleted profile.
type ErrUserNotFound struct {
	UID string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UID)
}
