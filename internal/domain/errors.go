package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrUserAlreadyExists  = errors.New("mobile number already registered")
	ErrInvalidCredentials = errors.New("incorrect mobile number or password")
	ErrNotFound           = errors.New("requested resource not found")
	ErrInvalidMessage     = errors.New("message must carry exactly one of content, image_url or audio_url")
)
