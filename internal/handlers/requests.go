package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterRequest defines the DTO for the registration endpoint.
type RegisterRequest struct {
	FullName     string `json:"full_name" validate:"required,max=100"`
	MobileNumber string `json:"mobile_number" validate:"required,max=15"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
	Gender       string `json:"gender" validate:"required,max=10"`
}

// LoginRequest defines the DTO for the login endpoint.
type LoginRequest struct {
	MobileNumber string `json:"mobile_number"`
	Password     string `json:"password"`
}
