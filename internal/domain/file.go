package domain

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is the package-level validator instance shared by the domain
// types. Using a single instance caches struct information.
var Validate = validator.New()

func init() {
	// Register the safepath validator to prevent directory traversal attacks.
	_ = Validate.RegisterValidation("safepath", validateSafePath)
}

// validateSafePath ensures the path doesn't contain any directory traversal attempts.
func validateSafePath(fl validator.FieldLevel) bool {
	path := fl.Field().String()

	if strings.Contains(path, "..") ||
		strings.Contains(path, "~") ||
		strings.HasPrefix(path, "/") ||
		strings.Contains(path, "\\") {
		return false
	}

	// Catches subtle cases like "uploads/./../file".
	return path == filepath.Clean(path)
}

// File describes an uploaded file held by the upload store.
type File struct {
	Name        string `json:"name" validate:"required,max=255,safepath"`
	MIMEType    string `json:"mime_type" validate:"required"`
	Size        int64  `json:"size" validate:"gte=0"`
	URL         string `json:"url"`
	StoragePath string `json:"-" validate:"required,safepath"`
}

// Validate runs validation checks on the File struct using the defined tags.
func (f *File) Validate() error {
	return Validate.Struct(f)
}
