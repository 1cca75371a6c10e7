package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/amruno/internal/filestore"
	"github.com/nfrund/amruno/internal/middleware"
)

// FileHandler handles chat attachment uploads.
type FileHandler struct {
	files *filestore.Service
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files *filestore.Service) *FileHandler {
	return &FileHandler{files: files}
}

// UploadFile stores the multipart field "file" and returns its public URL
// (POST /upload-file).
func (h *FileHandler) UploadFile(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file field.")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file.")
	}
	defer src.Close()

	file, err := h.files.UploadFile(ctx, fileHeader.Filename, src)
	switch {
	case errors.Is(err, filestore.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, filestore.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return err
	}

	logger.Info("File uploaded", "name", file.Name, "mime_type", file.MIMEType, "size", file.Size)
	return c.JSON(http.StatusOK, UploadResponse{URL: file.URL})
}
