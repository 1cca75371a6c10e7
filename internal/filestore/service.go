// Package filestore stores chat attachments and hands out their public URLs.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/nfrund/amruno/internal/storage"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads/"

var (
	// ErrUnsupportedType is returned for content that is not image, audio or video.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when the content exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

var allowedFamilies = []string{"image/", "audio/", "video/"}

// Service saves uploads under collision-free names.
type Service struct {
	store   storage.Store
	baseURL string
	maxSize int64
}

// NewService creates a file service. baseURL is the public origin used to
// build download URLs; maxSize caps a single upload in bytes.
func NewService(store storage.Store, baseURL string, maxSize int64) *Service {
	return &Service{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
	}
}

// UploadFile detects the content type, stores the content under a fresh
// UUID name with the detected type's extension, and returns its metadata.
// originalFilename is only used for logging.
func (s *Service) UploadFile(ctx context.Context, originalFilename string, content io.Reader) (*domain.File, error) {
	br := bufio.NewReaderSize(content, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	mtype := mimetype.Detect(head)
	if !isAllowed(mtype) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	// The served Content-Type follows the extension, so it must come from the
	// detected type and never from the client's file name.
	name := uuid.NewString() + mtype.Extension()
	if ext := strings.ToLower(filepath.Ext(originalFilename)); ext != "" && ext != mtype.Extension() {
		slog.DebugContext(ctx, "Upload extension does not match content",
			"filename", originalFilename, "detected", mtype.String())
	}

	written, err := s.store.Save(ctx, name, io.LimitReader(br, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}
	if written > s.maxSize {
		_ = s.store.Delete(ctx, name)
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxSize)
	}

	file := &domain.File{
		Name:        name,
		MIMEType:    mtype.String(),
		Size:        written,
		URL:         s.baseURL + URLPrefix + name,
		StoragePath: name,
	}
	if err := file.Validate(); err != nil {
		_ = s.store.Delete(ctx, name)
		return nil, fmt.Errorf("invalid file metadata: %w", err)
	}
	return file, nil
}

func isAllowed(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, family := range allowedFamilies {
			if strings.HasPrefix(m.String(), family) {
				return true
			}
		}
	}
	return false
}
