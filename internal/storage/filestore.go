package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
)

// DefaultMaxBytes caps a single upload at 16 MiB.
const DefaultMaxBytes int64 = 16 << 20

// Allowed extension sets per upload kind.
var (
	ImageExtensions    = []string{"png", "jpg", "jpeg"}
	ResumeExtensions   = []string{"pdf", "doc", "docx", "png", "jpg", "jpeg"}
	DocumentExtensions = []string{"pdf", "doc", "docx"}
)

var (
	// ErrFileTooLarge reports an upload over the configured size limit.
	ErrFileTooLarge = apperrors.New("FILE_TOO_LARGE", "Uploaded file is too large", 413)
	// ErrFileType reports a disallowed extension.
	ErrFileType = apperrors.New("INVALID_FILE_TYPE", "File type not allowed", 400)

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// FileStore keeps uploaded blobs under a single root directory.
type FileStore struct {
	root     string
	maxBytes int64
	now      func() time.Time
	log      *zap.Logger
}

// Option customises a FileStore.
type Option func(*FileStore)

// WithMaxBytes overrides the size limit.
func WithMaxBytes(limit int64) Option {
	return func(s *FileStore) {
		if limit > 0 {
			s.maxBytes = limit
		}
	}
}

// WithClock overrides the timestamp source used in file names.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, opts ...Option) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: upload directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}

	store := &FileStore{
		root:     abs,
		maxBytes: DefaultMaxBytes,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.WithModule("storage"),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Root returns the absolute upload directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save writes the uploaded file as <prefix>_<owner>_<timestamp>_<name> and
// returns the stored name.
func (s *FileStore) Save(ctx context.Context, prefix, ownerID string, header *multipart.FileHeader, allowed []string) (string, error) {
	if header == nil {
		return "", apperrors.NewBadRequest("file is required")
	}
	original := SanitizeFilename(header.Filename)
	if original == "" {
		return "", apperrors.NewBadRequest("file name is required")
	}
	if !AllowedExtension(original, allowed) {
		return "", ErrFileType.WithMessage(fmt.Sprintf("File type not allowed; expected one of %s", strings.Join(allowed, ", ")))
	}
	if header.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}

	name := fmt.Sprintf("%s_%s_%s_%s", prefix, ownerID, s.now().Format("20060102150405"), original)

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload: %w", err)
	}
	defer src.Close()

	if err := s.write(ctx, name, src); err != nil {
		return "", err
	}
	return name, nil
}

func (s *FileStore) write(ctx context.Context, name string, src io.Reader) error {
	path := filepath.Join(s.root, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}

	written, copyErr := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return fmt.Errorf("storage: write file: %w", copyErr)
	case written > s.maxBytes:
		_ = os.Remove(path)
		return ErrFileTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return fmt.Errorf("storage: close file: %w", closeErr)
	}
	if ctx != nil && ctx.Err() != nil {
		_ = os.Remove(path)
		return ctx.Err()
	}
	return nil
}

// Open returns a reader for a stored file. Names that escape the root are
// reported as not found.
func (s *FileStore) Open(name string) (*os.File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewNotFound("File not found")
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return file, nil
}

// Path returns the absolute path of a stored file after validation.
func (s *FileStore) Path(name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperrors.NewNotFound("File not found")
		}
		return "", fmt.Errorf("storage: stat: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file. Missing files are ignored.
func (s *FileStore) Remove(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	path, err := s.resolve(name)
	if err != nil {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to remove upload", zap.String("file", name), zap.Error(err))
	}
}

func (s *FileStore) resolve(name string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + name))
	if clean != name || clean == "." || clean == "/" || strings.HasPrefix(clean, ".") {
		return "", apperrors.NewNotFound("File not found")
	}
	return filepath.Join(s.root, clean), nil
}

// SanitizeFilename keeps the base name and replaces unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.TrimLeft(name, "._")
}

// AllowedExtension reports whether the file's extension is in the allow list.
func AllowedExtension(name string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}
