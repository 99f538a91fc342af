package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/princebhatt03/UrbanCart/internal/storage"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// PublicPrefix is the URL prefix the router serves uploads under.
const PublicPrefix = "/uploads/"

// allowedExtensions is the image extension allow-list. Anything else is
// rejected before a byte is written.
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// unsafeChars strips everything but alphanumerics, hyphens and
// underscores from the client-supplied base name.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Storage writes uploads to a local directory and serves them under
// PublicPrefix.
type Storage struct {
	dir string

	// now is swappable in tests so generated names are predictable.
	now func() time.Time
}

// New creates a local storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, now: time.Now}, nil
}

// Save validates the extension and size, then writes the file under a
// unique "<unix>-<base><ext>" name and returns its public path.
func (s *Storage) Save(ctx context.Context, input *storage.SaveInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(input.FileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", apperrors.InvalidInput(fmt.Sprintf("file type %q is not allowed; use .jpg, .jpeg or .png", ext))
	}

	if input.Size <= 0 {
		return "", apperrors.InvalidInput("file is empty")
	}
	if input.Size > storage.MaxUploadSize {
		return "", apperrors.InvalidInput(fmt.Sprintf("file size %d exceeds the %d byte limit", input.Size, storage.MaxUploadSize))
	}

	base := strings.TrimSuffix(filepath.Base(input.FileName), filepath.Ext(input.FileName))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" {
		base = "upload"
	}

	name := fmt.Sprintf("%d-%s%s", s.now().Unix(), base, ext)
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	// Copy one byte past the limit so an understated Size header cannot
	// smuggle an oversized body through.
	written, err := io.Copy(f, io.LimitReader(input.Data, storage.MaxUploadSize+1))
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close upload file: %w", closeErr)
	}
	if written > storage.MaxUploadSize {
		_ = os.Remove(dst)
		return "", apperrors.InvalidInput(fmt.Sprintf("file exceeds the %d byte limit", storage.MaxUploadSize))
	}

	return PublicPrefix + name, nil
}

// Delete removes a file by its public path. Unknown paths succeed.
func (s *Storage) Delete(_ context.Context, path string) error {
	name := strings.TrimPrefix(path, PublicPrefix)
	// Reject anything that could escape the upload dir.
	if name == "" || name != filepath.Base(name) {
		return apperrors.InvalidInput("invalid upload path")
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// Dir returns the root directory, used to mount the static file route.
func (s *Storage) Dir() string {
	return s.dir
}
