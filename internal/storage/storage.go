package storage

import (
	"context"
	"io"
)

// MaxUploadSize is the ceiling for a single image upload.
const MaxUploadSize = 5 << 20

// Storage stores uploaded catalog and avatar images.
type Storage interface {
	// Save writes the file and returns its public relative path.
	Save(ctx context.Context, input *SaveInput) (string, error)

	// Delete removes a previously saved file by its public path.
	// Deleting an unknown path is not an error.
	Delete(ctx context.Context, path string) error
}

// SaveInput holds the parameters for saving an uploaded file.
type SaveInput struct {
	// FileName is the client-supplied name; only its base and
	// extension are used.
	FileName string
	Size     int64
	Data     io.Reader
}
