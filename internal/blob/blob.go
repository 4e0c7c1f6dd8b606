package blob

import (
	"context"
	"io"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
)

// MaxFileSize is the largest accepted attachment, 5MB.
const MaxFileSize = 5 << 20

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Store persists attachment bytes and returns a publicly retrievable URL.
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

func AllowedType(contentType string) bool {
	return slices.Contains(allowedTypes, contentType)
}

// ObjectName derives a unique storage name preserving the original
// file's extension.
func ObjectName(filename string) string {
	return uuid.NewString() + filepath.Ext(filename)
}
