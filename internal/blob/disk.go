package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes attachments to a local directory which the HTTP
// server exposes at /uploads/.
type DiskStore struct {
	dir     string
	baseURL string
	log     *log.Logger
}

func NewDiskStore(logger *log.Logger, dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     logger,
	}, nil
}

func (s *DiskStore) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, io.LimitReader(r, MaxFileSize)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	s.log.Printf("stored attachment %q (%s)", name, contentType)
	return s.baseURL + "/uploads/" + filepath.Base(name), nil
}

// Dir is the directory served statically by the HTTP server.
func (s *DiskStore) Dir() string {
	return s.dir
}
