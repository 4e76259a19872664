package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps media and brief files on the local filesystem under
// a single root, addressed by relative storage paths. Public URLs are
// derived from the configured base URL so platform adapters can pull
// the files during publishing.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Save streams r to a new file under users/<id>/<kind>/ and returns the
// relative storage path and byte count.
func (s *LocalStore) Save(userID uuid.UUID, kind, filename string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	rel := filepath.Join("users", userID.String(), kind, uuid.NewString()+ext)

	abs, err := s.absPath(rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create storage dir: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create storage file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(abs)
		return "", 0, fmt.Errorf("failed to write storage file: %w", err)
	}

	return filepath.ToSlash(rel), size, nil
}

// PublicURL returns the externally reachable URL for a stored file.
func (s *LocalStore) PublicURL(storagePath string) string {
	return s.baseURL + "/media/" + storagePath
}

// Open returns a reader for a stored file.
func (s *LocalStore) Open(storagePath string) (*os.File, error) {
	abs, err := s.absPath(storagePath)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// AbsPath resolves a storage path for serving. Paths escaping the
// storage root are rejected.
func (s *LocalStore) AbsPath(storagePath string) (string, error) {
	return s.absPath(storagePath)
}

// Remove deletes a stored file. A file that is already gone is not an
// error; deletion must stay idempotent.
func (s *LocalStore) Remove(ctx context.Context, storagePath string) error {
	abs, err := s.absPath(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

func (s *LocalStore) absPath(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path: %s", storagePath)
	}
	return filepath.Join(s.root, clean), nil
}
