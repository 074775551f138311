package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store writes uploaded credential documents to local disk. Filenames are
// randomized so a stored path never leaks the original name.
type Store struct {
	dir string
}

// New ensures the upload directory exists.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory served under /uploads.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the file and returns the stored filename. The original name
// contributes only its extension.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	name := hex.EncodeToString(buf[:]) + sanitizeExt(filepath.Ext(originalName))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. A file already gone is not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// URLFor builds the public URL for a stored filename relative to the
// request's base URL.
func URLFor(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + name
}

func sanitizeExt(ext string) string {
	if ext == "" || len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
