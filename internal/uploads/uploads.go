// Package uploads stores item images in the upload directory.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aarnt28/inventory-app/internal/imaging"
)

// Dir is the upload directory.
type Dir struct {
	root string
}

// New returns the upload directory at root, creating it if needed.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// Save stores src under a new random name that keeps the extension of
// original and returns that name. Oversized images are shrunk first.
func (d *Dir) Save(src io.Reader, original string) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	data, err = imaging.Fit(data)
	if err != nil {
		return "", fmt.Errorf("processing upload: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + filepath.Ext(filepath.Base(original))

	f, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing upload file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (d *Dir) Remove(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid upload name %q", name)
	}
	err := os.Remove(filepath.Join(d.root, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}

// exists reports whether a stored file with the given name exists.
func (d *Dir) exists(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	info, err := os.Stat(filepath.Join(d.root, name))
	return err == nil && info.Mode().IsRegular()
}

// Handler serves stored files. Directory listings are not served.
func (d *Dir) Handler() http.Handler {
	files := http.FileServer(http.Dir(d.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
