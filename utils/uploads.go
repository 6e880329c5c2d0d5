package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileTooLarge is returned by UploadDir.Save when the content exceeds MaxBytes.
var ErrFileTooLarge = errors.New("uploaded file too large")

// tempPrefix marks in-progress writes; List skips them.
const tempPrefix = ".upload-"

// UploadDir is the flat directory photos are written to and served from.
// Names are used as given; callers sanitize them first. Writing an existing
// name replaces the file.
type UploadDir struct {
	Root     string
	MaxBytes int64 // zero means unlimited
}

// NewUploadDir returns an UploadDir rooted at root.
func NewUploadDir(root string, maxBytes int64) *UploadDir {
	return &UploadDir{Root: root, MaxBytes: maxBytes}
}

// Ensure creates the directory if needed.
func (u *UploadDir) Ensure() error {
	return os.MkdirAll(u.Root, 0o755)
}

// Path returns the on-disk location for name.
func (u *UploadDir) Path(name string) string {
	return filepath.Join(u.Root, filepath.Base(name))
}

// Save writes r under name. The content goes to a temp file first and only
// replaces name once it is complete and within MaxBytes, so a rejected upload
// never touches an existing file. created reports whether name did not exist
// before.
func (u *UploadDir) Save(name string, r io.Reader) (created bool, err error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, tempPrefix) {
		return false, fmt.Errorf("invalid upload name %q", name)
	}
	dst := u.Path(name)

	tmp, err := os.CreateTemp(u.Root, tempPrefix+"*")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	src := r
	if u.MaxBytes > 0 {
		src = &io.LimitedReader{R: r, N: u.MaxBytes + 1}
	}
	written, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	if u.MaxBytes > 0 && written > u.MaxBytes {
		return false, ErrFileTooLarge
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, fmt.Errorf("chmod %s: %w", name, err)
	}

	_, statErr := os.Stat(dst)
	created = errors.Is(statErr, fs.ErrNotExist)
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return false, fmt.Errorf("store %s: %w", name, err)
	}
	return created, nil
}

// Remove deletes name; a missing file is not an error.
func (u *UploadDir) Remove(name string) error {
	err := os.Remove(u.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// StoredFile describes one file in the upload directory.
type StoredFile struct {
	Name    string
	ModTime time.Time
}

// List returns the regular files directly under Root.
func (u *UploadDir) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(u.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{Name: e.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}
