package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxNameBytes bounds the cleaned original name. With the 37 byte uuid
// prefix the stored name stays under the common 255 byte file name limit.
const maxNameBytes = 180

// maxExtBytes is the longest extension kept intact when a name is shortened
const maxExtBytes = 16

// Error is returned for any file I/O failure in the attachment directory
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StoredFile describes a file written to the upload directory
type StoredFile struct {
	Name string
	URL  string
}

// FileInfo describes an entry of the upload directory
type FileInfo struct {
	Name    string
	ModTime time.Time
}

// FileStore keeps uploaded attachments in a local directory that is served
// publicly under baseURL
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore creates a store rooted at dir. baseURL is joined verbatim
// with stored names, so it is expected to end with '/'.
func NewFileStore(dir, baseURL string) *FileStore {
	return &FileStore{dir: dir, baseURL: baseURL}
}

// Dir returns the upload directory
func (s *FileStore) Dir() string { return s.dir }

// URLFor returns the public URL of a stored name
func (s *FileStore) URLFor(name string) string {
	return s.baseURL + name
}

// Save writes r under a fresh unique name derived from originalName
func (s *FileStore) Save(originalName string, r io.Reader) (StoredFile, error) {
	name := uuid.New().String() + "_" + cleanName(originalName)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return StoredFile{}, &Error{Op: "mkdir", Name: s.dir, Err: err}
	}

	// Truncate if the path exists; with a random prefix that should not happen
	path := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return StoredFile{}, &Error{Op: "create", Name: name, Err: err}
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return StoredFile{}, &Error{Op: "write", Name: name, Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return StoredFile{}, &Error{Op: "close", Name: name, Err: err}
	}

	return StoredFile{Name: name, URL: s.URLFor(name)}, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *FileStore) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return &Error{Op: "remove", Name: name, Err: errors.New("invalid file name")}
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Op: "remove", Name: name, Err: err}
	}
	return nil
}

// List returns the regular files currently in the upload directory
func (s *FileStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "list", Name: s.dir, Err: err}
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}

// cleanName keeps only the base name of an upload and drops characters
// that do not belong in a URL path segment
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%':
			return -1
		case r == ' ':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return truncateName(name, maxNameBytes)
}

// truncateName shortens name to at most max bytes on a rune boundary,
// keeping a short extension
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxExtBytes || len(ext) == len(name) {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]
	limit := max - len(ext)
	for limit > 0 && !utf8.RuneStart(stem[limit]) {
		limit--
	}
	return stem[:limit] + ext
}
