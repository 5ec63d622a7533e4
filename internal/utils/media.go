package utils

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrUploadTooLarge is returned when a file exceeds the media limit.
	ErrUploadTooLarge = errors.New("file too large")
	// ErrUploadType is returned for files that are not images.
	ErrUploadType = errors.New("unsupported file type")
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// MediaStore writes uploaded images below Dir. Stored references are
// slash-separated paths relative to Dir.
type MediaStore struct {
	Dir      string
	MaxBytes int64
}

// Save copies fh into Dir/folder under a random name and returns the
// relative reference to persist.
func (m MediaStore) Save(fh *multipart.FileHeader, folder string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return "", ErrUploadType
	}
	if m.MaxBytes > 0 && fh.Size > m.MaxBytes {
		return "", ErrUploadTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name, err := randomHex(16)
	if err != nil {
		return "", err
	}
	ref := path.Join(folder, name+ext)

	dst := filepath.Join(m.Dir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	limit := m.MaxBytes
	if limit <= 0 {
		limit = fh.Size
	}
	n, err := io.Copy(out, io.LimitReader(src, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = ErrUploadTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return ref, nil
}
