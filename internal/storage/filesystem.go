package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"
)

// fsStorage implements the Storage interface on a local directory. Keys map to
// file names inside the root directory; path separators in keys are rejected so a
// crafted filename cannot escape the root. The O_EXCL claim makes the
// claim-or-rename step atomic under concurrent writers.
type fsStorage struct {
	root string
}

// NewFilesystem creates a local filesystem storage rooted at dir, creating the
// directory if it does not exist.
func NewFilesystem(dir string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &fsStorage{root: dir}, nil
}

func (f *fsStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.root, key), nil
}

// Exists reports whether a file is stored under the given key.
func (f *fsStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Put writes the stream to a file under key, claiming alternate keys on collision.
func (f *fsStorage) Put(_ context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	finalKey := key
	var file *os.File
	for {
		p, err := f.path(finalKey)
		if err != nil {
			return ObjectInfo{}, err
		}
		file, err = os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return ObjectInfo{}, fmt.Errorf("create %q: %w", finalKey, err)
		}
		finalKey = AlternateKey(key)
	}

	n, err := io.Copy(file, r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p, _ := f.path(finalKey)
		_ = os.Remove(p)
		return ObjectInfo{}, fmt.Errorf("write %q: %w", finalKey, err)
	}

	ct := opt.ContentType
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(finalKey))
	}
	return ObjectInfo{
		Key:          finalKey,
		Size:         n,
		ContentType:  ct,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the stored file for streaming.
func (f *fsStorage) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(key)),
		LastModified: st.ModTime(),
	}
	return file, info, nil
}

// Delete removes the stored file. Missing files are not an error.
func (f *fsStorage) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PresignGet is not supported on the local filesystem; callers stream instead.
func (f *fsStorage) PresignGet(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}
