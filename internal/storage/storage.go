package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Package storage contains the file storage abstraction used for document files.
// Backends must never overwrite an existing object: Put claims the requested key
// when it is free and otherwise stores under an alternate key, reporting the key
// actually used in ObjectInfo.Key. Deleting a missing object is not an error.

// ErrPresignUnsupported is returned by backends that cannot produce download URLs;
// callers fall back to streaming the object themselves.
var ErrPresignUnsupported = errors.New("storage: presigned URLs not supported by this backend")

// ErrNotFound is returned by Get when the requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the
// implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the file storage adapter for document files. The MinIO and local
// filesystem implementations are interchangeable and selected by configuration.
type Storage interface {
	// Exists reports whether an object is stored under the given key.
	Exists(ctx context.Context, key string) (bool, error)
	// Put uploads an object. If key is already taken the object is stored under an
	// alternate collision-free key; ObjectInfo.Key carries the final key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Missing objects are ignored.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for downloading the object without
	// credentials, or ErrPresignUnsupported.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// AlternateKey derives a collision-free candidate from key by inserting a short
// random suffix before the extension: "file_1.pdf" -> "file_1_k3x9w2a.pdf".
func AlternateKey(key string) string {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return base + "_" + suffix + ext
}
