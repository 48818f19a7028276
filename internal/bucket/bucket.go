// Package bucket stores uploaded objects behind a small key/value interface
// with a local directory backend and an S3-compatible backend.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vibestack/internal/config"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Meta is stored alongside each object.
type Meta struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	ETag        string `json:"etag"`
}

// Object is a stored object opened for reading. Callers must close Body.
type Object struct {
	Key  string
	Meta Meta
	Body io.ReadCloser
}

// Bucket is the object storage used by the upload routes.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader, meta Meta) (Meta, error)
	Get(ctx context.Context, key string) (*Object, error)
}

// Open builds the bucket selected by cfg. It returns nil when storage is
// not configured.
func Open(ctx context.Context, cfg config.StorageConfig) (Bucket, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// NewKey returns a random object key keeping the extension of filename,
// or "bin" when it has none.
func NewKey(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), ".")
	if ext == "" {
		ext = "bin"
	}
	return uuid.NewString() + "." + strings.ToLower(ext)
}

// ValidKey rejects keys that could escape a storage root.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
