package bucket

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const metaSuffix = ".meta.json"

// FS keeps objects as files under a root directory with a JSON sidecar
// holding the metadata.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, errors.New("storage dir must be configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FS{root: root}, nil
}

func (f *FS) Put(ctx context.Context, key string, r io.Reader, meta Meta) (Meta, error) {
	if !ValidKey(key) {
		return Meta{}, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	path := filepath.Join(f.root, key)
	tmp, err := os.CreateTemp(f.root, ".upload-*")
	if err != nil {
		return Meta{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Meta{}, fmt.Errorf("write object: %w", err)
	}
	meta.Size = n
	meta.ETag = `"` + hex.EncodeToString(hash.Sum(nil)) + `"`

	raw, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(path+metaSuffix, raw, 0o644); err != nil {
		return Meta{}, fmt.Errorf("write meta: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Meta{}, fmt.Errorf("store object: %w", err)
	}
	return meta, nil
}

func (f *FS) Get(ctx context.Context, key string) (*Object, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.root, key)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	var meta Meta
	if raw, err := os.ReadFile(path + metaSuffix); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}
	if meta.Size == 0 {
		if st, err := file.Stat(); err == nil {
			meta.Size = st.Size()
		}
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/octet-stream"
	}
	return &Object{Key: key, Meta: meta, Body: file}, nil
}
