// Package storage keeps uploaded documents and hands back public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for object keys that would escape the bucket.
var ErrInvalidKey = errors.New("invalid object key")

// Store uploads objects and resolves their public URL.
type Store interface {
	// Upload writes r under key, replacing any existing object, and returns
	// the URL the object can be downloaded from.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
}

// DiskStore writes objects below Root/Bucket and serves them from
// PublicURL/Bucket (the router mounts Root at the public prefix).
type DiskStore struct {
	Root      string
	Bucket    string
	PublicURL string
}

func NewDiskStore(root, bucket, publicURL string) *DiskStore {
	return &DiskStore{Root: root, Bucket: bucket, PublicURL: strings.TrimRight(publicURL, "/")}
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(k, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}

func (s *DiskStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, s.Bucket, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	// Write to a temp file first so a failed upload never leaves a partial
	// object in place of a good one.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return s.PublicURL + "/" + s.Bucket + "/" + k, nil
}
