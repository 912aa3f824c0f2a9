// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirBucket is a blob bucket backed by a local directory. Objects are
// addressed by slash-separated relative paths.
type DirBucket struct {
	root string
}

// NewDirBucket returns a bucket rooted at dir, creating it if needed.
func NewDirBucket(dir string) (*DirBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating bucket directory: %w", err)
	}
	return &DirBucket{root: dir}, nil
}

// Upload writes data under path and returns the object's file path.
// Existing objects are replaced.
func (b *DirBucket) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(path)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	dst := filepath.Join(b.root, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing object %s: %w", path, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing object %s: %w", path, err)
	}
	return dst, nil
}
