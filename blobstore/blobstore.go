// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bankass-awards/server/auth"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store saves uploaded files and returns their public URL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// ObjectKey builds "<prefix>/<unixmillis>_<random>.<ext>" from the client
// file name. Only the extension of the client name is kept.
func ObjectKey(prefix, filename string, now time.Time) (string, error) {
	suffix, err := auth.RandomHex(3)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || !isAlnum(ext) || len(ext) > 8 {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d_%s.%s", prefix, now.UnixMilli(), suffix, ext), nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Local writes objects under a directory that the router serves at
// /uploads/.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, publicBaseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", ErrInvalidKey
	}

	target := filepath.Join(l.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return l.baseURL + "/uploads/" + clean, nil
}
