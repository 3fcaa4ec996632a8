// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		filename string
		wantExt  string
	}{
		{"portrait.PNG", "png"},
		{"photo.jpeg", "jpeg"},
		{"no-extension", "jpg"},
		{"../../etc/passwd", "jpg"},
		{"weird.p%g", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			key, err := ObjectKey("candidates", tt.filename, now)
			require.NoError(t, err)

			pattern := `^candidates/1700000000123_[0-9a-f]{6}\.` + tt.wantExt + `$`
			assert.Regexp(t, regexp.MustCompile(pattern), key)
		})
	}
}

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:3318/")

	url, err := store.Put(context.Background(), "candidates/1_abc.png", strings.NewReader("PNGDATA"), 7, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3318/uploads/candidates/1_abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "candidates", "1_abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	// Keys are unique; an existing object is never overwritten.
	_, err = store.Put(context.Background(), "candidates/1_abc.png", strings.NewReader("OTHER"), 5, "image/png")
	assert.Error(t, err)
}

func TestLocalPut_RejectsTraversal(t *testing.T) {
	store := NewLocal(t.TempDir(), "http://localhost")

	for _, key := range []string{"../escape.png", "candidates/../../escape.png", "", "/abs.png"} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "image/png")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}
