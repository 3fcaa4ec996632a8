// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankass-awards/server/blobstore"
	"github.com/bankass-awards/server/models"
	tu "github.com/bankass-awards/server/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// multipartRequest builds an upload request. An empty filename sends a
// plain form field instead of a file.
func multipartRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename == "" {
		require.NoError(t, mw.WriteField("note", "pas de fichier"))
	} else {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/simple-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSimpleUpload(t *testing.T) {
	conn := tu.SetupTestDB(t)
	admin := tu.CreateTestUser(t, conn, models.RoleSuperAdmin)
	cfg := tu.GetTestConfig()
	dir := t.TempDir()

	handler := NewUploadHandler(cfg, blobstore.NewLocal(dir, cfg.PublicBaseURL))
	handler.now = func() time.Time { return time.UnixMilli(1741996800000) }

	t.Run("png", func(t *testing.T) {
		content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
		w := httptest.NewRecorder()
		handler.SimpleUpload(w, tu.WithSession(multipartRequest(t, "Portrait.PNG", "image/png", content), admin))

		tu.AssertStatus(t, w, http.StatusOK)
		var resp models.UploadResponse
		tu.AssertJSON(t, w, &resp)
		assert.True(t, resp.Success)

		prefix := cfg.PublicBaseURL + "/uploads/candidates/1741996800000_"
		require.True(t, strings.HasPrefix(resp.URL, prefix), resp.URL)
		assert.True(t, strings.HasSuffix(resp.URL, ".png"), resp.URL)

		stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.URL, cfg.PublicBaseURL+"/uploads/")))
		require.NoError(t, err)
		assert.Equal(t, content, stored)
	})

	tests := []struct {
		name          string
		filename      string
		contentType   string
		content       []byte
		expectedError string
	}{
		{"no file", "", "", nil, "Aucun fichier fourni"},
		{"text file", "notes.txt", "text/plain", []byte("bonjour"), "Veuillez fournir une image"},
		{"declared image but not one", "fake.png", "image/png", []byte("<html>not an image</html>"), "Veuillez fournir une image"},
		{"image bytes declared as pdf", "scan.pdf", "application/pdf", pngHeader, "Veuillez fournir une image"},
		{"too large", "big.png", "image/png", append(append([]byte{}, pngHeader...), make([]byte, 2<<20)...), "Fichier trop volumineux (max 1.0 MB)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.SimpleUpload(w, tu.WithSession(multipartRequest(t, tt.filename, tt.contentType, tt.content), admin))
			tu.AssertError(t, w, http.StatusBadRequest, tt.expectedError)
		})
	}

	entries, err := os.ReadDir(filepath.Join(dir, "candidates"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected uploads are not stored")
}
