// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bankass-awards/server/blobstore"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/models"
)

// Uploaded candidate pictures live under this key prefix.
const uploadPrefix = "candidates"

// multipartOverhead leaves room for form boundaries and headers on top of
// the file size limit.
const multipartOverhead = 64 << 10

type UploadHandler struct {
	cfg   cliparse.Config
	store blobstore.Store
	now   func() time.Time
}

func NewUploadHandler(cfg cliparse.Config, store blobstore.Store) *UploadHandler {
	return &UploadHandler{cfg: cfg, store: store, now: time.Now}
}

// SimpleUpload handles POST /api/simple-upload
func (h *UploadHandler) SimpleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.UploadMaxBytes
	tooLarge := "Fichier trop volumineux (max " + humanize.Bytes(uint64(limit)) + ")"

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.ErrorResponse(w, http.StatusBadRequest, tooLarge)
			return
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, "Aucun fichier fourni")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Aucun fichier fourni")
		return
	}
	defer file.Close()

	if header.Size > limit {
		middleware.ErrorResponse(w, http.StatusBadRequest, tooLarge)
		return
	}

	// The declared type and the sniffed content must both be images.
	contentType := header.Header.Get("Content-Type")
	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		middleware.ServerError(w, r, "failed to read upload", err)
		return
	}
	if !strings.HasPrefix(contentType, "image/") || !strings.HasPrefix(http.DetectContentType(sniff[:n]), "image/") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Veuillez fournir une image")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		middleware.ServerError(w, r, "failed to rewind upload", err)
		return
	}

	key, err := blobstore.ObjectKey(uploadPrefix, header.Filename, h.now())
	if err != nil {
		middleware.ServerError(w, r, "failed to generate object key", err)
		return
	}

	url, err := h.store.Put(r.Context(), key, file, header.Size, contentType)
	if err != nil {
		middleware.ServerError(w, r, "failed to store upload", err, "key", key)
		return
	}

	slog.Info("file uploaded", "key", key, "size", humanize.Bytes(uint64(header.Size)))

	middleware.JSONResponse(w, http.StatusOK, models.UploadResponse{Success: true, URL: url})
}
