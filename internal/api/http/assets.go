package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

// POST /banks/{bankID}/assets (multipart: file, optional path)
//
// Stores an image under the path the questions reference it by.
func UploadAssetHandler(bs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bankID := chi.URLParam(r, "bankID")
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "file required")
			return
		}
		defer f.Close()

		rel := strings.TrimSpace(r.FormValue("path"))
		if rel == "" {
			rel = hdr.Filename
		}
		ct := mime.TypeByExtension(path.Ext(rel))
		key, err := bs.Put(r.Context(), storage.AssetKey(bankID, rel), f, ct)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	}
}

// GET /assets/*   returns the blob at whatever follows /assets/
func GetAssetHandler(bs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}
