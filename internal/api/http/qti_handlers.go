package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/exam"
	"github.com/mind-engage/mindengage-quizgen/internal/qti/export"
	"github.com/mind-engage/mindengage-quizgen/internal/render/latex"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

type exportFormat struct {
	file        string
	contentType string
}

var exportFormats = map[string]exportFormat{
	"json":   {"exam.json", "application/json"},
	"latex":  {"exam.tex", "application/x-tex"},
	"beamer": {"slides.tex", "application/x-tex"},
	"qti":    {"exam-qti.zip", "application/zip"},
}

// GET /exams/{examID}/export?format=json|latex|beamer|qti&key=true
//
// The artifact is stored in the blob store under exams/<id>/ and streamed
// back. X-Export-Key names the stored blob.
func ExportHandler(store exam.Store, bs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		name := strings.ToLower(r.URL.Query().Get("format"))
		if name == "" {
			name = "qti"
		}
		format, ok := exportFormats[name]
		if !ok {
			badRequest(w, "unknown format: "+name)
			return
		}
		withKey := parseBool(r.URL.Query().Get("key"))
		if withKey && name == "latex" {
			format.file = "exam-key.tex"
		}

		// exports always carry the answers; the route requires exam:export
		e, err := store.GetExamAdmin(r.Context(), id)
		if err != nil {
			fail(w, r, log, err)
			return
		}

		var buf bytes.Buffer
		switch name {
		case "json":
			err = json.NewEncoder(&buf).Encode(e)
		case "latex":
			err = latex.WriteExam(&buf, e.Items, latex.Options{Title: e.Title, AnswerKey: withKey})
		case "beamer":
			err = latex.WriteBeamer(&buf, e.Items, latex.Options{Title: e.Title})
		case "qti":
			var pkg []byte
			pkg, err = export.BuildPackage(e.Title, e.Items, blobMedia(r, bs, e.BankID))
			buf.Write(pkg)
		}
		if err != nil {
			fail(w, r, log, fmt.Errorf("export %s: %w", name, err))
			return
		}

		key, err := bs.Put(r.Context(), storage.ExportKey(e.ID, format.file), bytes.NewReader(buf.Bytes()), format.contentType)
		if err != nil {
			fail(w, r, log, fmt.Errorf("store export: %w", err))
			return
		}
		log.Info("exam exported", zap.String("exam_id", e.ID), zap.String("format", name), zap.String("key", key))

		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+format.file+`"`)
		w.Header().Set("X-Export-Key", key)
		http.ServeContent(w, r, format.file, time.Unix(e.CreatedAt, 0), bytes.NewReader(buf.Bytes()))
	}
}

// blobMedia resolves question images against the bank's uploaded assets.
func blobMedia(r *http.Request, bs storage.BlobStore, bankID string) export.MediaFetcher {
	return func(p string) (io.ReadCloser, error) {
		if strings.Contains(p, "..") || path.IsAbs(p) {
			return nil, fs.ErrNotExist
		}
		rc, err := bs.Get(r.Context(), storage.AssetKey(bankID, p))
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, fs.ErrNotExist
		}
		return rc, err
	}
}
