package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/config"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// BlobStore holds rendered exam artifacts under keys like
// "exams/<id>/exam.tex" and bank images under "banks/<id>/...".
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string) (string, error) // fs returns "file://..." for dev
}

// ExportKey builds the key of an exported exam file.
func ExportKey(examID, file string) string {
	return path.Join("exams", examID, file)
}

// AssetKey builds the key of a bank image, rel being the path the questions
// use to reference it.
func AssetKey(bankID, rel string) string {
	return path.Join("banks", bankID, rel)
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.BlobConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSStore(cfg.BasePath)
	case "minio":
		return NewMinioStore(ctx, cfg)
	default:
		return nil, errors.New("unsupported blob driver: " + cfg.Driver)
	}
}
