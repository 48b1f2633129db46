// Package bank reads question banks from disk and keeps them in a store.
package bank

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/qti"
	"github.com/mind-engage/mindengage-quizgen/internal/qti/parser"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

var ErrNoQuestions = errors.New("no question files found")

// collectionKeys are the object keys a bank may wrap its list in, in the
// order they are tried.
var collectionKeys = []string{"questions", "questoes", "lista", "itens"}

// LoadError reports one question that could not be read. The rest of the
// file still loads.
type LoadError struct {
	Source string
	Index  int
	Err    error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: question #%d: %v", e.Source, e.Index+1, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// Bank is the merged content of one or more files.
type Bank struct {
	Meta      map[string]json.RawMessage
	Questions []*question.Question
	Errors    []LoadError
}

func (b *Bank) merge(o Bank) {
	if len(o.Meta) > 0 && b.Meta == nil {
		b.Meta = map[string]json.RawMessage{}
	}
	for k, v := range o.Meta {
		b.Meta[k] = v
	}
	b.Questions = append(b.Questions, o.Questions...)
	b.Errors = append(b.Errors, o.Errors...)
}

// Parse reads one bank document: a JSON array of questions, or an object
// holding the array under one of the collection keys plus an optional "meta".
func Parse(source string, data []byte) (Bank, error) {
	var top json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Bank{}, fmt.Errorf("%s: invalid JSON: %w", source, err)
	}

	var (
		list json.RawMessage
		b    Bank
	)
	switch {
	case isArray(top):
		list = top
	case isObject(top):
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(top, &obj); err != nil {
			return Bank{}, fmt.Errorf("%s: %w", source, err)
		}
		for _, k := range collectionKeys {
			if v, ok := obj[k]; ok && isArray(v) {
				list = v
				break
			}
		}
		if m, ok := obj["meta"]; ok && isObject(m) {
			if err := json.Unmarshal(m, &b.Meta); err != nil {
				return Bank{}, fmt.Errorf("%s: meta: %w", source, err)
			}
		}
	default:
		return Bank{}, fmt.Errorf("%s: expected a list of questions or an object", source)
	}
	if list == nil {
		return b, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return Bank{}, fmt.Errorf("%s: %w", source, err)
	}
	for i, raw := range items {
		if !isObject(raw) {
			// non-object entries are ignored, as the editor writes them
			continue
		}
		q, err := parseQuestion(raw)
		if err != nil {
			b.Errors = append(b.Errors, LoadError{Source: source, Index: i, Err: err})
			continue
		}
		b.Questions = append(b.Questions, q)
	}
	return b, nil
}

func parseQuestion(raw json.RawMessage) (*question.Question, error) {
	canon, err := canonicalize(raw)
	if err != nil {
		return nil, err
	}
	var q question.Question
	if err := json.Unmarshal(canon, &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Load reads a .json file, a .zip (QTI package or .json members) or a
// directory of .json files (sorted by name).
func Load(path string) (Bank, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Bank{}, err
	}
	if fi.IsDir() {
		return loadDir(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return loadZip(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Bank{}, err
	}
	return Parse(path, data)
}

// LoadAll loads every path in order and merges the results. Later meta keys
// win.
func LoadAll(paths ...string) (Bank, error) {
	var out Bank
	for _, p := range paths {
		b, err := Load(p)
		if err != nil {
			return Bank{}, err
		}
		out.merge(b)
	}
	return out, nil
}

func loadDir(dir string) (Bank, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return Bank{}, err
	}
	if len(files) == 0 {
		return Bank{}, fmt.Errorf("%s: %w", dir, ErrNoQuestions)
	}
	sort.Strings(files)
	var out Bank
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return Bank{}, err
		}
		b, err := Parse(f, data)
		if err != nil {
			return Bank{}, err
		}
		out.merge(b)
	}
	return out, nil
}

func loadZip(path string) (Bank, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Bank{}, fmt.Errorf("%s: invalid zip: %w", path, err)
	}
	defer zr.Close()
	return readZip(path, &zr.Reader)
}

// ParseArchive reads a zip held in memory: either a QTI content package or a
// plain archive of .json banks.
func ParseArchive(source string, data []byte) (Bank, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Bank{}, fmt.Errorf("%s: invalid zip: %w", source, err)
	}
	return readZip(source, zr)
}

func readZip(source string, zr *zip.Reader) (Bank, error) {
	if parser.IsPackage(zr) {
		return readQTI(source, zr)
	}
	var out Bank
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Bank{}, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Bank{}, err
		}
		b, err := Parse(source+"!"+f.Name, data)
		if err != nil {
			return Bank{}, err
		}
		out.merge(b)
	}
	return out, nil
}

func readQTI(source string, zr *zip.Reader) (Bank, error) {
	qs, itemErrs, err := qti.Import(zr)
	if err != nil {
		return Bank{}, fmt.Errorf("%s: %w", source, err)
	}
	b := Bank{Questions: qs}
	for i, e := range itemErrs {
		b.Errors = append(b.Errors, LoadError{Source: source + "!" + e.Item, Index: i, Err: e.Err})
	}
	return b, nil
}
