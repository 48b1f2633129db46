// Command quizgen renders question banks into exams without a server.
//
//	quizgen -seed 42 -shuffle -format latex -out exam.tex bank.json more/ pack.zip
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/config"
	"github.com/mind-engage/mindengage-quizgen/internal/logging"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/qti/export"
	"github.com/mind-engage/mindengage-quizgen/internal/render/latex"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

type cliOptions struct {
	seed      string
	shuffle   bool
	noResolve bool
	limit     int
	workers   int
	onFailure string
	format    string
	key       bool
	title     string
	images    string
	out       string
	logLevel  string
}

func main() {
	var o cliOptions
	fs := flag.NewFlagSet("quizgen", flag.ExitOnError)
	fs.StringVar(&o.seed, "seed", "", "seed for reproducible output (blank: random)")
	fs.BoolVar(&o.shuffle, "shuffle", false, "shuffle questions and alternatives")
	fs.BoolVar(&o.noResolve, "no-resolve", false, "keep placeholders instead of sampling variables")
	fs.IntVar(&o.limit, "limit", 0, "keep at most N questions (0: all)")
	fs.IntVar(&o.workers, "workers", 4, "questions prepared in parallel")
	fs.StringVar(&o.onFailure, "on-failure", "skip", "skip|passthrough questions that fail to resolve")
	fs.StringVar(&o.format, "format", "latex", "latex|beamer|qti|json")
	fs.BoolVar(&o.key, "key", false, "append an answer key (latex)")
	fs.StringVar(&o.title, "title", "", "document title")
	fs.StringVar(&o.images, "images", "", "directory image paths are relative to (default: first input's directory)")
	fs.StringVar(&o.out, "out", "", "output file (default: stdout)")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug|info|warn|error")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: quizgen [flags] bank.json|dir|pack.zip ...\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	log, err := logging.New(config.LogConfig{Level: o.logLevel}, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(context.Background(), log, o, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "quizgen:", err)
		os.Exit(1)
	}
}

var errLoad = errors.New("bank has invalid questions")

func run(ctx context.Context, log *zap.Logger, o cliOptions, paths []string) error {
	b, err := bank.LoadAll(paths...)
	if err != nil {
		return err
	}
	if len(b.Errors) > 0 {
		for _, e := range b.Errors {
			log.Error("invalid question", zap.String("source", e.Source), zap.Int("index", e.Index), zap.Error(e.Err))
		}
		return fmt.Errorf("%w: %d rejected", errLoad, len(b.Errors))
	}
	if len(b.Questions) == 0 {
		return bank.ErrNoQuestions
	}

	opts := pipeline.DefaultOptions()
	opts.Seed = rng.ParseSeed(o.seed)
	opts.ShuffleQuestions = o.shuffle
	opts.ShuffleAlternatives = o.shuffle
	opts.ResolveVariables = !o.noResolve
	opts.Limit = o.limit
	opts.Workers = o.workers
	if opts.OnFailure, err = pipeline.ParseOnFailure(o.onFailure); err != nil {
		return err
	}

	res, err := pipeline.New(pipeline.WithLogger(log)).Prepare(ctx, b.Questions, opts)
	if err != nil {
		return err
	}
	log.Info("prepared", zap.Int("items", len(res.Items)), zap.Int("failures", len(res.Failures)))

	imageDir := o.images
	if imageDir == "" {
		imageDir = baseDir(paths[0])
	}
	title := o.title
	if title == "" {
		title = titleFromMeta(b.Meta)
	}

	var buf bytes.Buffer
	if err := render(&buf, o.format, title, imageDir, o.key, res); err != nil {
		return err
	}
	if o.out == "" {
		_, err = io.Copy(os.Stdout, &buf)
		return err
	}
	return os.WriteFile(o.out, buf.Bytes(), 0o644)
}

func render(w io.Writer, format, title, imageDir string, key bool, res pipeline.Result) error {
	lopts := latex.Options{
		Title:     title,
		AnswerKey: key,
		ImageDir:  filepath.ToSlash(imageDir),
		ImageExists: func(p string) bool {
			_, err := os.Stat(filepath.FromSlash(p))
			return err == nil
		},
	}
	switch strings.ToLower(format) {
	case "latex", "tex":
		return latex.WriteExam(w, res.Items, lopts)
	case "beamer":
		return latex.WriteBeamer(w, res.Items, lopts)
	case "qti":
		pkg, err := export.BuildPackage(title, res.Items, func(p string) (io.ReadCloser, error) {
			return os.Open(filepath.Join(imageDir, filepath.FromSlash(p)))
		})
		if err != nil {
			return err
		}
		_, err = w.Write(pkg)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func baseDir(p string) string {
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return p
	}
	return filepath.Dir(p)
}

func titleFromMeta(meta map[string]json.RawMessage) string {
	for _, k := range []string{"titulo", "title", "disciplina"} {
		var s string
		if raw, ok := meta[k]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}
