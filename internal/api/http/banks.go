package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/alternatives"
	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/expr"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/resolve"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

// GET /banks
func ListBanksHandler(banks bank.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := banks.ListBanks(r.Context())
		if err != nil {
			fail(w, r, log, err)
			return
		}
		if infos == nil {
			infos = []bank.Info{}
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

type putQuestionsResponse struct {
	BankID string   `json:"bank_id"`
	Stored int      `json:"stored"`
	Errors []string `json:"errors,omitempty"`
}

// POST /banks/{bankID}/questions
//
// The body is a bank document (JSON) or, with Content-Type application/zip,
// a QTI package or an archive of JSON banks. Questions that fail to parse are
// reported; the rest are stored.
func PutQuestionsHandler(banks bank.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bankID := strings.TrimSpace(chi.URLParam(r, "bankID"))
		if bankID == "" {
			badRequest(w, "bankID required")
			return
		}
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			badRequest(w, "read body: "+err.Error())
			return
		}

		source := "bank " + bankID
		var b bank.Bank
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/zip") {
			b, err = bank.ParseArchive(source, data)
		} else {
			b, err = bank.Parse(source, data)
		}
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		resp := putQuestionsResponse{BankID: bankID, Stored: len(b.Questions)}
		for _, e := range b.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		if len(b.Questions) == 0 {
			if len(resp.Errors) == 0 {
				badRequest(w, bank.ErrNoQuestions.Error())
				return
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		if err := banks.PutQuestions(r.Context(), bankID, b.Questions); err != nil {
			fail(w, r, log, err)
			return
		}
		log.Info("questions stored",
			zap.String("bank", bankID),
			zap.Int("stored", resp.Stored),
			zap.Int("rejected", len(resp.Errors)))
		writeJSON(w, http.StatusOK, resp)
	}
}

// GET /banks/{bankID}/questions
func ListQuestionsHandler(banks bank.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := banks.ListQuestions(r.Context(), chi.URLParam(r, "bankID"))
		if err != nil {
			fail(w, r, log, err)
			return
		}
		if qs == nil {
			qs = []*question.Question{}
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// GET /banks/{bankID}/questions/{id}
func GetQuestionHandler(banks bank.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "id")
		if !ok {
			badRequest(w, "invalid question id")
			return
		}
		q, err := banks.GetQuestion(r.Context(), chi.URLParam(r, "bankID"), id)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

type previewResponse struct {
	Question *question.Question `json:"question"`
	Env      expr.Env           `json:"env"`
}

// POST /banks/{bankID}/questions/{id}/preview?seed=&shuffle=
//
// Resolves one question without storing anything. Resolution errors are
// returned as 422.
func PreviewHandler(banks bank.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "id")
		if !ok {
			badRequest(w, "invalid question id")
			return
		}
		q, err := banks.GetQuestion(r.Context(), chi.URLParam(r, "bankID"), id)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		seed := rng.ParseSeed(r.URL.Query().Get("seed"))
		resolved, env, err := resolve.All(q, seed)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		opts := alternatives.DefaultOptions()
		opts.Shuffle = parseBool(r.URL.Query().Get("shuffle"))
		alternatives.Apply(resolved, seed, opts)
		if env == nil {
			env = expr.Env{}
		}
		writeJSON(w, http.StatusOK, previewResponse{Question: resolved, Env: env})
	}
}
