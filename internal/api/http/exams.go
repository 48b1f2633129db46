package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/exam"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
)

type createExamResponse struct {
	ID       string             `json:"id"`
	Items    int                `json:"items"`
	Seed     string             `json:"seed,omitempty"`
	Failures []pipeline.Failure `json:"failures"`
}

// POST /exams
func CreateExamHandler(gen *exam.Generator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exam.GenerateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		req.CreatedBy = auth.SubjectFromContext(r.Context())
		e, err := gen.Generate(r.Context(), req)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		failures := e.Failures
		if failures == nil {
			failures = []pipeline.Failure{}
		}
		writeJSON(w, http.StatusCreated, createExamResponse{
			ID:       e.ID,
			Items:    len(e.Items),
			Seed:     e.Seed,
			Failures: failures,
		})
	}
}

// GET /exams/{examID}
//
// Callers without exam:view_key get the student view.
func GetExamHandler(store exam.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		var (
			e   exam.Exam
			err error
		)
		if rbac.Can(r.Context(), rbac.PermExamViewKey) {
			e, err = store.GetExamAdmin(r.Context(), id)
		} else {
			e, err = store.GetExam(r.Context(), id)
		}
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
