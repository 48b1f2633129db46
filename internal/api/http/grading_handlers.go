package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/exam"
	"github.com/mind-engage/mindengage-quizgen/internal/grading"
)

type gradeReq struct {
	Responses []grading.Response `json:"responses"`
}

// POST /exams/{examID}/grade
func GradeHandler(store exam.Store, g *grading.Grader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := strings.TrimSpace(chi.URLParam(r, "examID"))
		var req gradeReq
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		e, err := store.GetExamAdmin(r.Context(), examID)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		rep, err := g.GradeExam(r.Context(), e.Items, req.Responses)
		if err != nil {
			fail(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
