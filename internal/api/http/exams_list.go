package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/exam"
)

// GET /exams?bank_id=&limit=&offset=
func ListExamsHandler(store exam.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := store.ListExams(r.Context(), exam.ListOpts{
			BankID: strings.TrimSpace(q.Get("bank_id")),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			fail(w, r, log, err)
			return
		}
		if list == nil {
			list = []exam.Summary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
