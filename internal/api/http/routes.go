package http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/exam"
	"github.com/mind-engage/mindengage-quizgen/internal/grading"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

// Deps are the services behind the API.
type Deps struct {
	Banks     bank.Store
	Exams     exam.Store
	Generator *exam.Generator
	Blobs     storage.BlobStore
	Grader    *grading.Grader
	Log       *zap.Logger
}

// Mount registers the protected API on r. The caller installs authentication
// so that a role is in the request context.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r.With(rbac.Require(rbac.PermBankRead)).
		Get("/banks", ListBanksHandler(d.Banks, log))
	r.Route("/banks/{bankID}", func(br chi.Router) {
		br.With(rbac.Require(rbac.PermBankWrite)).
			Post("/questions", PutQuestionsHandler(d.Banks, log))
		br.With(rbac.Require(rbac.PermBankRead)).
			Get("/questions", ListQuestionsHandler(d.Banks, log))
		br.With(rbac.Require(rbac.PermBankRead)).
			Get("/questions/{id}", GetQuestionHandler(d.Banks, log))
		br.With(rbac.Require(rbac.PermBankRead)).
			Post("/questions/{id}/preview", PreviewHandler(d.Banks, log))
		br.With(rbac.Require(rbac.PermBankWrite)).
			Post("/assets", UploadAssetHandler(d.Blobs, log))
	})

	r.With(rbac.RequireAny(rbac.PermBankRead, rbac.PermExamView)).
		Get("/assets/*", GetAssetHandler(d.Blobs, log))

	r.With(rbac.Require(rbac.PermExamCreate)).
		Post("/exams", CreateExamHandler(d.Generator, log))
	r.With(rbac.Require(rbac.PermExamView)).
		Get("/exams", ListExamsHandler(d.Exams, log))
	r.Route("/exams/{examID}", func(er chi.Router) {
		er.With(rbac.Require(rbac.PermExamView)).
			Get("/", GetExamHandler(d.Exams, log))
		er.With(rbac.Require(rbac.PermExamExport)).
			Get("/export", ExportHandler(d.Exams, d.Blobs, log))
		er.With(rbac.Require(rbac.PermExamGrade)).
			Post("/grade", GradeHandler(d.Exams, d.Grader, log))
	})
}
