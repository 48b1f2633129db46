package http

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/exam"
	"github.com/mind-engage/mindengage-quizgen/internal/grading"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

const bankDoc = `{"meta":{"disciplina":"fisica"},"questions":[
  {"id":3,"enunciado":"Valor <TEMP>","variaveis":{"X":"1:1:1","Y":"2:1:2"},
   "resolucoes":{"TEMP":"X + Y"},"alternativas":["4","6"],"correta":"<TEMP>","obs":"TEMP = X + Y"},
  {"id":7,"enunciado":"<Z>","alternativas":["a"],"correta":"a"},
  {"id":8,"enunciado":"Capital?","imagens":["fig/mapa.png"],"alternativas":["Lima","Quito"],"correta":"Quito"}
]}`

type testServer struct {
	h     http.Handler
	exams exam.Store
	blobs storage.BlobStore
}

// roleFromHeader stands in for the JWT middleware.
func roleFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := rbac.WithRole(r.Context(), r.Header.Get("X-Role"))
		ctx = auth.WithSubject(ctx, r.Header.Get("X-Role")+"-user")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	banks := bank.NewMemoryStore()
	exams := exam.NewInMemoryStore()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(roleFromHeader)
	Mount(r, Deps{
		Banks: banks,
		Exams: exams,
		Generator: &exam.Generator{
			Banks:    banks,
			Exams:    exams,
			Preparer: pipeline.New(),
			Defaults: pipeline.DefaultOptions(),
		},
		Blobs:  blobs,
		Grader: grading.NewGrader(),
	})
	return &testServer{h: r, exams: exams, blobs: blobs}
}

func (s *testServer) do(t *testing.T, role, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("X-Role", role)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) seedBank(t *testing.T) {
	t.Helper()
	rr := s.do(t, "editor", http.MethodPost, "/banks/fisica/questions", strings.NewReader(bankDoc), "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func (s *testServer) createExam(t *testing.T, body string) createExamResponse {
	t.Helper()
	rr := s.do(t, "teacher", http.MethodPost, "/exams", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp createExamResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestBanks_PutListGet(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "editor", http.MethodPost, "/banks/fisica/questions", strings.NewReader(bankDoc), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var put putQuestionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &put))
	assert.Equal(t, 3, put.Stored)

	rr = s.do(t, "teacher", http.MethodGet, "/banks/fisica/questions", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.EqualValues(t, 3, list[0]["id"])

	rr = s.do(t, "teacher", http.MethodGet, "/banks/fisica/questions/8", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Capital?"`)

	rr = s.do(t, "teacher", http.MethodGet, "/banks/fisica/questions/99", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "teacher", http.MethodGet, "/banks/fisica/questions/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "teacher", http.MethodGet, "/banks", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":"fisica","questions":3}]`, rr.Body.String())
}

func TestBanks_PutRejects(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "teacher", http.MethodPost, "/banks/fisica/questions", strings.NewReader(bankDoc), "application/json")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, "editor", http.MethodPost, "/banks/fisica/questions", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "editor", http.MethodPost, "/banks/fisica/questions", strings.NewReader(`[{"id":-1}]`), "application/json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var put putQuestionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &put))
	assert.Zero(t, put.Stored)
	assert.Len(t, put.Errors, 1)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	s.seedBank(t)

	rr := s.do(t, "teacher", http.MethodPost, "/banks/fisica/questions/3/preview?seed=42", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Question struct {
			Statement    string   `json:"enunciado"`
			Alternatives []string `json:"alternativas"`
			CorrectIndex *int     `json:"correct_index"`
		} `json:"question"`
		Env map[string]float64 `json:"env"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Valor 3", resp.Question.Statement)
	assert.Equal(t, []string{"4", "6", "3"}, resp.Question.Alternatives)
	require.NotNil(t, resp.Question.CorrectIndex)
	assert.Equal(t, 2, *resp.Question.CorrectIndex)
	assert.Equal(t, map[string]float64{"X": 1, "Y": 2, "TEMP": 3}, resp.Env)

	rr = s.do(t, "teacher", http.MethodPost, "/banks/fisica/questions/7/preview", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = s.do(t, "student", http.MethodPost, "/banks/fisica/questions/3/preview", nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExams_CreateAndView(t *testing.T) {
	s := newTestServer(t)
	s.seedBank(t)

	created := s.createExam(t, `{"title":"P1","bank_id":"fisica","seed":42}`)
	assert.Equal(t, 2, created.Items)
	assert.Equal(t, "42", created.Seed)
	require.Len(t, created.Failures, 1)
	assert.Equal(t, int64(7), created.Failures[0].QuestionID)

	rr := s.do(t, "teacher", http.MethodGet, "/exams/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var full exam.Exam
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &full))
	require.NotNil(t, full.Items[0].Question.CorrectIndex)
	assert.Equal(t, "3", full.Items[0].Question.Correct)
	assert.Equal(t, "teacher-user", full.CreatedBy)

	rr = s.do(t, "student", http.MethodGet, "/exams/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "correct_index")
	var safe exam.Exam
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &safe))
	for _, it := range safe.Items {
		assert.Empty(t, it.Question.Correct)
		assert.Nil(t, it.Question.CorrectIndex)
	}
	assert.Empty(t, safe.Failures)

	rr = s.do(t, "student", http.MethodGet, "/exams", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []exam.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].Title)
	assert.Equal(t, "teacher-user", list[0].CreatedBy)

	rr = s.do(t, "teacher", http.MethodGet, "/exams/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "teacher", http.MethodPost, "/exams", strings.NewReader(`{"bank_id":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "student", http.MethodPost, "/exams", strings.NewReader(`{"bank_id":"fisica"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	s.seedBank(t)

	// the bank image is uploaded so the QTI package can embed it
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "mapa.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("PNGDATA"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("path", "fig/mapa.png"))
	require.NoError(t, mw.Close())
	rr := s.do(t, "editor", http.MethodPost, "/banks/fisica/assets", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := s.createExam(t, `{"bank_id":"fisica","seed":"42"}`)

	for format, want := range map[string]string{
		"latex":  `\item[a)] 4`,
		"beamer": `\alert{3}`,
		"json":   `"correct_index":2`,
	} {
		rr := s.do(t, "teacher", http.MethodGet, "/exams/"+created.ID+"/export?format="+format, nil, "")
		require.Equal(t, http.StatusOK, rr.Code, format)
		assert.Contains(t, rr.Body.String(), want, format)
		assert.True(t, strings.HasPrefix(rr.Header().Get("X-Export-Key"), "exams/"+created.ID+"/"), format)
	}

	rr = s.do(t, "teacher", http.MethodGet, "/exams/"+created.ID+"/export?format=qti", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["imsmanifest.xml"])
	assert.True(t, names["q3.xml"])
	assert.True(t, names["media/1-mapa.png"])

	stored, err := s.blobs.Get(t.Context(), storage.ExportKey(created.ID, "exam-qti.zip"))
	require.NoError(t, err)
	stored.Close()

	rr = s.do(t, "teacher", http.MethodGet, "/exams/"+created.ID+"/export?format=docx", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "student", http.MethodGet, "/exams/"+created.ID+"/export?format=json", nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, "student", http.MethodGet, "/assets/banks/fisica/fig/mapa.png", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PNGDATA", rr.Body.String())
}

func TestGrade(t *testing.T) {
	s := newTestServer(t)
	s.seedBank(t)
	created := s.createExam(t, `{"bank_id":"fisica","seed":42}`)

	rr := s.do(t, "teacher", http.MethodPost, "/exams/"+created.ID+"/grade",
		strings.NewReader(`{"responses":[{"question_id":3,"choice":2},{"question_id":8,"value":"quito"}]}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rep grading.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, 2.0, rep.AutoPoints)
	assert.Equal(t, 2.0, rep.MaxPoints)

	rr = s.do(t, "teacher", http.MethodPost, "/exams/"+created.ID+"/grade",
		strings.NewReader(`{"responses":[{"question_id":99,"choice":0}]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "student", http.MethodPost, "/exams/"+created.ID+"/grade", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(exam.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(exam.ErrInvalidRequest))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
