package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/edumint/edumint/internal/api/http"
	authmw "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/course"
	"github.com/edumint/edumint/internal/db"
	"github.com/edumint/edumint/internal/ledger"
)

// asUser injects the authenticated subject the way JWTMiddleware would.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authmw.WithSubject(r.Context(), userID)))
		})
	}
}

func newTestRouter(t *testing.T, userID string) (chi.Router, *course.SQLStore, *ledger.AccessLedger) {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:apitest_"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { dbh.Close() })

	courses := course.NewSQLStore(dbh)
	store := ledger.NewSQLStore(dbh)
	signer := ledger.NewTokenSigner("test-secret")
	access := ledger.NewAccessLedger(store, courses, signer, time.Hour, time.Now)
	assess := ledger.NewAssessmentLedger(store, courses, time.Now)
	eval := ledger.NewCompletionEvaluator(store, courses)
	issuer := ledger.NewCertificateIssuer(store, eval, time.Now)

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Post("/courses/{courseID}/enroll", api.EnrollHandler(access))
	r.Post("/courses/{courseID}/redeem-key", api.RedeemKeyHandler(access))
	r.Post("/quizzes/submit", api.SubmitQuizHandler(assess))
	r.Get("/courses/{courseID}/eligibility", api.CheckEligibilityHandler(eval))
	r.Get("/courses/{courseID}/certificate", api.GetCertificateHandler(issuer))
	return r, courses, access
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEnrollEndpoint_DomainErrorMapping(t *testing.T) {
	r, courses, _ := newTestRouter(t, "u1")
	c, err := courses.Create(context.Background(), "org-1", "Course", 0)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	if w := do(t, r, "POST", "/courses/"+c.ID+"/enroll", "{}"); w.Code != 200 {
		t.Fatalf("first enroll: %d %s", w.Code, w.Body.String())
	}

	w := do(t, r, "POST", "/courses/"+c.ID+"/enroll", "{}")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error != "already_enrolled" {
		t.Fatalf("expected already_enrolled body, got %s", w.Body.String())
	}

	if w := do(t, r, "POST", "/courses/unknown/enroll", "{}"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown course, got %d", w.Code)
	}
}

func TestRedeemKeyEndpoint(t *testing.T) {
	r, courses, access := newTestRouter(t, "u1")
	ctx := context.Background()
	c, err := courses.Create(ctx, "org-1", "Paid", 10)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	keys, err := access.IssueKeys(ctx, "org-1", c.ID, 1)
	if err != nil {
		t.Fatalf("issue keys: %v", err)
	}

	w := do(t, r, "POST", "/courses/"+c.ID+"/redeem-key", `{"key":"`+keys[0].Code+`"}`)
	if w.Code != 200 {
		t.Fatalf("redeem: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, "POST", "/courses/"+c.ID+"/redeem-key", `{"key":"EDU-AAAA-BBBB"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown key, got %d", w.Code)
	}
}

func TestCertificateEndpoint_EligibilityGate(t *testing.T) {
	r, courses, _ := newTestRouter(t, "u1")
	ctx := context.Background()
	c, err := courses.Create(ctx, "org-1", "Course", 0)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if _, err := courses.AddChapter(ctx, c.ID, "Ch 1", []course.QuizQuestion{
		{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 0},
	}); err != nil {
		t.Fatalf("add chapter: %v", err)
	}

	if w := do(t, r, "GET", "/courses/"+c.ID+"/certificate", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 not eligible, got %d %s", w.Code, w.Body.String())
	}

	w := do(t, r, "GET", "/courses/"+c.ID+"/eligibility", "")
	if w.Code != 200 {
		t.Fatalf("eligibility: %d", w.Code)
	}
	var elig ledger.Eligibility
	if err := json.Unmarshal(w.Body.Bytes(), &elig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if elig.Eligible || elig.Total != 1 || elig.Completed != 0 {
		t.Fatalf("unexpected eligibility: %+v", elig)
	}
}
