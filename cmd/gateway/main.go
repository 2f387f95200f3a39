package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/edumint/edumint/internal/api/http"
	auth "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/config"
	"github.com/edumint/edumint/internal/course"
	"github.com/edumint/edumint/internal/db"
	"github.com/edumint/edumint/internal/ledger"
	"github.com/edumint/edumint/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Ledger services ---
	courses := course.NewSQLStore(dbh)
	store := ledger.NewSQLStore(dbh)
	signer := ledger.NewTokenSigner(cfg.TokenSecret)
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour

	access := ledger.NewAccessLedger(store, courses, signer, ttl, time.Now)
	assess := ledger.NewAssessmentLedger(store, courses, time.Now)
	eval := ledger.NewCompletionEvaluator(store, courses)
	issuer := ledger.NewCertificateIssuer(store, eval, time.Now)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	r.Post("/auth/register", auth.RegisterHandler(authSvc, dbh))

	// Public certificate verification
	r.Get("/certificates/{certID}/verify", api.VerifyCertificateHandler(issuer))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh))

		// Org: course authoring
		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(courses))
		pr.With(rbac.RequireAny("course:view", "enroll:create")).
			Get("/courses/{courseID}", api.GetCourseHandler(courses))
		pr.With(rbac.Require("chapter:create")).
			Post("/courses/{courseID}/chapters", api.AddChapterHandler(courses))
		pr.With(rbac.Require("course:delete_own")).
			Delete("/courses/{courseID}", api.DeleteCourseHandler(courses))
		pr.With(rbac.Require("course:create")).
			Post("/courses/{courseID}/publish", api.PublishCourseHandler(courses))
		pr.With(rbac.Require("examconfig:set")).
			Put("/courses/{courseID}/exam-config", api.SetExamConfigHandler(courses))

		// Org: paid-access provisioning
		pr.With(rbac.Require("keys:issue")).
			Post("/courses/{courseID}/access-keys", api.IssueKeysHandler(access))
		pr.With(rbac.Require("tokens:issue")).
			Post("/courses/{courseID}/tokens", api.IssueTokensHandler(access))

		// Student: enrollment
		pr.With(rbac.Require("enroll:create")).
			Post("/courses/{courseID}/enroll", api.EnrollHandler(access))
		pr.With(rbac.Require("key:redeem")).
			Post("/courses/{courseID}/redeem-key", api.RedeemKeyHandler(access))
		pr.With(rbac.Require("token:activate")).
			Post("/tokens/activate", api.ActivateTokenHandler(access))

		// Student: assessment
		pr.With(rbac.Require("quiz:submit")).
			Post("/quizzes/submit", api.SubmitQuizHandler(assess))
		pr.With(rbac.Require("quiz:view-own")).
			Get("/quizzes/{chapterID}/result", api.GetQuizResultHandler(assess))
		pr.With(rbac.Require("exam:submit")).
			Post("/courses/{courseID}/exam/submit", api.SubmitExamHandler(assess))
		pr.With(rbac.Require("exam:view-own")).
			Get("/courses/{courseID}/exam/results", api.ListExamResultsHandler(assess))

		// Student: completion & certificate
		pr.With(rbac.Require("eligibility:view")).
			Get("/courses/{courseID}/eligibility", api.CheckEligibilityHandler(eval))
		pr.With(rbac.Require("certificate:get")).
			Get("/courses/{courseID}/certificate", api.GetCertificateHandler(issuer))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
