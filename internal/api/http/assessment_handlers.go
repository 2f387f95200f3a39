package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/ledger"
)

func SubmitQuizHandler(assess *ledger.AssessmentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req ledger.QuizSubmission
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChapterID == "" {
			http.Error(w, "chapter_id required", http.StatusBadRequest)
			return
		}
		res, err := assess.SubmitQuiz(r.Context(), sub, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func GetQuizResultHandler(assess *ledger.AssessmentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		chapterID := chi.URLParam(r, "chapterID")
		res, err := assess.GetQuizResult(r.Context(), sub, chapterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func SubmitExamHandler(assess *ledger.AssessmentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		var req ledger.ExamSubmission
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := assess.SubmitExam(r.Context(), sub, courseID, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func ListExamResultsHandler(assess *ledger.AssessmentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		out, err := assess.ListExamResults(r.Context(), sub, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, out)
	}
}
