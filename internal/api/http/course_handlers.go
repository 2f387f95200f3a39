package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/course"
)

func courseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, course.ErrNotFound), errors.Is(err, course.ErrChapterNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "db error", http.StatusInternalServerError)
	}
}

func CreateCourseHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Title string `json:"title"`
			Price int64  `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			strings.TrimSpace(req.Title) == "" || req.Price < 0 {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c, err := store.Create(r.Context(), sub, strings.TrimSpace(req.Title), req.Price)
		if err != nil {
			courseError(w, err)
			return
		}
		writeJSON(w, c)
	}
}

func GetCourseHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := store.GetCourse(chi.URLParam(r, "courseID"))
		if err != nil {
			courseError(w, err)
			return
		}
		// quiz answers and options stay server-side on this surface
		for i := range c.Chapters {
			c.Chapters[i].Quiz = nil
		}
		writeJSON(w, c)
	}
}

func AddChapterHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		if !ownsCourse(store, sub, courseID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Title string                `json:"title"`
			Quiz  []course.QuizQuestion `json:"quiz,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ch, err := store.AddChapter(r.Context(), courseID, strings.TrimSpace(req.Title), req.Quiz)
		if err != nil {
			courseError(w, err)
			return
		}
		writeJSON(w, ch)
	}
}

func PublishCourseHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		if !ownsCourse(store, sub, courseID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Published bool `json:"published"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := store.SetPublished(r.Context(), courseID, req.Published); err != nil {
			courseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SetExamConfigHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		if !ownsCourse(store, sub, courseID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var cfg course.ExamConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cfg.CourseID = courseID
		if cfg.MaxAttempts < 1 {
			cfg.MaxAttempts = 1
		}
		if cfg.PassingScore < 0 || cfg.PassingScore > 100 {
			http.Error(w, "passing_score must be 0-100", http.StatusBadRequest)
			return
		}
		if err := store.SetExamConfig(r.Context(), cfg); err != nil {
			courseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteCourseHandler cascades: chapters, quiz results, exam data, keys,
// tokens, enrollments and certificates all go with the course.
func DeleteCourseHandler(store *course.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		if !ownsCourse(store, sub, courseID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := store.Delete(r.Context(), courseID); err != nil {
			courseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ownsCourse(store *course.SQLStore, userID, courseID string) bool {
	c, err := store.GetCourse(courseID)
	return err == nil && c.OwnerID == userID
}
