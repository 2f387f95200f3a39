package ledger

import (
	"context"
	"errors"

	"github.com/edumint/edumint/internal/course"
)

// CompletionEvaluator derives course completion and certificate eligibility
// from stored state. Pure reads, callable any number of times.
type CompletionEvaluator struct {
	store   Store
	courses course.Reader
}

func NewCompletionEvaluator(store Store, courses course.Reader) *CompletionEvaluator {
	return &CompletionEvaluator{store: store, courses: courses}
}

func (e *CompletionEvaluator) CheckEligibility(ctx context.Context, userID, courseID string) (Eligibility, error) {
	c, err := e.courses.GetCourse(courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Eligibility{}, ErrCourseNotFound
		}
		return Eligibility{}, err
	}

	completed, err := e.store.CountCompletedChapters(ctx, userID, courseID)
	if err != nil {
		return Eligibility{}, err
	}
	total := len(c.Chapters)
	// Vacuously true for a zero-chapter course.
	quizEligible := completed >= total

	cfg, hasCfg, err := e.courses.GetExamConfig(courseID)
	if err != nil {
		return Eligibility{}, err
	}
	examRequired := hasCfg && cfg.Enabled

	examPassed := false
	if examRequired {
		results, err := e.store.ListExamResults(ctx, userID, courseID)
		if err != nil {
			return Eligibility{}, err
		}
		for _, r := range results {
			if r.Passed {
				examPassed = true
				break
			}
		}
	}

	return Eligibility{
		Eligible:     quizEligible && (!examRequired || examPassed),
		Completed:    completed,
		Total:        total,
		ExamRequired: examRequired,
		ExamPassed:   examPassed,
	}, nil
}
