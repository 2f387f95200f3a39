package ledger

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/edumint/edumint/internal/course"
	"github.com/edumint/edumint/internal/grading"
)

// AssessmentLedger records one-attempt chapter quizzes and multi-attempt
// final exams.
type AssessmentLedger struct {
	store   Store
	courses course.Reader
	now     func() time.Time
}

func NewAssessmentLedger(store Store, courses course.Reader, now func() time.Time) *AssessmentLedger {
	if now == nil {
		now = time.Now
	}
	return &AssessmentLedger{store: store, courses: courses, now: now}
}

// SubmitQuiz grades a chapter quiz: exact string match of the submitted
// answer against the option at the question's correct index, one point each,
// no partial credit. One attempt per (user, chapter), ever.
func (l *AssessmentLedger) SubmitQuiz(ctx context.Context, userID string, sub QuizSubmission) (QuizResult, error) {
	if _, ok, err := l.store.GetQuizResult(ctx, userID, sub.ChapterID); err != nil {
		return QuizResult{}, err
	} else if ok {
		return QuizResult{}, ErrAlreadyAttempted
	}

	ch, err := l.courses.GetChapter(sub.ChapterID)
	if err != nil {
		if errors.Is(err, course.ErrChapterNotFound) {
			return QuizResult{}, ErrChapterNotFound
		}
		return QuizResult{}, err
	}
	if len(ch.Quiz) == 0 {
		return QuizResult{}, ErrQuizUnavailable
	}

	score := 0
	breakdown := make([]QuizAnswer, 0, len(ch.Quiz))
	for i, q := range ch.Quiz {
		userAns := sub.Answers[strconv.Itoa(i)]
		correct := false
		if userAns != "" && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) &&
			userAns == q.Options[q.CorrectAnswer] {
			score++
			correct = true
		}
		breakdown = append(breakdown, QuizAnswer{
			Question:       q.Question,
			SelectedAnswer: userAns,
			IsCorrect:      correct,
		})
	}

	r := QuizResult{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  ch.CourseID,
		ChapterID: ch.ID,
		Score:     score,
		Total:     len(ch.Quiz),
		Breakdown: breakdown,
		CreatedAt: l.now().Unix(),
	}
	// The unique index on (user_id, chapter_id) is the final arbiter under
	// a concurrent double submit.
	if err := l.store.InsertQuizResult(ctx, r); err != nil {
		return QuizResult{}, err
	}
	l.refreshProgress(ctx, userID, ch.CourseID)
	_ = l.store.AppendEvent(ctx, EventQuizSubmitted, r.ID, r)
	return r, nil
}

func (l *AssessmentLedger) GetQuizResult(ctx context.Context, userID, chapterID string) (QuizResult, error) {
	r, ok, err := l.store.GetQuizResult(ctx, userID, chapterID)
	if err != nil {
		return QuizResult{}, err
	}
	if !ok {
		return QuizResult{}, ErrResultNotFound
	}
	return r, nil
}

// SubmitExam grades one exam attempt and appends an immutable result row.
// Prior attempts are never edited.
func (l *AssessmentLedger) SubmitExam(ctx context.Context, userID, courseID string, sub ExamSubmission) (ExamResult, error) {
	cfg, ok, err := l.courses.GetExamConfig(courseID)
	if err != nil {
		return ExamResult{}, err
	}
	if !ok || !cfg.Enabled {
		return ExamResult{}, ErrExamDisabled
	}

	prior, err := l.store.ListExamResults(ctx, userID, courseID)
	if err != nil {
		return ExamResult{}, err
	}
	for _, p := range prior {
		if p.Passed {
			return ExamResult{}, ErrAlreadyPassed
		}
	}
	if len(prior) >= cfg.MaxAttempts {
		return ExamResult{}, ErrMaxAttemptsReached
	}

	grader := grading.New(grading.WithTextPolicy(cfg.TextPolicy, cfg.TextMinLength))
	var earned, total float64
	breakdown := make([]ExamAnswer, 0, len(cfg.Questions))
	for _, q := range cfg.Questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		total += points
		res := grader.Grade(
			grading.Q{Type: q.Type, Points: points, CorrectIndexes: q.CorrectIndexes},
			sub.Answers[q.ID],
		)
		earned += res.Points
		breakdown = append(breakdown, ExamAnswer{
			QuestionID:  q.ID,
			Points:      res.Points,
			MaxPoints:   res.MaxPoints,
			Correct:     res.Correct,
			NeedsReview: res.NeedsReview,
		})
	}

	percentage := 0.0
	if total > 0 {
		percentage = earned / total * 100
	}
	mal := sub.MalpracticeCount
	if mal < 0 {
		mal = 0
	}
	r := ExamResult{
		ID:               uuid.NewString(),
		UserID:           userID,
		CourseID:         courseID,
		Attempt:          len(prior) + 1,
		Score:            earned,
		Total:            total,
		Percentage:       percentage,
		Passed:           percentage >= cfg.PassingScore,
		MalpracticeCount: mal,
		CredibilityScore: int(math.Max(0, 100-10*float64(mal))),
		Breakdown:        breakdown,
		CreatedAt:        l.now().Unix(),
	}
	if err := l.store.InsertExamResult(ctx, r); err != nil {
		return ExamResult{}, err
	}
	_ = l.store.AppendEvent(ctx, EventExamGraded, r.ID, r)
	return r, nil
}

func (l *AssessmentLedger) ListExamResults(ctx context.Context, userID, courseID string) ([]ExamResult, error) {
	return l.store.ListExamResults(ctx, userID, courseID)
}

// refreshProgress updates the cached progress column; reads always recompute,
// so failures here are ignorable.
func (l *AssessmentLedger) refreshProgress(ctx context.Context, userID, courseID string) {
	c, err := l.courses.GetCourse(courseID)
	if err != nil || len(c.Chapters) == 0 {
		return
	}
	done, err := l.store.CountCompletedChapters(ctx, userID, courseID)
	if err != nil {
		return
	}
	progress := float64(done) / float64(len(c.Chapters)) * 100
	_ = l.store.UpdateProgress(ctx, userID, courseID, progress)
}
