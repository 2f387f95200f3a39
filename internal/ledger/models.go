package ledger

import "github.com/edumint/edumint/internal/grading"

const (
	ViaFree  = "free"
	ViaKey   = "access_key"
	ViaToken = "token"
)

type Enrollment struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Via      string `json:"via"`
	// Progress is recomputed from quiz results on read; the stored column
	// is only a cache refreshed on quiz submit.
	Progress  float64 `json:"progress"`
	CreatedAt int64   `json:"created_at"`
}

type AccessKey struct {
	CourseID  string `json:"course_id"`
	Code      string `json:"code"`
	IsUsed    bool   `json:"is_used"`
	UsedBy    string `json:"used_by,omitempty"`
	UsedAt    int64  `json:"used_at,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type EnrollmentToken struct {
	Value     string `json:"value"`
	CourseID  string `json:"course_id"`
	UserID    string `json:"user_id,omitempty"` // empty until bound during approval
	IsUsed    bool   `json:"is_used"`
	UsedBy    string `json:"used_by,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

// IssuedToken is what the org hands to a buyer after manual order approval.
// The signature always accompanies the value and is never persisted.
type IssuedToken struct {
	Value     string `json:"value"`
	Signature string `json:"signature"`
	CourseID  string `json:"course_id"`
	ExpiresAt int64  `json:"expires_at"`
}

type QuizAnswer struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

type QuizResult struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	CourseID  string       `json:"course_id"`
	ChapterID string       `json:"chapter_id"`
	Score     int          `json:"score"`
	Total     int          `json:"total"`
	Breakdown []QuizAnswer `json:"breakdown"`
	CreatedAt int64        `json:"created_at"`
}

// QuizSubmission answers are keyed by question index as JSON object keys.
type QuizSubmission struct {
	ChapterID string            `json:"chapter_id"`
	CourseID  string            `json:"course_id"`
	Answers   map[string]string `json:"answers"`
}

type ExamAnswer struct {
	QuestionID  string  `json:"question_id"`
	Points      float64 `json:"points"`
	MaxPoints   float64 `json:"max_points"`
	Correct     bool    `json:"correct"`
	NeedsReview bool    `json:"needs_review,omitempty"`
}

type ExamResult struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	CourseID         string       `json:"course_id"`
	Attempt          int          `json:"attempt"`
	Score            float64      `json:"score"`
	Total            float64      `json:"total"`
	Percentage       float64      `json:"percentage"`
	Passed           bool         `json:"passed"`
	MalpracticeCount int          `json:"malpractice_count"`
	CredibilityScore int          `json:"credibility_score"`
	Breakdown        []ExamAnswer `json:"breakdown"`
	CreatedAt        int64        `json:"created_at"`
}

type ExamSubmission struct {
	Answers          map[string]grading.Answer `json:"answers"` // questionID -> answer
	MalpracticeCount int                       `json:"malpractice_count"`
}

type Certificate struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	IssuedAt int64  `json:"issued_at"`
}

type Eligibility struct {
	Eligible     bool `json:"eligible"`
	Completed    int  `json:"completed"`
	Total        int  `json:"total"`
	ExamRequired bool `json:"exam_required"`
	ExamPassed   bool `json:"exam_passed"`
}
