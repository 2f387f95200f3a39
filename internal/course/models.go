package course

import "errors"

var ErrNotFound = errors.New("course not found")

var ErrChapterNotFound = errors.New("chapter not found")

// QuizQuestion is a chapter quiz question. CorrectAnswer indexes into Options.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

type Chapter struct {
	ID       string         `json:"id"`
	CourseID string         `json:"course_id"`
	Position int            `json:"position"`
	Title    string         `json:"title"`
	Quiz     []QuizQuestion `json:"quiz,omitempty"`
}

type Course struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	Price     int64     `json:"price"` // 0 = free
	Chapters  []Chapter `json:"chapters,omitempty"`
	CreatedAt int64     `json:"created_at,omitempty"`
}

// ExamQuestion types: mcq, msq, tf, text.
type ExamQuestion struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options,omitempty"`
	CorrectIndexes []int    `json:"correct_indexes,omitempty"`
	Points         float64  `json:"points"`
}

// Text answers are auto-credited per policy and flagged for manual review.
const (
	TextPolicyNonEmpty  = "credit_nonempty"
	TextPolicyMinLength = "credit_min_length"
)

type ExamConfig struct {
	CourseID      string         `json:"course_id"`
	Enabled       bool           `json:"enabled"`
	Questions     []ExamQuestion `json:"questions"`
	PassingScore  float64        `json:"passing_score"`
	MaxAttempts   int            `json:"max_attempts"`
	TimeLimitSec  int            `json:"time_limit_sec"`
	TextPolicy    string         `json:"text_policy"`
	TextMinLength int            `json:"text_min_length"`
}

// Reader is the narrow read surface the ledger depends on.
type Reader interface {
	GetCourse(id string) (Course, error)
	GetChapter(id string) (Chapter, error)
	GetExamConfig(courseID string) (ExamConfig, bool, error)
}
