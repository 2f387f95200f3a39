package ledger

import "context"

// Store is the persistence surface for the ledger. Implementations must make
// CreateEnrollment and InsertQuizResult report duplicates as the matching
// domain error (unique index is the final arbiter), and the Consume* methods
// must be single conditional updates, never read-then-write.
type Store interface {
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, bool, error)
	CreateEnrollment(ctx context.Context, e Enrollment) error
	UpdateProgress(ctx context.Context, userID, courseID string, progress float64) error

	InsertAccessKeys(ctx context.Context, keys []AccessKey) error
	GetAccessKey(ctx context.Context, courseID, code string) (AccessKey, bool, error)
	// ConsumeAccessKey flips is_used for an unused key; reports whether this
	// caller won the flip.
	ConsumeAccessKey(ctx context.Context, courseID, code, userID string, now int64) (bool, error)

	InsertToken(ctx context.Context, t EnrollmentToken) error
	GetToken(ctx context.Context, value string) (EnrollmentToken, bool, error)
	ConsumeToken(ctx context.Context, value, userID string, now int64) (bool, error)

	InsertQuizResult(ctx context.Context, r QuizResult) error
	GetQuizResult(ctx context.Context, userID, chapterID string) (QuizResult, bool, error)
	CountCompletedChapters(ctx context.Context, userID, courseID string) (int, error)

	InsertExamResult(ctx context.Context, r ExamResult) error
	ListExamResults(ctx context.Context, userID, courseID string) ([]ExamResult, error)

	InsertCertificate(ctx context.Context, c Certificate) error
	GetCertificate(ctx context.Context, userID, courseID string) (Certificate, bool, error)
	GetCertificateByID(ctx context.Context, id string) (Certificate, bool, error)

	AppendEvent(ctx context.Context, typ, key string, data any) error
}
