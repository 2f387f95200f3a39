package ledger

// Event types appended to event_log after each successful mutation. The log
// is best-effort audit data: an append failure never fails the operation.
const (
	EventEnrollmentCreated = "EnrollmentCreated"
	EventKeyRedeemed       = "KeyRedeemed"
	EventTokenActivated    = "TokenActivated"
	EventQuizSubmitted     = "QuizSubmitted"
	EventExamGraded        = "ExamGraded"
	EventCertificateIssued = "CertificateIssued"
)
