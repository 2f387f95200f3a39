package ledger

// Errors here are business-rule violations, surfaced to the caller as 4xx
// responses. None are retryable; store failures pass through untyped.

type Kind string

const (
	KindCourseNotFound        Kind = "course_not_found"
	KindChapterNotFound       Kind = "chapter_not_found"
	KindAlreadyEnrolled       Kind = "already_enrolled"
	KindNotEnrolled           Kind = "not_enrolled"
	KindPaidCourseRequiresKey Kind = "paid_course_requires_key"
	KindSelfOwnedCourse       Kind = "self_owned_course"
	KindNotCourseOwner        Kind = "not_course_owner"
	KindInvalidKey            Kind = "invalid_key"
	KindKeyAlreadyUsed        Kind = "key_already_used"
	KindBadSignature          Kind = "bad_signature"
	KindTokenNotFound         Kind = "token_not_found"
	KindTokenExpired          Kind = "token_expired"
	KindAlreadyActivated      Kind = "already_activated"
	KindQuizUnavailable       Kind = "quiz_unavailable"
	KindAlreadyAttempted      Kind = "already_attempted"
	KindExamDisabled          Kind = "exam_disabled"
	KindAlreadyPassed         Kind = "already_passed"
	KindMaxAttemptsReached    Kind = "max_attempts_reached"
	KindNotEligible           Kind = "not_eligible"
	KindCertificateNotFound   Kind = "certificate_not_found"
	KindResultNotFound        Kind = "result_not_found"
)

type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Detail }

var (
	ErrCourseNotFound        = &Error{KindCourseNotFound, "course not found"}
	ErrChapterNotFound       = &Error{KindChapterNotFound, "chapter not found"}
	ErrAlreadyEnrolled       = &Error{KindAlreadyEnrolled, "already enrolled in this course"}
	ErrNotEnrolled           = &Error{KindNotEnrolled, "not enrolled in this course"}
	ErrPaidCourseRequiresKey = &Error{KindPaidCourseRequiresKey, "paid course requires an access key"}
	ErrSelfOwnedCourse       = &Error{KindSelfOwnedCourse, "cannot enroll in your own course"}
	ErrNotCourseOwner        = &Error{KindNotCourseOwner, "not the course owner"}
	ErrInvalidKey            = &Error{KindInvalidKey, "access key not found for this course"}
	ErrKeyAlreadyUsed        = &Error{KindKeyAlreadyUsed, "access key has already been used"}
	ErrBadSignature          = &Error{KindBadSignature, "token signature does not verify"}
	ErrTokenNotFound         = &Error{KindTokenNotFound, "no matching enrollment token"}
	ErrTokenExpired          = &Error{KindTokenExpired, "enrollment token has expired"}
	ErrAlreadyActivated      = &Error{KindAlreadyActivated, "enrollment token already activated"}
	ErrQuizUnavailable       = &Error{KindQuizUnavailable, "no quiz available for this chapter"}
	ErrAlreadyAttempted      = &Error{KindAlreadyAttempted, "quiz already attempted; one attempt only"}
	ErrExamDisabled          = &Error{KindExamDisabled, "exam is not enabled for this course"}
	ErrAlreadyPassed         = &Error{KindAlreadyPassed, "exam already passed"}
	ErrMaxAttemptsReached    = &Error{KindMaxAttemptsReached, "maximum exam attempts reached"}
	ErrNotEligible           = &Error{KindNotEligible, "course requirements not yet met"}
	ErrCertificateNotFound   = &Error{KindCertificateNotFound, "certificate not found"}
	ErrResultNotFound        = &Error{KindResultNotFound, "result not found"}
)
