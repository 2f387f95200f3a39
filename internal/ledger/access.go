package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/edumint/edumint/internal/course"
)

// AccessLedger tracks free/paid enrollment, one-time access keys and signed
// activation tokens.
type AccessLedger struct {
	store   Store
	courses course.Reader
	signer  *TokenSigner
	ttl     time.Duration
	now     func() time.Time
}

func NewAccessLedger(store Store, courses course.Reader, signer *TokenSigner, ttl time.Duration, now func() time.Time) *AccessLedger {
	if now == nil {
		now = time.Now
	}
	return &AccessLedger{store: store, courses: courses, signer: signer, ttl: ttl, now: now}
}

func (l *AccessLedger) EnrollFree(ctx context.Context, userID, courseID string) (Enrollment, error) {
	c, err := l.courses.GetCourse(courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Enrollment{}, ErrCourseNotFound
		}
		return Enrollment{}, err
	}
	if _, ok, err := l.store.GetEnrollment(ctx, userID, courseID); err != nil {
		return Enrollment{}, err
	} else if ok {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	if c.Price > 0 {
		return Enrollment{}, ErrPaidCourseRequiresKey
	}
	if c.OwnerID == userID {
		return Enrollment{}, ErrSelfOwnedCourse
	}
	e := Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Via:       ViaFree,
		CreatedAt: l.now().Unix(),
	}
	if err := l.store.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	_ = l.store.AppendEvent(ctx, EventEnrollmentCreated, e.ID, e)
	return e, nil
}

func (l *AccessLedger) RedeemKey(ctx context.Context, userID, courseID, code string) (Enrollment, error) {
	if _, err := l.courses.GetCourse(courseID); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Enrollment{}, ErrCourseNotFound
		}
		return Enrollment{}, err
	}
	// Don't burn a key for someone who already holds an enrollment.
	if _, ok, err := l.store.GetEnrollment(ctx, userID, courseID); err != nil {
		return Enrollment{}, err
	} else if ok {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	k, ok, err := l.store.GetAccessKey(ctx, courseID, code)
	if err != nil {
		return Enrollment{}, err
	}
	if !ok {
		return Enrollment{}, ErrInvalidKey
	}
	if k.IsUsed {
		return Enrollment{}, ErrKeyAlreadyUsed
	}
	won, err := l.store.ConsumeAccessKey(ctx, courseID, code, userID, l.now().Unix())
	if err != nil {
		return Enrollment{}, err
	}
	if !won {
		return Enrollment{}, ErrKeyAlreadyUsed
	}
	e := Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Via:       ViaKey,
		CreatedAt: l.now().Unix(),
	}
	if err := l.store.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	_ = l.store.AppendEvent(ctx, EventKeyRedeemed, code, e)
	return e, nil
}

// IssueKeys generates count single-use access keys for a paid course.
func (l *AccessLedger) IssueKeys(ctx context.Context, ownerID, courseID string, count int) ([]AccessKey, error) {
	c, err := l.courses.GetCourse(courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, ErrNotCourseOwner
	}
	keys := make([]AccessKey, 0, count)
	for i := 0; i < count; i++ {
		code, err := NewKeyCode()
		if err != nil {
			return nil, err
		}
		keys = append(keys, AccessKey{CourseID: courseID, Code: code, CreatedAt: l.now().Unix()})
	}
	if err := l.store.InsertAccessKeys(ctx, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// IssueTokens mints count signed enrollment tokens, not yet bound to a user
// (the manual order-approval flow hands them out). The signature is returned
// alongside the value and never persisted.
func (l *AccessLedger) IssueTokens(ctx context.Context, ownerID, courseID string, count int) ([]IssuedToken, error) {
	c, err := l.courses.GetCourse(courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, ErrNotCourseOwner
	}
	now := l.now()
	expires := now.Add(l.ttl).Unix()
	out := make([]IssuedToken, 0, count)
	for i := 0; i < count; i++ {
		value, err := l.signer.NewValue()
		if err != nil {
			return nil, err
		}
		t := EnrollmentToken{
			Value:     value,
			CourseID:  courseID,
			ExpiresAt: expires,
			CreatedAt: now.Unix(),
		}
		if err := l.store.InsertToken(ctx, t); err != nil {
			return nil, err
		}
		out = append(out, IssuedToken{
			Value:     value,
			Signature: l.signer.Sign(value),
			CourseID:  courseID,
			ExpiresAt: expires,
		})
	}
	return out, nil
}

// ActivateToken validates signature, expiry and single use, then enrolls.
// Signature is checked before any store lookup so forged values leak nothing
// about token existence.
func (l *AccessLedger) ActivateToken(ctx context.Context, userID, value, signature string) (Enrollment, error) {
	if !l.signer.Verify(value, signature) {
		return Enrollment{}, ErrBadSignature
	}
	t, ok, err := l.store.GetToken(ctx, value)
	if err != nil {
		return Enrollment{}, err
	}
	if !ok {
		return Enrollment{}, ErrTokenNotFound
	}
	if t.UserID != "" && t.UserID != userID {
		// Bound to someone else; indistinguishable from absent on purpose.
		return Enrollment{}, ErrTokenNotFound
	}
	now := l.now()
	if now.Unix() > t.ExpiresAt {
		return Enrollment{}, ErrTokenExpired
	}
	won, err := l.store.ConsumeToken(ctx, value, userID, now.Unix())
	if err != nil {
		return Enrollment{}, err
	}
	if !won {
		return Enrollment{}, ErrAlreadyActivated
	}
	e := Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  t.CourseID,
		Via:       ViaToken,
		CreatedAt: now.Unix(),
	}
	if err := l.store.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			// Token consumed but an enrollment already exists: activation is
			// idempotent, return the existing row.
			existing, ok, gerr := l.store.GetEnrollment(ctx, userID, t.CourseID)
			if gerr != nil {
				return Enrollment{}, gerr
			}
			if ok {
				return existing, nil
			}
		}
		return Enrollment{}, err
	}
	_ = l.store.AppendEvent(ctx, EventTokenActivated, value, e)
	return e, nil
}
