package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CertificateIssuer mints at most one certificate per (user, course), once
// the completion evaluator says so.
type CertificateIssuer struct {
	store Store
	eval  *CompletionEvaluator
	now   func() time.Time
}

func NewCertificateIssuer(store Store, eval *CompletionEvaluator, now func() time.Time) *CertificateIssuer {
	if now == nil {
		now = time.Now
	}
	return &CertificateIssuer{store: store, eval: eval, now: now}
}

// GetOrIssueCertificate returns the existing certificate unchanged, or mints
// exactly one. The issuance timestamp is fixed at first issue.
func (i *CertificateIssuer) GetOrIssueCertificate(ctx context.Context, userID, courseID string) (Certificate, error) {
	elig, err := i.eval.CheckEligibility(ctx, userID, courseID)
	if err != nil {
		return Certificate{}, err
	}
	if !elig.Eligible {
		return Certificate{}, ErrNotEligible
	}

	if existing, ok, err := i.store.GetCertificate(ctx, userID, courseID); err != nil {
		return Certificate{}, err
	} else if ok {
		return existing, nil
	}

	c := Certificate{
		ID:       uuid.NewString(),
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: i.now().Unix(),
	}
	if err := i.store.InsertCertificate(ctx, c); err != nil {
		if isUniqueViolation(err) {
			// Lost a concurrent first-issue race; the winner's row is the
			// certificate.
			existing, ok, gerr := i.store.GetCertificate(ctx, userID, courseID)
			if gerr == nil && ok {
				return existing, nil
			}
		}
		return Certificate{}, err
	}
	_ = i.store.AppendEvent(ctx, EventCertificateIssued, c.ID, c)
	return c, nil
}

// Verify is the public lookup behind certificate verification pages.
func (i *CertificateIssuer) Verify(ctx context.Context, certID string) (Certificate, error) {
	c, ok, err := i.store.GetCertificateByID(ctx, certID)
	if err != nil {
		return Certificate{}, err
	}
	if !ok {
		return Certificate{}, ErrCertificateNotFound
	}
	return c, nil
}
