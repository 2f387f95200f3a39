package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/ledger"
)

func CheckEligibilityHandler(eval *ledger.CompletionEvaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		elig, err := eval.CheckEligibility(r.Context(), sub, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, elig)
	}
}

func GetCertificateHandler(issuer *ledger.CertificateIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		courseID := chi.URLParam(r, "courseID")
		cert, err := issuer.GetOrIssueCertificate(r.Context(), sub, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, cert)
	}
}

// VerifyCertificateHandler is public: anyone holding a certificate id can
// confirm it was issued.
func VerifyCertificateHandler(issuer *ledger.CertificateIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		certID := chi.URLParam(r, "certID")
		cert, err := issuer.Verify(r.Context(), certID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, cert)
	}
}
