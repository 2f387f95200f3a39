package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edumint/edumint/internal/ledger"
)

var kindStatus = map[ledger.Kind]int{
	ledger.KindCourseNotFound:        http.StatusNotFound,
	ledger.KindChapterNotFound:       http.StatusNotFound,
	ledger.KindTokenNotFound:         http.StatusNotFound,
	ledger.KindCertificateNotFound:   http.StatusNotFound,
	ledger.KindResultNotFound:        http.StatusNotFound,
	ledger.KindInvalidKey:            http.StatusNotFound,
	ledger.KindAlreadyEnrolled:       http.StatusConflict,
	ledger.KindKeyAlreadyUsed:        http.StatusConflict,
	ledger.KindAlreadyActivated:      http.StatusConflict,
	ledger.KindAlreadyAttempted:      http.StatusConflict,
	ledger.KindAlreadyPassed:         http.StatusConflict,
	ledger.KindMaxAttemptsReached:    http.StatusConflict,
	ledger.KindSelfOwnedCourse:       http.StatusForbidden,
	ledger.KindNotCourseOwner:        http.StatusForbidden,
	ledger.KindBadSignature:          http.StatusUnauthorized,
	ledger.KindTokenExpired:          http.StatusGone,
	ledger.KindPaidCourseRequiresKey: http.StatusBadRequest,
	ledger.KindQuizUnavailable:       http.StatusBadRequest,
	ledger.KindExamDisabled:          http.StatusBadRequest,
	ledger.KindNotEligible:           http.StatusBadRequest,
	ledger.KindNotEnrolled:           http.StatusBadRequest,
}

// writeError translates domain errors to 4xx JSON responses; anything else is
// a store failure and stays a plain 500.
func writeError(w http.ResponseWriter, err error) {
	var de *ledger.Error
	if errors.As(err, &de) {
		status, ok := kindStatus[de.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":  string(de.Kind),
			"detail": de.Detail,
		})
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
