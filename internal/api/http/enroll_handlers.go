package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edumint/edumint/internal/auth/middleware"
	"github.com/edumint/edumint/internal/ledger"
)

func EnrollHandler(access *ledger.AccessLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		e, err := access.EnrollFree(r.Context(), sub, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, e)
	}
}

func RedeemKeyHandler(access *ledger.AccessLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		e, err := access.RedeemKey(r.Context(), sub, courseID, strings.TrimSpace(req.Key))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, e)
	}
}

func IssueKeysHandler(access *ledger.AccessLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Count int `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 1 || req.Count > 1000 {
			http.Error(w, "count must be 1-1000", http.StatusBadRequest)
			return
		}
		keys, err := access.IssueKeys(r.Context(), sub, courseID, req.Count)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, keys)
	}
}

func IssueTokensHandler(access *ledger.AccessLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Count int `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 1 || req.Count > 1000 {
			http.Error(w, "count must be 1-1000", http.StatusBadRequest)
			return
		}
		tokens, err := access.IssueTokens(r.Context(), sub, courseID, req.Count)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, tokens)
	}
}

func ActivateTokenHandler(access *ledger.AccessLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Token     string `json:"token"`
			Signature string `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Signature == "" {
			http.Error(w, "token and signature required", http.StatusBadRequest)
			return
		}
		e, err := access.ActivateToken(r.Context(), sub, req.Token, req.Signature)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, e)
	}
}
