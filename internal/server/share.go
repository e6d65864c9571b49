package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/CodeEzard/vericred/internal/models"
)

const (
	minShareHours = 1
	maxShareHours = 168
)

type shareClaims struct {
	CredentialID string `json:"credential_id"`
	jwt.RegisteredClaims
}

// generateShareLink handles POST /api/v1/credentials/generate-share-link:
// the credential owner mints a short-lived signed link for third parties.
func (s *Server) generateShareLink(w http.ResponseWriter, r *http.Request) {
	student, ok := s.requireStudent(w, r)
	if !ok {
		return
	}

	var body struct {
		CredentialID   string `json:"credential_id"`
		ExpiresInHours int    `json:"expires_in_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.CredentialID == "" {
		writeError(w, http.StatusBadRequest, "credential_id is required")
		return
	}
	if body.ExpiresInHours < minShareHours || body.ExpiresInHours > maxShareHours {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("expires_in_hours must be between %d and %d", minShareHours, maxShareHours))
		return
	}

	var cred models.Credential
	if err := s.db.Where("id = ?", body.CredentialID).First(&cred).Error; err != nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	if cred.StudentID != student.ID {
		writeError(w, http.StatusForbidden, "forbidden: not owner of credential")
		return
	}

	signed, err := s.signShareToken(cred.ID, time.Duration(body.ExpiresInHours)*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign share token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shareable_url": fmt.Sprintf("%s?token=%s", s.publicCredentialURL(cred.ID), signed),
	})
}

// credentialInfo handles GET /api/v1/credential-info/{id}?token=...: public
// lookup of a shared credential, gated by a valid share token for that id.
func (s *Server) credentialInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims, ok := s.requireShareToken(w, r, id)
	if !ok {
		return
	}

	var cred models.Credential
	if err := s.db.Preload("Student").Preload("University").Where("id = ?", id).First(&cred).Error; err != nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"credential":  cred,
		"valid_until": claims.ExpiresAt.Time,
	})
}

func (s *Server) signShareToken(credentialID string, ttl time.Duration) (string, error) {
	if len(s.shareSecret) == 0 {
		return "", errors.New("missing share token secret")
	}
	now := s.now()
	claims := shareClaims{
		CredentialID: credentialID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.shareSecret)
}

func (s *Server) parseShareToken(token string) (*shareClaims, error) {
	if len(s.shareSecret) == 0 {
		return nil, errors.New("missing share token secret")
	}
	parsed, err := jwt.ParseWithClaims(token, &shareClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.shareSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid or expired share token")
	}
	claims, ok := parsed.Claims.(*shareClaims)
	if !ok || claims.CredentialID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid or expired share token")
	}
	return claims, nil
}

// requireShareToken validates the token query parameter against the
// credential id in the path. On failure it writes the error response.
func (s *Server) requireShareToken(w http.ResponseWriter, r *http.Request, id string) (*shareClaims, bool) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return nil, false
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "This verification link is invalid or has expired.")
		return nil, false
	}
	claims, err := s.parseShareToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "This verification link is invalid or has expired.")
		return nil, false
	}
	if claims.CredentialID != id {
		writeError(w, http.StatusForbidden, "forbidden: id mismatch")
		return nil, false
	}
	return claims, true
}
