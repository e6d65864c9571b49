package server

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/CodeEzard/vericred/internal/auth"
	"github.com/CodeEzard/vericred/internal/models"
)

// ensureAccount returns the account row for the identity, creating an
// untyped one on first contact.
func (s *Server) ensureAccount(identity auth.Identity) (models.Account, error) {
	var account models.Account
	err := s.db.Where("firebase_uid = ?", identity.UID).First(&account).Error
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, err
	}

	account = models.Account{FirebaseUID: identity.UID, AccountType: "unknown"}
	if err := s.db.Create(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

// requireStudent resolves the caller to a student profile. On failure it
// writes the error response and returns false.
func (s *Server) requireStudent(w http.ResponseWriter, r *http.Request) (models.Student, bool) {
	var student models.Student

	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return student, false
	}
	if err := s.db.Where("firebase_uid = ?", identity.UID).First(&student).Error; err != nil {
		writeError(w, http.StatusForbidden, "student profile not found")
		return student, false
	}
	return student, true
}

// requireUniversity resolves the caller to a university profile. On failure
// it writes the error response and returns false.
func (s *Server) requireUniversity(w http.ResponseWriter, r *http.Request) (models.Organization, bool) {
	var org models.Organization

	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return org, false
	}
	if err := s.db.Where("firebase_uid = ?", identity.UID).First(&org).Error; err != nil {
		writeError(w, http.StatusForbidden, "organization not found")
		return org, false
	}
	return org, true
}
