package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/CodeEzard/vericred/internal/models"
	"github.com/CodeEzard/vericred/pkg/utils"
)

// createUniversity handles POST /api/create/org. Creation is idempotent for
// the same identity; an identity already registered as a student is rejected.
func (s *Server) createUniversity(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		AcadEmail     string `json:"AcadEmail"`
		OrgName       string `json:"OrgName"`
		OrgType       string `json:"OrgType"`
		OrgURL        string `json:"OrgUrl"`
		OrgDesc       string `json:"OrgDesc"`
		Country       string `json:"Country"`
		State         string `json:"State"`
		City          string `json:"City"`
		TotalStudents int    `json:"TotalStudents,string"`
		Address       string `json:"Address"`
		PostalCode    string `json:"PostalCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var existingStudent models.Student
	if err := s.db.Where("firebase_uid = ?", identity.UID).First(&existingStudent).Error; err == nil {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        "account_conflict",
			"message":      "Identity already registered as a student. Use a different account to create a university profile.",
			"account_type": "student",
		})
		return
	}

	var existing models.Organization
	err := s.db.Where("firebase_uid = ?", identity.UID).First(&existing).Error
	if err == nil {
		writeJSON(w, http.StatusOK, organizationResponse(existing))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	org := models.Organization{
		FirebaseUID:   identity.UID,
		AcadEmail:     body.AcadEmail,
		OrgName:       body.OrgName,
		OrgType:       body.OrgType,
		OrgURL:        body.OrgURL,
		OrgDesc:       body.OrgDesc,
		Country:       body.Country,
		State:         body.State,
		City:          body.City,
		TotalStudents: body.TotalStudents,
		Address:       body.Address,
		PostalCode:    body.PostalCode,
	}
	if err := s.db.Create(&org).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create organization")
		return
	}

	account, err := s.ensureAccount(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}
	account.OwnerID = org.ID
	account.OwnerType = "university"
	account.AccountType = "university"
	if err := s.db.Save(&account).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(organizationResponse(org))
}

// showUniversity handles GET /university.
func (s *Server) showUniversity(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireUniversity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, organizationResponse(org))
}

// listUniversities handles GET /universities: a public listing.
func (s *Server) listUniversities(w http.ResponseWriter, r *http.Request) {
	var orgs []models.Organization
	if err := s.db.Limit(50).Find(&orgs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, utils.Map(orgs, publicOrganization))
}

// showUniversityPublic handles GET /universities/{id}: a public profile
// lookup without contact details.
func (s *Server) showUniversityPublic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var org models.Organization
	if err := s.db.Where("id = ?", id).First(&org).Error; err != nil {
		writeError(w, http.StatusNotFound, "university not found")
		return
	}
	writeJSON(w, http.StatusOK, publicOrganization(org))
}

// publicOrganization is the organization shape exposed on unauthenticated
// routes. Contact details stay private.
func publicOrganization(org models.Organization) map[string]any {
	return map[string]any{
		"id":       org.ID,
		"org_name": org.OrgName,
		"org_type": org.OrgType,
		"org_url":  org.OrgURL,
		"country":  org.Country,
		"state":    org.State,
		"city":     org.City,
	}
}

func organizationResponse(org models.Organization) map[string]any {
	return map[string]any{
		"account_type": "university",
		"organization": org,
		"authStatus": map[string]any{
			"isAuthenticated": true,
			"accountType":     "university",
		},
	}
}
