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

// createStudent handles POST /api/create/user. Creation is idempotent for
// the same identity; an identity already registered as a university is
// rejected.
func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Email        string `json:"email"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		StudentEmail string `json:"studentEmail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var existingOrg models.Organization
	if err := s.db.Where("firebase_uid = ?", identity.UID).First(&existingOrg).Error; err == nil {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        "account_conflict",
			"message":      "Identity already registered as a university. Use a different account to create a student profile.",
			"account_type": "university",
		})
		return
	}

	var existing models.Student
	err := s.db.Where("firebase_uid = ?", identity.UID).First(&existing).Error
	if err == nil {
		writeJSON(w, http.StatusOK, studentResponse(existing))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	email := body.Email
	if email == "" {
		email = identity.Email
	}
	student := models.Student{
		FirebaseUID:  identity.UID,
		Email:        email,
		FirstName:    body.FirstName,
		LastName:     body.LastName,
		StudentEmail: body.StudentEmail,
		IsVerified:   true,
	}
	if err := s.db.Create(&student).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	account, err := s.ensureAccount(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}
	account.OwnerID = student.ID
	account.OwnerType = "user"
	account.AccountType = "student"
	if err := s.db.Save(&account).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(studentResponse(student))
}

// showStudent handles GET /dashboard.
func (s *Server) showStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := s.requireStudent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, studentResponse(student))
}

// listStudents handles GET /students: a public listing without contact
// details.
func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	var students []models.Student
	if err := s.db.Limit(50).Find(&students).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, utils.Map(students, publicStudent))
}

// showStudentPublic handles GET /students/{id}: a public profile lookup
// without contact details.
func (s *Server) showStudentPublic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var student models.Student
	if err := s.db.Where("id = ?", id).First(&student).Error; err != nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, publicStudent(student))
}

// publicStudent is the student shape exposed on unauthenticated routes.
// Emails stay private.
func publicStudent(st models.Student) map[string]any {
	return map[string]any{
		"id":          st.ID,
		"first_name":  st.FirstName,
		"last_name":   st.LastName,
		"is_verified": st.IsVerified,
	}
}

// authStatus handles GET /api/v1/auth/me: account type and profile presence
// for the authenticated identity.
func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var student models.Student
	var org models.Organization
	_ = s.db.Where("firebase_uid = ?", identity.UID).First(&student).Error
	_ = s.db.Where("firebase_uid = ?", identity.UID).First(&org).Error

	hasStudent := student.ID != 0
	hasOrg := org.ID != 0

	accountType := "unknown"
	if hasStudent {
		accountType = "student"
	} else if hasOrg {
		accountType = "university"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uid":                    identity.UID,
		"account_type":           accountType,
		"has_user_profile":       hasStudent,
		"has_university_profile": hasOrg,
	})
}

func studentResponse(student models.Student) map[string]any {
	return map[string]any{
		"account_type": "student",
		"user":         student,
		"authStatus": map[string]any{
			"isAuthenticated": true,
			"accountType":     "student",
		},
	}
}
