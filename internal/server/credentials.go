package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/CodeEzard/vericred/internal/models"
)

// issueCredential handles POST /api/v1/credentials: a university issues a
// credential record to a registered student.
func (s *Server) issueCredential(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireUniversity(w, r)
	if !ok {
		return
	}

	var body struct {
		StudentID   uint   `json:"student_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.StudentID == 0 || body.Title == "" {
		writeError(w, http.StatusBadRequest, "student_id and title are required")
		return
	}

	var student models.Student
	if err := s.db.Where("id = ?", body.StudentID).First(&student).Error; err != nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	cred := models.Credential{
		ID:           uuid.NewString(),
		Title:        body.Title,
		Description:  body.Description,
		IssuedAt:     s.now(),
		StudentID:    student.ID,
		UniversityID: org.ID,
	}
	if err := s.db.Create(&cred).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create credential")
		return
	}

	writeJSON(w, http.StatusCreated, cred)
}
