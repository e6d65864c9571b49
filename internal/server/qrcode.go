package server

import (
	"net/http"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/CodeEzard/vericred/internal/badge"
	"github.com/CodeEzard/vericred/internal/models"
)

// credentialQRCode handles GET /credential/{id}/qrcode: a PNG QR code
// pointing at the credential's public verification page.
func (s *Server) credentialQRCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	var cred models.Credential
	if err := s.db.Where("id = ?", id).First(&cred).Error; err != nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	png, err := qrcode.Encode(s.publicCredentialURL(cred.ID), qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// badgeVerification derives the badge verdict for an issued credential by
// matching the holder's name against the issuing university's imported
// records. A university without imported records vouches for its issued
// credentials directly.
func (s *Server) badgeVerification(cred models.Credential) (string, float64) {
	var records []models.LegacyCredential
	err := s.db.Select("student_name").
		Where("university_id = ?", cred.UniversityID).
		Find(&records).Error
	if err != nil || len(records) == 0 {
		return "Verified", 1
	}

	holder := strings.ToLower(strings.TrimSpace(cred.Student.FirstName + " " + cred.Student.LastName))
	jw := metrics.NewJaroWinkler()
	var best float64
	for _, record := range records {
		sim := strutil.Similarity(holder, strings.ToLower(strings.TrimSpace(record.StudentName)), jw)
		if sim > best {
			best = sim
		}
	}

	if best >= matchThreshold {
		return "Verified", best
	}
	return "Needs_Review", best
}

// credentialBadge handles GET /credential/{id}/badge?token=...: a rendered
// PNG badge for a shared credential, gated by the same share token as
// credential-info.
func (s *Server) credentialBadge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.requireShareToken(w, r, id); !ok {
		return
	}

	var cred models.Credential
	if err := s.db.Preload("Student").Preload("University").Where("id = ?", id).First(&cred).Error; err != nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	holder := strings.TrimSpace(cred.Student.FirstName + " " + cred.Student.LastName)
	verdict, confidence := s.badgeVerification(cred)
	png, err := badge.Render(badge.Info{
		Title:      cred.Title,
		Holder:     holder,
		Issuer:     cred.University.OrgName,
		Status:     verdict,
		Confidence: confidence,
		URL:        s.publicCredentialURL(cred.ID),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render badge")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
