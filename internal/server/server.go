// Package server exposes the vericred HTTP API: document verification,
// legacy record ingestion, credential issuance and sharing, and profile
// management.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/CodeEzard/vericred/internal/auth"
	"github.com/CodeEzard/vericred/internal/docai"
	"github.com/CodeEzard/vericred/internal/models"
	"github.com/CodeEzard/vericred/internal/storage"
	"github.com/CodeEzard/vericred/internal/vision"
)

// CredentialParser extracts structured fields from OCR text.
type CredentialParser interface {
	Parse(ctx context.Context, ocrText string) (models.ParsedCredential, error)
}

// Server holds the API dependencies. External services arrive behind small
// interfaces so tests can run against mocks.
type Server struct {
	db     *gorm.DB
	vision vision.Client
	docai  docai.Client
	parser CredentialParser
	auth   auth.Auth
	store  storage.Client

	docaiSpec       docai.Spec
	archiveBucket   string
	shareSecret     []byte
	frontendBaseURL string
	allowedOrigins  []string

	now func() time.Time
}

// Config collects the dependencies for New. Docai and Storage are optional:
// without a Docai client PDF uploads are rejected, and without a Storage
// client uploads are not archived.
type Config struct {
	DB     *gorm.DB
	Vision vision.Client
	Docai  docai.Client
	Parser CredentialParser
	Auth   auth.Auth
	Store  storage.Client

	DocaiSpec       docai.Spec
	ArchiveBucket   string
	ShareSecret     []byte
	FrontendBaseURL string
	AllowedOrigins  []string
}

func New(cfg Config) *Server {
	return &Server{
		db:              cfg.DB,
		vision:          cfg.Vision,
		docai:           cfg.Docai,
		parser:          cfg.Parser,
		auth:            cfg.Auth,
		store:           cfg.Store,
		docaiSpec:       cfg.DocaiSpec,
		archiveBucket:   cfg.ArchiveBucket,
		shareSecret:     cfg.ShareSecret,
		frontendBaseURL: trimRightSlash(cfg.FrontendBaseURL),
		allowedOrigins:  cfg.AllowedOrigins,
		now:             time.Now,
	}
}

// Routes builds the chi router for the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.corsMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Post("/api/v1/verify-document", s.verifyDocument)
	r.Get("/api/v1/credential-info/{id}", s.credentialInfo)
	r.Get("/credential/{id}/qrcode", s.credentialQRCode)
	r.Get("/credential/{id}/badge", s.credentialBadge)
	r.Get("/universities", s.listUniversities)
	r.Get("/universities/{id}", s.showUniversityPublic)
	r.Get("/students", s.listStudents)
	r.Get("/students/{id}", s.showStudentPublic)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/api/create/user", s.createStudent)
		r.Post("/api/create/org", s.createUniversity)
		r.Get("/dashboard", s.showStudent)
		r.Get("/university", s.showUniversity)
		r.Get("/api/v1/auth/me", s.authStatus)
		r.Post("/api/v1/institution/bulk-upload", s.bulkUpload)
		r.Post("/api/v1/credentials", s.issueCredential)
		r.Post("/api/v1/credentials/generate-share-link", s.generateShareLink)
	})

	return r
}

func (s *Server) publicCredentialURL(id string) string {
	return s.frontendBaseURL + "/verify/" + id
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
