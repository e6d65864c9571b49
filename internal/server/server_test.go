package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/glebarez/sqlite"
	gax "github.com/googleapis/gax-go/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CodeEzard/vericred/internal/auth"
	"github.com/CodeEzard/vericred/internal/db"
	"github.com/CodeEzard/vericred/internal/models"
)

type mockVision struct {
	texts []string
	err   error
	calls int
}

func (m *mockVision) DetectTexts(ctx context.Context, img *visionpb.Image, ictx *visionpb.ImageContext, maxResults int, opts ...gax.CallOption) ([]*visionpb.EntityAnnotation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var annotations []*visionpb.EntityAnnotation
	for _, text := range m.texts {
		annotations = append(annotations, &visionpb.EntityAnnotation{Description: text})
	}
	return annotations, nil
}

type mockDocai struct {
	text  string
	err   error
	calls int
}

func (m *mockDocai) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &documentaipb.ProcessResponse{
		Document: &documentaipb.Document{Text: m.text},
	}, nil
}

type mockParser struct {
	parsed models.ParsedCredential
	err    error
}

func (m *mockParser) Parse(ctx context.Context, ocrText string) (models.ParsedCredential, error) {
	return m.parsed, m.err
}

// mockAuth resolves bearer tokens to identities from a fixed table.
type mockAuth struct {
	identities map[string]auth.Identity
}

func (m *mockAuth) Verify(ctx context.Context, token string) (auth.Identity, error) {
	identity, ok := m.identities[token]
	if !ok {
		return auth.Identity{}, errors.New("unknown token")
	}
	return identity, nil
}

type mockStore struct {
	saved map[string][]byte
	err   error
}

func (m *mockStore) SaveBytes(ctx context.Context, bucket, object string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[bucket+"/"+object] = data
	return nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg.DB = gdb
	if cfg.ShareSecret == nil {
		cfg.ShareSecret = []byte("test-share-secret")
	}
	if cfg.FrontendBaseURL == "" {
		cfg.FrontendBaseURL = "https://vericred.example"
	}
	return New(cfg)
}

// serve runs a request through the full router so middleware and URL params
// behave as in production.
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func fixedTime(t *testing.T) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2025-03-01T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	return at
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec.Body)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %v", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{AllowedOrigins: []string{"https://app.vericred.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/verify-document", nil)
	req.Header.Set("Origin", "https://app.vericred.example")
	rec := serve(s, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.vericred.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin on CORS response, got %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	s := newTestServer(t, Config{AllowedOrigins: []string{"https://app.vericred.example"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := serve(s, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unknown origin, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin even for unknown origins, got %q", got)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	s := newTestServer(t, Config{Auth: &mockAuth{}})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsUnknownToken(t *testing.T) {
	s := newTestServer(t, Config{Auth: &mockAuth{}})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := serve(s, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
