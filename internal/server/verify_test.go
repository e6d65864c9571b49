package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/CodeEzard/vericred/internal/docai"
	"github.com/CodeEzard/vericred/internal/models"
)

func multipartUpload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-document", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func seedLegacyRecord(t *testing.T, s *Server, orgName, rollNumber string) models.Organization {
	t.Helper()

	org := models.Organization{FirebaseUID: "uid-" + orgName, OrgName: orgName}
	if err := s.db.Create(&org).Error; err != nil {
		t.Fatal(err)
	}
	record := models.LegacyCredential{
		StudentName:  "Priya Raman",
		RollNumber:   rollNumber,
		Program:      "B.E.",
		Major:        "Computer Science",
		BatchYear:    2019,
		UniversityID: org.ID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		t.Fatal(err)
	}
	return org
}

func TestVerifyDocumentVerified(t *testing.T) {
	visionClient := &mockVision{texts: []string{"ANNA UNIVERSITY\nPriya Raman\n311519104001", "ANNA"}}
	s := newTestServer(t, Config{
		Vision: visionClient,
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "311519104001",
			StudentName:    "Priya Raman",
			UniversityName: "Anna University",
		}},
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	rec := serve(s, multipartUpload(t, "certificate", "cert.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec.Body)
	if body["status"] != "Verified" {
		t.Fatalf("expected Verified, got %v", body["status"])
	}
	if conf, ok := body["match_confidence"].(float64); !ok || conf < matchThreshold {
		t.Errorf("expected confidence >= %v, got %v", matchThreshold, body["match_confidence"])
	}
	if visionClient.calls != 1 {
		t.Errorf("expected exactly one vision call, got %d", visionClient.calls)
	}
}

func TestVerifyDocumentTampered(t *testing.T) {
	s := newTestServer(t, Config{
		Vision: &mockVision{texts: []string{"some text"}},
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "311519104001",
			UniversityName: "Shady Diploma Mill",
		}},
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	rec := serve(s, multipartUpload(t, "certificate", "cert.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec.Body)
	if body["status"] != "Potentially_Tampered" {
		t.Fatalf("expected Potentially_Tampered, got %v", body["status"])
	}
	if conf, ok := body["match_confidence"].(float64); !ok || conf >= matchThreshold {
		t.Errorf("expected confidence below %v, got %v", matchThreshold, body["match_confidence"])
	}
}

func TestVerifyDocumentNotFound(t *testing.T) {
	s := newTestServer(t, Config{
		Vision: &mockVision{texts: []string{"some text"}},
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "999999",
			UniversityName: "Anna University",
		}},
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	rec := serve(s, multipartUpload(t, "certificate", "cert.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec.Body); body["status"] != "Not_Found" {
		t.Fatalf("expected Not_Found, got %v", body["status"])
	}
}

func TestVerifyDocumentPDFRoutedToDocai(t *testing.T) {
	visionClient := &mockVision{texts: []string{"unused"}}
	docaiClient := &mockDocai{text: "ANNA UNIVERSITY 311519104001"}
	s := newTestServer(t, Config{
		Vision:    visionClient,
		Docai:     docaiClient,
		DocaiSpec: docai.Spec{ProjectID: "test", Location: "us", ProcessorID: "abc"},
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "311519104001",
			UniversityName: "Anna University",
		}},
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	rec := serve(s, multipartUpload(t, "certificate", "cert.pdf", []byte("%PDF-1.4 fake certificate")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if docaiClient.calls != 1 {
		t.Errorf("expected one Document AI call, got %d", docaiClient.calls)
	}
	if visionClient.calls != 0 {
		t.Errorf("expected no vision calls for a PDF, got %d", visionClient.calls)
	}
}

func TestVerifyDocumentPDFWithoutDocai(t *testing.T) {
	s := newTestServer(t, Config{Vision: &mockVision{}})

	rec := serve(s, multipartUpload(t, "certificate", "cert.pdf", []byte("%PDF-1.4 fake")))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestVerifyDocumentNoTextFound(t *testing.T) {
	s := newTestServer(t, Config{
		Vision: &mockVision{},
		Parser: &mockParser{},
	})

	rec := serve(s, multipartUpload(t, "certificate", "blank.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVerifyDocumentMissingFile(t *testing.T) {
	s := newTestServer(t, Config{Vision: &mockVision{}})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("note", "no file here")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-document", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := serve(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVerifyDocumentAcceptsAlternativeField(t *testing.T) {
	s := newTestServer(t, Config{
		Vision: &mockVision{texts: []string{"text"}},
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "311519104001",
			UniversityName: "Anna University",
		}},
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	rec := serve(s, multipartUpload(t, "file", "cert.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with alternative field name, got %d", rec.Code)
	}
}

func TestVerifyDocumentArchivesUpload(t *testing.T) {
	store := &mockStore{}
	s := newTestServer(t, Config{
		Vision: &mockVision{texts: []string{"text"}},
		Parser: &mockParser{parsed: models.ParsedCredential{
			RegisterNumber: "311519104001",
			UniversityName: "Anna University",
		}},
		Store:         store,
		ArchiveBucket: "vericred-archive",
	})
	seedLegacyRecord(t, s, "Anna University", "311519104001")

	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	rec := serve(s, multipartUpload(t, "certificate", "cert.jpg", payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one archived object, got %d", len(store.saved))
	}
	for name, data := range store.saved {
		if !bytes.Equal(data, payload) {
			t.Errorf("archived bytes differ for %s", name)
		}
	}
}

func TestVerifyDocumentVisionQuotaError(t *testing.T) {
	s := newTestServer(t, Config{
		Vision: &mockVision{err: status.Error(codes.ResourceExhausted, "quota exceeded")},
	})

	rec := serve(s, multipartUpload(t, "certificate", "cert.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestHTTPStatusFromGRPC(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.ResourceExhausted, http.StatusTooManyRequests},
		{codes.Unauthenticated, http.StatusBadGateway},
		{codes.PermissionDenied, http.StatusBadGateway},
		{codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{codes.Unavailable, http.StatusGatewayTimeout},
		{codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := httpStatusFromGRPC(status.Error(tt.code, "boom")); got != tt.want {
				t.Errorf("code %v: expected %d, got %d", tt.code, tt.want, got)
			}
		})
	}
}
