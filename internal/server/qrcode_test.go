package server

import (
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/CodeEzard/vericred/internal/models"
)

func TestCredentialQRCode(t *testing.T) {
	s := newTestServer(t, Config{})
	_, cred := seedStudentWithCredential(t, s, "uid-priya")

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/credential/"+cred.ID+"/qrcode", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Errorf("expected 256x256 QR code, got %v", img.Bounds())
	}
}

func TestCredentialQRCodeUnknownID(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/credential/nope/qrcode", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCredentialBadge(t *testing.T) {
	s := newTestServer(t, Config{})
	_, cred := seedStudentWithCredential(t, s, "uid-priya")

	token, err := s.signShareToken(cred.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/credential/"+cred.ID+"/badge?token="+url.QueryEscape(token), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Error("expected a non-empty badge image")
	}
}

func TestBadgeVerification(t *testing.T) {
	s := newTestServer(t, Config{})
	student, cred := seedStudentWithCredential(t, s, "uid-priya")
	cred.Student = student

	t.Run("no imported records", func(t *testing.T) {
		verdict, confidence := s.badgeVerification(cred)
		if verdict != "Verified" || confidence != 1 {
			t.Errorf("expected Verified/1 without records, got %s/%v", verdict, confidence)
		}
	})

	record := models.LegacyCredential{
		StudentName:  "Priya Raman",
		RollNumber:   "311519104001",
		UniversityID: cred.UniversityID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		t.Fatal(err)
	}

	t.Run("matching record", func(t *testing.T) {
		verdict, confidence := s.badgeVerification(cred)
		if verdict != "Verified" {
			t.Errorf("expected Verified for matching holder, got %s", verdict)
		}
		if confidence < matchThreshold {
			t.Errorf("expected confidence >= %v, got %v", matchThreshold, confidence)
		}
	})

	t.Run("mismatching record", func(t *testing.T) {
		stranger := cred
		stranger.Student = models.Student{FirstName: "Zork", LastName: "Xyzzy"}
		verdict, confidence := s.badgeVerification(stranger)
		if verdict != "Needs_Review" {
			t.Errorf("expected Needs_Review for unknown holder, got %s", verdict)
		}
		if confidence >= matchThreshold {
			t.Errorf("expected confidence below %v, got %v", matchThreshold, confidence)
		}
	})
}

func TestCredentialBadgeRequiresShareToken(t *testing.T) {
	s := newTestServer(t, Config{})
	_, cred := seedStudentWithCredential(t, s, "uid-priya")

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/credential/"+cred.ID+"/badge", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
