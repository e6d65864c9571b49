package server

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/CodeEzard/vericred/internal/docai"
	"github.com/CodeEzard/vericred/internal/models"
	"github.com/CodeEzard/vericred/internal/storage"
	"github.com/CodeEzard/vericred/internal/vision"
	"github.com/CodeEzard/vericred/pkg/utils"
)

const (
	// Upload size cap, aligned with the Vision inline image limit.
	maxUploadBytes = 10 << 20

	// Minimum Jaro-Winkler similarity between the OCR'd university name and
	// the official record for a document to count as verified.
	matchThreshold = 0.85
)

// verifyDocument handles POST /api/v1/verify-document: multipart upload of a
// certificate image or PDF, OCR, LLM field extraction and lookup against the
// imported legacy records.
func (s *Server) verifyDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "failed to parse form or file too large"})
		return
	}

	file, err := certificateFile(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": err.Error()})
		return
	}
	defer file.Close()

	docBytes, err := io.ReadAll(file)
	if err != nil || len(docBytes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "failed to read uploaded file"})
		return
	}

	rawText, ok := s.extractText(w, r, docBytes)
	if !ok {
		return
	}

	s.archiveUpload(r, docBytes)

	parsed, err := s.parser.Parse(ctx, rawText)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": err.Error()})
		return
	}

	var record models.LegacyCredential
	err = s.db.Preload("University").Where("roll_number = ?", parsed.RegisterNumber).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "Not_Found",
			"message": "No matching record was found for the provided register number.",
		})
		return
	} else if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}

	official := strings.TrimSpace(record.University.OrgName)
	extracted := strings.TrimSpace(parsed.UniversityName)
	confidence := strutil.Similarity(strings.ToLower(extracted), strings.ToLower(official), metrics.NewJaroWinkler())

	data := map[string]any{
		"student_name_ocr":    parsed.StudentName,
		"register_number":     parsed.RegisterNumber,
		"course_name":         parsed.CourseName,
		"year_of_passing":     parsed.YearOfPassing,
		"university_name_ocr": extracted,
		"official_university": official,
		"record":              record,
	}

	if confidence >= matchThreshold {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "Verified",
			"match_confidence": confidence,
			"data":             data,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "Potentially_Tampered",
		"match_confidence": confidence,
		"message":          "The institution name on the document does not match the official record.",
		"data":             data,
	})
}

// extractText runs OCR on the uploaded bytes, routing PDFs through Document
// AI and images through Vision. On failure it writes the error response and
// returns false.
func (s *Server) extractText(w http.ResponseWriter, r *http.Request, docBytes []byte) (string, bool) {
	ctx := r.Context()

	if http.DetectContentType(docBytes) == "application/pdf" {
		if s.docai == nil {
			writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"status": "Bad_Request", "message": "PDF verification is not enabled"})
			return "", false
		}
		text, err := docai.ExtractText(ctx, s.docai, s.docaiSpec, docBytes, "application/pdf")
		if err != nil {
			log.Printf("Failed to process document: %v", err)
			writeJSON(w, httpStatusFromGRPC(err), map[string]any{"status": "Bad_Request", "message": "could not extract text from document"})
			return "", false
		}
		if strings.TrimSpace(text) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "no text found in document"})
			return "", false
		}
		return text, true
	}

	annotations, err := vision.DetectText(ctx, s.vision, vision.ImageFromBytes(docBytes))
	if err != nil {
		log.Printf("Failed to detect text: %v", err)
		writeJSON(w, httpStatusFromGRPC(err), map[string]any{"status": "Bad_Request", "message": "could not extract text from image"})
		return "", false
	}
	text, ok := vision.FullText(annotations)
	if !ok || text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "no text found in image"})
		return "", false
	}
	return text, true
}

// certificateFile looks up the uploaded file. The expected field is
// "certificate" but common alternatives sent by frontends are accepted.
func certificateFile(r *http.Request) (multipart.File, error) {
	if file, _, err := r.FormFile("certificate"); err == nil {
		return file, nil
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil, errors.New("missing file field 'certificate' (send multipart/form-data with field name 'certificate')")
	}

	available := make([]string, 0, len(r.MultipartForm.File))
	for k := range r.MultipartForm.File {
		available = append(available, k)
	}

	alts := []string{"file", "upload", "image", "document", "cert"}
	if key, ok := utils.Find(available, func(k string) bool {
		return utils.Contains(alts, strings.ToLower(k))
	}); ok {
		log.Printf("verify: using alternative file field: %s", key)
		file, _, err := r.FormFile(key)
		return file, err
	}

	// Last resort: the first file field present.
	log.Printf("verify: falling back to first file field: %s", available[0])
	file, _, err := r.FormFile(available[0])
	return file, err
}

// archiveUpload stores the uploaded bytes for later audit. Failures are
// logged and never block verification.
func (s *Server) archiveUpload(r *http.Request, data []byte) {
	if s.store == nil || s.archiveBucket == "" {
		return
	}
	name := storage.ObjectName("verifications", s.now(), data)
	if err := s.store.SaveBytes(r.Context(), s.archiveBucket, name, data); err != nil {
		log.Printf("Failed to archive upload %s: %v", name, err)
	}
}

// httpStatusFromGRPC maps the status code of a failed Google API call onto
// the HTTP status returned to the caller.
func httpStatusFromGRPC(err error) int {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unauthenticated, codes.PermissionDenied:
		return http.StatusBadGateway
	case codes.DeadlineExceeded, codes.Unavailable:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
