package server

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/CodeEzard/vericred/internal/models"
	"github.com/CodeEzard/vericred/pkg/utils"
)

var bulkUploadHeaders = []string{"student_name", "roll_number", "program", "major", "batch_year", "issued_date", "graduation_date"}

// bulkUpload handles POST /api/v1/institution/bulk-upload: CSV import of
// legacy credentials by an authenticated university admin. Rows are inserted
// in one transaction; duplicate roll numbers for the university are skipped.
func (s *Server) bulkUpload(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireUniversity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	file, header, err := r.FormFile("recordsCsv")
	if err != nil {
		writeError(w, http.StatusBadRequest, "recordsCsv file is required")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read CSV header")
		return
	}
	headers = utils.Map(headers, func(h string) string {
		return strings.TrimSpace(strings.ToLower(h))
	})
	if !reflect.DeepEqual(headers, bulkUploadHeaders) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "Invalid CSV format. Please use the provided template.",
			"expected": bulkUploadHeaders,
			"got":      headers,
		})
		return
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		writeError(w, http.StatusInternalServerError, "could not start transaction")
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			tx.Rollback()
			panic(recovered)
		}
	}()

	var inserted, duplicates int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tx.Rollback()
			writeError(w, http.StatusBadRequest, "failed to read CSV rows")
			return
		}
		if len(rec) != len(bulkUploadHeaders) {
			tx.Rollback()
			writeError(w, http.StatusBadRequest, "row does not match header length")
			return
		}

		row, err := parseLegacyCredentialRow(rec)
		if err != nil {
			tx.Rollback()
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		row.UniversityID = org.ID

		var existing int64
		if err := tx.Model(&models.LegacyCredential{}).
			Where("roll_number = ? AND university_id = ?", row.RollNumber, org.ID).
			Count(&existing).Error; err != nil {
			tx.Rollback()
			writeError(w, http.StatusInternalServerError, "database error during duplicate check")
			return
		}
		if existing > 0 {
			duplicates++
			continue
		}

		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			writeError(w, http.StatusInternalServerError, "failed to insert row")
			return
		}
		inserted++
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		writeError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"inserted":           inserted,
		"duplicates_skipped": duplicates,
		"file":               header.Filename,
	})
}

func parseLegacyCredentialRow(rec []string) (models.LegacyCredential, error) {
	rec = utils.Map(rec, strings.TrimSpace)

	row := models.LegacyCredential{
		StudentName:    rec[0],
		RollNumber:     rec[1],
		Program:        rec[2],
		Major:          rec[3],
		GraduationDate: rec[6],
	}

	if rec[4] != "" {
		batchYear, err := strconv.Atoi(rec[4])
		if err != nil {
			return row, errors.New("invalid batch_year")
		}
		row.BatchYear = batchYear
	}

	if rec[5] != "" {
		issued, err := time.Parse("2006-01-02", rec[5])
		if err != nil {
			return row, errors.New("invalid issued_date (expected YYYY-MM-DD)")
		}
		row.IssuedDate = &issued
	}

	return row, nil
}
