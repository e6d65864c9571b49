// Package parse turns raw OCR text into a structured credential record by
// prompting a language model for JSON output.
package parse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/CodeEzard/vericred/internal/llm"
	"github.com/CodeEzard/vericred/internal/models"
)

const promptTemplate = `You are an expert data extraction assistant. Your job is to extract specific fields from the following raw text of an academic marksheet and return the data in a clean JSON format.

Here are the rules:
1. The required fields are: "register_number", "student_name", "course_name", "year_of_passing", and "university_name".
2. If a field cannot be found in the text, its value in the JSON must be null.
3. Your entire response must be ONLY the JSON object. Do not include any explanations, apologies, or any text before or after the JSON.
4. Clean the extracted data by removing any unnecessary newline characters or extra whitespace.

Here is the raw text:
"""
%s
"""`

// Parser extracts credential fields from OCR text.
type Parser struct {
	llm             llm.Client
	backoffDuration time.Duration
}

// New returns a Parser. Failed model calls are retried up to 4 times with a
// constant delay of backoffDuration between attempts.
func New(client llm.Client, backoffDuration time.Duration) *Parser {
	return &Parser{llm: client, backoffDuration: backoffDuration}
}

// Parse prompts the model and decodes its JSON answer. A result without a
// register number is treated as a failed extraction.
func (p *Parser) Parse(ctx context.Context, ocrText string) (models.ParsedCredential, error) {
	var out models.ParsedCredential

	prompt := fmt.Sprintf(promptTemplate, ocrText)
	raw, err := backoff.RetryWithData(func() (string, error) {
		return p.llm.Complete(ctx, prompt)
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.backoffDuration), 4), ctx))
	if err != nil {
		return out, fmt.Errorf("model extraction failed: %w", err)
	}

	jsonStr := stripCodeFences(raw)
	if candidate, ok := extractFirstJSON(jsonStr); ok {
		jsonStr = candidate
	}

	// Null field values are tolerated by decoding into a map first.
	var fields map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return out, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	out.RegisterNumber = stringField(fields, "register_number")
	out.StudentName = stringField(fields, "student_name")
	out.CourseName = stringField(fields, "course_name")
	out.YearOfPassing = stringField(fields, "year_of_passing")
	out.UniversityName = stringField(fields, "university_name")

	if out.RegisterNumber == "" {
		return out, errors.New("register number not found")
	}
	return out, nil
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		b, _ := json.Marshal(t)
		return strings.TrimSpace(string(b))
	}
}

// stripCodeFences removes surrounding Markdown code fences like ```json ... ```.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	// Remove a possible language tag at the start of the fence.
	if i := strings.IndexByte(s, '\n'); i != -1 {
		first := strings.TrimSpace(s[:i])
		if len(first) > 0 && len(first) < 20 && !strings.ContainsAny(first, "{[") {
			s = s[i+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractFirstJSON attempts to extract the first balanced JSON object or array.
func extractFirstJSON(s string) (string, bool) {
	if obj, ok := extractBalanced(s, '{', '}'); ok {
		return obj, true
	}
	if arr, ok := extractBalanced(s, '[', ']'); ok {
		return arr, true
	}
	return "", false
}

func extractBalanced(s string, open, close rune) (string, bool) {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
