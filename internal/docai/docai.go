// Package docai extracts text from PDF documents through Document AI.
// Certificates arriving as PDFs cannot go through the Vision image path, so
// they are routed to an OCR processor instead.
package docai

import (
	"context"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	gax "github.com/googleapis/gax-go/v2"
)

// Client is the subset of documentai.DocumentProcessorClient used here.
// Ref: https://pkg.go.dev/cloud.google.com/go/documentai
// The interface exists so tests can substitute a mock processor.
type Client interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
}

// Spec identifies the Document AI processor to call.
type Spec struct {
	// E.g., vericred-prod
	ProjectID string
	// E.g., us
	Location string
	// E.g., 98dae69a95e1906
	ProcessorID string
}

// ProcessorName returns the fully qualified processor resource name.
func (s Spec) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", s.ProjectID, s.Location, s.ProcessorID)
}

// ExtractText runs the document through the OCR processor and returns the
// plain text of the whole document.
func ExtractText(ctx context.Context, client Client, spec Spec, content []byte, mimeType string) (string, error) {
	resp, err := client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: spec.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("document processing failed: %w", err)
	}
	return resp.GetDocument().GetText(), nil
}
