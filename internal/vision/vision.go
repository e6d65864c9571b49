// Package vision wraps the Cloud Vision text detection call used for OCR.
package vision

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
)

// Client is the subset of vision.ImageAnnotatorClient used for OCR.
// Ref: https://pkg.go.dev/cloud.google.com/go/vision/apiv1
// The interface exists so tests can substitute a mock annotator.
type Client interface {
	DetectTexts(ctx context.Context, img *visionpb.Image, ictx *visionpb.ImageContext, maxResults int, opts ...gax.CallOption) ([]*visionpb.EntityAnnotation, error)
}

// ImageFromURI builds a Vision image referencing a remote URL. The image
// bytes are fetched by the service, not by this process.
func ImageFromURI(uri string) *visionpb.Image {
	return &visionpb.Image{
		Source: &visionpb.ImageSource{ImageUri: uri},
	}
}

// ImageFromBytes builds a Vision image carrying inline content.
func ImageFromBytes(content []byte) *visionpb.Image {
	return &visionpb.Image{Content: content}
}

// DetectText issues a single text detection request for the given image and
// returns the ordered annotation list. The first annotation, when present,
// holds the full detected text block; the rest are individual regions.
func DetectText(ctx context.Context, client Client, img *visionpb.Image) ([]*visionpb.EntityAnnotation, error) {
	return client.DetectTexts(ctx, img, nil, 10)
}

// FullText returns the description of the first annotation, or "" and false
// when the service found no text.
func FullText(annotations []*visionpb.EntityAnnotation) (string, bool) {
	if len(annotations) == 0 {
		return "", false
	}
	return annotations[0].GetDescription(), true
}

// WriteReport writes the detection result in the fixed report shape: a
// "Texts:" header line, followed by the full detected text when present.
// The header is written only once a result is known, so a failed detection
// produces no partial report.
func WriteReport(w io.Writer, annotations []*visionpb.EntityAnnotation) error {
	if _, err := fmt.Fprintln(w, "Texts:"); err != nil {
		return err
	}
	if text, ok := FullText(annotations); ok {
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}
