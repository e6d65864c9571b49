// Command ocr sends a single remote image URL to the Cloud Vision text
// detection endpoint and prints the detected text. Credentials come from a
// vision-api.json key file next to the binary.
//
// Usage: ocr [image-url]
package main

import (
	"context"
	"os"

	gcvision "cloud.google.com/go/vision/apiv1"
	"github.com/ridge/must/v2"

	"github.com/CodeEzard/vericred/internal/credentials"
	"github.com/CodeEzard/vericred/internal/vision"
)

const defaultImageURL = "https://images.besttemplates.com/wp-content/uploads/2024/06/Certificate8.jpg"

func main() {
	imageURL := defaultImageURL
	if len(os.Args) > 1 {
		imageURL = os.Args[1]
	}

	ctx := context.Background()
	opts := must.OK1(credentials.ClientOptions())
	client := must.OK1(gcvision.NewImageAnnotatorClient(ctx, opts...))
	defer client.Close()

	annotations := must.OK1(vision.DetectText(ctx, client, vision.ImageFromURI(imageURL)))
	must.OK(vision.WriteReport(os.Stdout, annotations))
}
