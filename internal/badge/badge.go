// Package badge renders shareable verification badges as PNG images: the
// credential summary, a confidence-colored band and a QR code pointing at the
// public verification page.
package badge

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	badgeWidth  = 640
	badgeHeight = 360

	bandWidth = 12
	qrSize    = 160
	margin    = 32
)

// Info describes a badge to render.
type Info struct {
	// Credential title. E.g., "B.Tech Computer Science"
	Title string
	// Holder name. E.g., "A. Student"
	Holder string
	// Issuing institution. E.g., "Anna University"
	Issuer string
	// Status line. E.g., "Verified"
	Status string
	// Match confidence in [0, 1]; drives the band color from red to green.
	Confidence float64
	// Public verification URL encoded into the QR code.
	URL string
}

// Render draws the badge and returns it as PNG bytes.
func Render(info Info) ([]byte, error) {
	fnt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse badge font: %w", err)
	}
	titleFace := truetype.NewFace(fnt, &truetype.Options{Size: 28, DPI: 72})
	bodyFace := truetype.NewFace(fnt, &truetype.Options{Size: 18, DPI: 72})
	statusFace := truetype.NewFace(fnt, &truetype.Options{Size: 22, DPI: 72})

	dc := gg.NewContext(badgeWidth, badgeHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetColor(confidenceColor(info.Confidence))
	dc.DrawRectangle(0, 0, bandWidth, badgeHeight)
	dc.Fill()

	textLeft := float64(bandWidth + margin)

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetFontFace(titleFace)
	dc.DrawString(info.Title, textLeft, 72)

	dc.SetFontFace(bodyFace)
	dc.SetRGB(0.25, 0.25, 0.25)
	dc.DrawString(info.Holder, textLeft, 116)
	dc.DrawString(info.Issuer, textLeft, 148)

	dc.SetFontFace(statusFace)
	dc.SetColor(confidenceColor(info.Confidence))
	dc.DrawString(info.Status, textLeft, badgeHeight-margin-8)

	if info.URL != "" {
		qrPNG, err := qrcode.Encode(info.URL, qrcode.Medium, qrSize)
		if err != nil {
			return nil, fmt.Errorf("failed to encode badge QR: %w", err)
		}
		qrImage, err := png.Decode(bytes.NewReader(qrPNG))
		if err != nil {
			return nil, fmt.Errorf("failed to decode badge QR: %w", err)
		}
		dc.DrawImage(qrImage, badgeWidth-qrSize-margin, (badgeHeight-qrSize)/2)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode badge: %w", err)
	}
	return buf.Bytes(), nil
}

// confidenceColor maps a [0, 1] confidence onto a red-to-green hue ramp.
func confidenceColor(confidence float64) colorful.Color {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return colorful.Hsv(120*confidence, 0.82, 0.78)
}
