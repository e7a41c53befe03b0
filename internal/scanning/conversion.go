package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"slices"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedImage is returned for uploads that are not a PDF or a decodable image
var ErrUnsupportedImage = errors.New("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF)")

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
	pdfMagic = []byte("%PDF-")
)

var heicBrands = []string{"heic", "heix", "heif", "mif1", "msf1"}

// toPNG converts an upload to the PNG every vision model accepts. PDFs are
// rendered from their first page. A PDF or HEIC signature wins over the
// declared content type; data declared as PNG is passed through.
func toPNG(data []byte, contentType string) ([]byte, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case bytes.HasPrefix(data, pngMagic):
		return data, nil
	case bytes.HasPrefix(data, pdfMagic) || contentType == "application/pdf":
		return renderPDF(data)
	case isHEIC(data) || strings.Contains(contentType, "heic") || strings.Contains(contentType, "heif"):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return encodePNG(img)
	case contentType == "image/png":
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return encodePNG(img)
}

// renderPDF rasterizes the first page; receipts are nearly always one page
func renderPDF(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC checks for an ISO BMFF ftyp box with a HEIF family brand
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	return slices.Contains(heicBrands, string(data[8:12]))
}
