package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// mediaKind classifies an upload for the conversion step
type mediaKind int

const (
	kindOther mediaKind = iota
	kindPNG
	kindPDF
	kindHEIC
)

func detectKind(data []byte, contentType string) mediaKind {
	mimeType := normalizeMIME(contentType)
	switch {
	case mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-")):
		return kindPDF
	case isHEIC(data) || strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif"):
		return kindHEIC
	case mimeType == "image/png":
		return kindPNG
	}
	return kindOther
}

// isHEIC checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func normalizeMIME(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// toPNG converts a photo or the first page of a PDF to PNG so every backend
// receives a single, well-supported image format. PNG input is returned as-is.
func toPNG(data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var img image.Image
	var err error
	switch detectKind(data, contentType) {
	case kindPNG:
		return data, nil
	case kindPDF:
		img, err = renderFirstPage(data)
	case kindHEIC:
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("%w: expected JPEG, PNG, GIF, HEIC or PDF: %v", ErrUnsupportedMedia, err)
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// renderFirstPage rasterizes page one of a PDF; sales sheets are single page
func renderFirstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// audioMIME maps browser recorder types onto what the model API accepts
func audioMIME(contentType string) (string, error) {
	mimeType := normalizeMIME(contentType)
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio/wav", nil
	case "audio/mpeg", "audio/mp3":
		return "audio/mp3", nil
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return "audio/aac", nil
	case "audio/ogg", "audio/webm", "audio/flac", "audio/aiff":
		return mimeType, nil
	}
	return "", fmt.Errorf("%w: audio type %q", ErrUnsupportedMedia, contentType)
}
