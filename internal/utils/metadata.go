package utils

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MediaMetadata holds technical details about media content
type MediaMetadata struct {
	MimeType    string      `json:"mime_type"`
	Extension   string      `json:"extension"`
	Size        int64       `json:"size"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
	Orientation string      `json:"orientation,omitempty"`
}

// Dimensions holds width and height information
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SniffMimeType determines the MIME type from the content bytes
func SniffMimeType(content []byte) string {
	return mimetype.Detect(content).String()
}

// SniffExtension returns the extension (with its dot) matching the content,
// or "" for unrecognized content.
func SniffExtension(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	return mimetype.Detect(content).Extension()
}

// IsImage reports whether content sniffs as an image.
func IsImage(content []byte) bool {
	return strings.HasPrefix(SniffMimeType(content), "image/")
}

// ExtractMetadata sniffs content and, for decodable images, reads the
// dimensions from the header only.
func ExtractMetadata(content []byte) *MediaMetadata {
	m := mimetype.Detect(content)
	metadata := &MediaMetadata{
		MimeType:  m.String(),
		Extension: m.Extension(),
		Size:      int64(len(content)),
	}

	if !strings.HasPrefix(metadata.MimeType, "image/") {
		return metadata
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return metadata
	}
	metadata.Dimensions = &Dimensions{Width: cfg.Width, Height: cfg.Height}
	switch {
	case cfg.Width > cfg.Height:
		metadata.Orientation = "landscape"
	case cfg.Width < cfg.Height:
		metadata.Orientation = "portrait"
	default:
		metadata.Orientation = "square"
	}
	return metadata
}
