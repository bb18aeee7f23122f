package processor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"

	"go-album-center/internal/apperr"
)

// MaxDimension bounds the size of any intermediate image.
const MaxDimension = 16384

func applyCrop(img image.Image, p Params) (image.Image, error) {
	b := img.Bounds()
	left, err := p["left"].Resolve(b.Dx())
	if err != nil {
		return nil, err
	}
	top, err := p["top"].Resolve(b.Dy())
	if err != nil {
		return nil, err
	}
	width, err := p["width"].Resolve(b.Dx())
	if err != nil {
		return nil, err
	}
	height, err := p["height"].Resolve(b.Dy())
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, apperr.Validation("crop size must be positive, got %dx%d", width, height)
	}

	rect := image.Rect(left, top, left+width, top+height).Add(b.Min)
	if !rect.Overlaps(b) {
		return nil, apperr.Validation("crop rectangle %v lies outside the image", rect)
	}
	return imaging.Crop(img, rect), nil
}

func applyResize(img image.Image, p Params) (image.Image, error) {
	b := img.Bounds()
	width, height := 0, 0
	var err error
	if v, ok := p["width"]; ok {
		if width, err = v.Resolve(b.Dx()); err != nil {
			return nil, err
		}
		if width <= 0 {
			return nil, apperr.Validation("width must be positive, got %d", width)
		}
	}
	if v, ok := p["height"]; ok {
		if height, err = v.Resolve(b.Dy()); err != nil {
			return nil, err
		}
		if height <= 0 {
			return nil, apperr.Validation("height must be positive, got %d", height)
		}
	}
	if width == 0 && height == 0 {
		return nil, apperr.Validation("one of width or height is required")
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, apperr.Validation("maximum allowed dimension is %d pixels", MaxDimension)
	}

	// A zero dimension tells imaging to keep the aspect ratio.
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

func applyRotate(img image.Image, p Params) (image.Image, error) {
	degrees, err := p["degrees"].Float()
	if err != nil {
		return nil, err
	}
	return imaging.Rotate(img, degrees, color.Transparent), nil
}

func applyExplicit(_ image.Image, p Params) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(string(p["data"]))
	if err != nil {
		return nil, apperr.Validation("data is not valid base64")
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("data is not a decodable image: %v", err)
	}
	return img, nil
}

// Decode reads an image and reports its format name ("jpeg", "png", "gif").
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperr.Validation("failed to decode image: %v", err)
	}
	return img, format, nil
}

// Render decodes src, runs ops on it and encodes the result in the source
// format, or PNG when that format cannot be written.
func Render(src []byte, ops Operations) ([]byte, string, error) {
	img, format, err := Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", err
	}
	if img, err = ops.Apply(img); err != nil {
		return nil, "", err
	}

	if format != "jpeg" && format != "gif" {
		format = "png"
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, 0); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), format, nil
}

// Encode writes img in the named format. Unknown formats fall back to PNG.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	var err error
	switch format {
	case "jpeg", "jpg":
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "gif":
		err = imaging.Encode(w, img, imaging.GIF)
	default:
		err = imaging.Encode(w, img, imaging.PNG)
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
