package utils

import (
	"encoding/base64"
	"strconv"
	"strings"

	"go-album-center/internal/apperr"
)

// ParseID parses a positive integer path parameter. ok is false for anything
// else, which callers report as not found.
func ParseID(value string) (uint, bool) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// DecodeContent decodes base64 media content, accepting padded and unpadded
// input and an optional data URL prefix.
func DecodeContent(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, ";base64,"); i >= 0 && strings.HasPrefix(value, "data:") {
		value = value[i+len(";base64,"):]
	}
	if value == "" {
		return nil, apperr.Validation("content must not be empty")
	}

	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(value)
	}
	if err != nil {
		return nil, apperr.Validation("content is not valid base64")
	}
	return data, nil
}
