package processor

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"go-album-center/internal/apperr"
)

// Value is an operation parameter: a plain number (pixels, degrees) or a
// percentage string such as "25%". Base64 payloads are carried verbatim.
type Value string

// Params maps parameter names onto values.
type Params map[string]Value

// Pixels returns a plain numeric Value.
func Pixels(v float64) Value {
	return Value(strconv.FormatFloat(v, 'f', -1, 64))
}

// Percent returns a percentage Value.
func Percent(v float64) Value {
	return Value(strconv.FormatFloat(v, 'f', -1, 64) + "%")
}

// IsPercent reports whether v is a percentage.
func (v Value) IsPercent() bool {
	return strings.HasSuffix(strings.TrimSpace(string(v)), "%")
}

// MarshalJSON emits numbers as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if f, ok := parseFinite(string(v)); ok {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(v))
}

// UnmarshalJSON accepts a JSON number or a JSON string.
func (v *Value) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}

	f, ok := parseFinite(string(data))
	if !ok {
		return apperr.Validation("parameter must be a number or a string, got %s", string(data))
	}
	*v = Pixels(f)
	return nil
}

// Resolve turns v into a pixel count. Percentages are taken of reference and
// floored; plain numbers are truncated.
func (v Value) Resolve(reference int) (int, error) {
	s := strings.TrimSpace(string(v))
	if strings.HasSuffix(s, "%") {
		f, ok := parseFinite(strings.TrimSuffix(s, "%"))
		if !ok {
			return 0, apperr.Validation("invalid percentage %q", string(v))
		}
		return int(math.Floor(f / 100 * float64(reference))), nil
	}

	f, ok := parseFinite(s)
	if !ok {
		return 0, apperr.Validation("invalid value %q", string(v))
	}
	return int(f), nil
}

// Float parses v as a plain number; percentages are rejected.
func (v Value) Float() (float64, error) {
	f, ok := parseFinite(strings.TrimSpace(string(v)))
	if !ok {
		return 0, apperr.Validation("invalid number %q", string(v))
	}
	return f, nil
}

func parseFinite(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
