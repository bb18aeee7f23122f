package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"

	"go-album-center/internal/apperr"
)

// Keywords is an ordered list of tags stored as a JSON text column.
type Keywords []string

// KeywordsFrom converts a decoded JSON value. null yields an empty list.
func KeywordsFrom(value any) (Keywords, error) {
	switch v := value.(type) {
	case nil:
		return Keywords{}, nil
	case []string:
		return Keywords(v), nil
	case Keywords:
		return v, nil
	case []any:
		kw := make(Keywords, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.Validation("keywords must be strings")
			}
			kw = append(kw, s)
		}
		return kw, nil
	}
	return nil, apperr.Validation("keywords must be a list of strings")
}

// Value implements the driver.Valuer interface
func (k Keywords) Value() (driver.Value, error) {
	if k == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(k))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (k *Keywords) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*k = Keywords{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal keywords from %T", value)
	}

	var result []string
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	if result == nil {
		result = []string{}
	}
	*k = Keywords(result)
	return nil
}
