package models

import (
	"errors"
	"math"

	"go-album-center/internal/apperr"
)

type behavior interface {
	createFields() []string
	updateFields() []string
	apply(it *Item, field string, value any) error
	validate(it *Item) error
}

var behaviors = map[Kind]behavior{
	KindAlbum: albumBehavior{},
	KindMedia: mediaBehavior{},
}

var errUnknownField = errors.New("unknown field")

func (k Kind) behavior() (behavior, error) {
	b, ok := behaviors[k]
	if !ok {
		return nil, apperr.Validation("unknown item type %q", k)
	}
	return b, nil
}

type albumBehavior struct{}

func (albumBehavior) createFields() []string { return []string{"name"} }

func (albumBehavior) updateFields() []string { return []string{"name", "parent_id", "status"} }

func (albumBehavior) apply(_ *Item, field string, _ any) error {
	return apperr.Validation("field %q cannot be updated on album", field)
}

func (albumBehavior) validate(it *Item) error {
	if it.Author != "" || it.Filename != "" || len(it.Keywords) > 0 {
		return apperr.Validation("albums carry no media fields")
	}
	return nil
}

type mediaBehavior struct{}

func (mediaBehavior) createFields() []string {
	return []string{"name", "author", "content", "parent_id"}
}

func (mediaBehavior) updateFields() []string {
	return []string{"name", "author", "keywords", "parent_id", "status"}
}

func (mediaBehavior) apply(it *Item, field string, value any) error {
	switch field {
	case "author":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		it.Author = s
	case "keywords":
		kw, err := KeywordsFrom(value)
		if err != nil {
			return err
		}
		it.Keywords = kw
	default:
		return apperr.Validation("field %q cannot be updated on media", field)
	}
	return nil
}

func (mediaBehavior) validate(it *Item) error {
	if it.Author == "" {
		return apperr.Validation("author must not be empty")
	}
	if it.Filename == "" {
		return apperr.Validation("filename must not be empty")
	}
	return nil
}

func applyCommon(it *Item, field string, value any) error {
	switch field {
	case "name":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		it.Name = s
	case "status":
		s, err := stringValue(field, value)
		if err != nil {
			return err
		}
		status, err := ParseStatus(s)
		if err != nil {
			return err
		}
		it.Status = status
	case "parent_id":
		id, err := ParentIDFrom(value)
		if err != nil {
			return err
		}
		it.ParentID = id
	default:
		return errUnknownField
	}
	return nil
}

func stringValue(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", apperr.Validation("%s must be a string", field)
	}
	if s == "" {
		return "", apperr.Validation("%s must not be empty", field)
	}
	return s, nil
}

// ParentIDFrom converts a decoded JSON value into a parent reference. null
// means the root.
func ParentIDFrom(value any) (*uint, error) {
	var id uint
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *uint:
		return v, nil
	case uint:
		id = v
	case int:
		if v < 0 {
			return nil, apperr.Validation("parent_id must be a positive integer")
		}
		id = uint(v)
	case float64:
		if v < 0 || v != math.Trunc(v) || v > math.MaxUint32 {
			return nil, apperr.Validation("parent_id must be a positive integer")
		}
		id = uint(v)
	default:
		return nil, apperr.Validation("parent_id must be an integer or null")
	}
	if id == 0 {
		return nil, apperr.Validation("parent_id must be a positive integer")
	}
	return &id, nil
}
