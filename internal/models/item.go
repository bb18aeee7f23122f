package models

import (
	"time"

	"go-album-center/internal/apperr"
)

// Kind discriminates the item variants stored in the items table.
type Kind string

const (
	KindAlbum Kind = "album"
	KindMedia Kind = "media"
)

// Status controls visibility to anonymous callers.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPublished, StatusArchived}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPublished, StatusArchived:
		return Status(s), nil
	}
	return "", apperr.Validation("invalid status %q", s)
}

// Item is a node of the album tree. Albums and media share the table; the
// media payload is empty for albums.
type Item struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	Type       Kind       `gorm:"size:16;not null;index" json:"type"`
	Name       string     `gorm:"not null" json:"name"`
	Rank       int        `gorm:"column:item_rank;not null;default:0" json:"rank"`
	ParentID   *uint      `gorm:"index" json:"parent_id"`
	Status     Status     `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at"`

	MediaInfo `gorm:"embedded"`
}

// MediaInfo holds the media-only columns.
type MediaInfo struct {
	Author        string   `gorm:"size:255" json:"author,omitempty"`
	Keywords      Keywords `gorm:"type:text" json:"keywords,omitempty"`
	Filename      string   `gorm:"size:255" json:"filename,omitempty"`
	DerivativeSeq uint     `gorm:"not null;default:0" json:"-"`
}

func (Item) TableName() string {
	return "items"
}

// Toplevel returns the synthetic root album. It is never persisted and its
// zero ID is the root sentinel.
func Toplevel() *Item {
	return &Item{Type: KindAlbum, Name: "root", Status: StatusPublished}
}

// IsToplevel reports whether it is the synthetic root.
func (it *Item) IsToplevel() bool {
	return it.ID == 0
}

func (it *Item) IsAlbum() bool { return it.Type == KindAlbum }

func (it *Item) IsMedia() bool { return it.Type == KindMedia }

// Published reports the item's own status, ignoring ancestors.
func (it *Item) Published() bool {
	return it.Status == StatusPublished
}

// NewAlbum builds an unsaved album.
func NewAlbum(name string, parentID *uint) (*Item, error) {
	it := &Item{Type: KindAlbum, Name: name, ParentID: parentID, Status: StatusPublished}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	return it, nil
}

// NewMedia builds an unsaved media. An empty filename is derived from the
// name and the content; an explicit one is folded onto a single safe path
// segment.
func NewMedia(name, author string, keywords []string, filename string, parentID *uint, content []byte) (*Item, error) {
	if filename == "" {
		filename = DeriveFilename(name, content)
	} else {
		filename = FilesystemName(filename)
	}
	it := &Item{
		Type:     KindMedia,
		Name:     name,
		ParentID: parentID,
		Status:   StatusPublished,
		MediaInfo: MediaInfo{
			Author:   author,
			Keywords: Keywords(keywords),
			Filename: filename,
		},
	}
	if it.Keywords == nil {
		it.Keywords = Keywords{}
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	return it, nil
}

// Validate checks the invariants of the item's kind.
func (it *Item) Validate() error {
	b, err := it.Type.behavior()
	if err != nil {
		return err
	}
	if it.Name == "" {
		return apperr.Validation("name must not be empty")
	}
	if _, err := ParseStatus(string(it.Status)); err != nil {
		return err
	}
	return b.validate(it)
}

// Apply sets the given fields, which must all belong to the kind's update
// whitelist. Values are JSON-decoded (numbers as float64).
func (it *Item) Apply(fields map[string]any) error {
	b, err := it.Type.behavior()
	if err != nil {
		return err
	}
	allowed := b.updateFields()
	for name := range fields {
		if !contains(allowed, name) {
			return apperr.Validation("field %q cannot be updated on %s", name, it.Type)
		}
	}
	for name, value := range fields {
		if err := applyCommon(it, name, value); err != errUnknownField {
			if err != nil {
				return err
			}
			continue
		}
		if err := b.apply(it, name, value); err != nil {
			return err
		}
	}
	return it.Validate()
}

// CheckFields checks a request body's field names: full requires the exact
// update whitelist, otherwise any subset is accepted.
func (k Kind) CheckFields(fields map[string]any, full bool) error {
	b, err := k.behavior()
	if err != nil {
		return err
	}
	allowed := b.updateFields()
	for name := range fields {
		if !contains(allowed, name) {
			return apperr.Validation("field %q cannot be updated on %s", name, k)
		}
	}
	if full {
		for _, name := range allowed {
			if _, ok := fields[name]; !ok {
				return apperr.Validation("missing field %q", name)
			}
		}
	}
	return nil
}

// UpdateFields is the kind's update whitelist.
func (k Kind) UpdateFields() []string {
	b, err := k.behavior()
	if err != nil {
		return nil
	}
	return b.updateFields()
}

// CreateFields lists the fields required to create an item of the kind.
func (k Kind) CreateFields() []string {
	b, err := k.behavior()
	if err != nil {
		return nil
	}
	return b.createFields()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
