package models

import (
	"go-album-center/internal/processor"
)

// Derivative is a recipe of image operations applied to its media's content.
// Ids are scoped per media and drawn from Item.DerivativeSeq.
type Derivative struct {
	MediaID    uint                  `gorm:"primaryKey;autoIncrement:false" json:"media_id"`
	ID         uint                  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Operations processor.Operations `gorm:"type:text;not null" json:"operations"`
}

func (Derivative) TableName() string {
	return "derivatives"
}

// NewDerivative validates ops and builds an unsaved derivative of media.
func NewDerivative(mediaID uint, ops processor.Operations) (*Derivative, error) {
	if err := ops.Validate(); err != nil {
		return nil, err
	}
	if ops == nil {
		ops = processor.Operations{}
	}
	return &Derivative{MediaID: mediaID, Operations: ops}, nil
}

// DerivativeFields is the update whitelist of derivatives.
var DerivativeFields = []string{"operations"}
