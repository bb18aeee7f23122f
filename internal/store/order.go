package store

import (
	"context"
	"fmt"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
)

// OrderChildren sets rank = index for every id of ids, which must be a
// permutation of the current children of album (nil for the root). Nothing
// is written when the sets differ.
func (s *Store) OrderChildren(ctx context.Context, album *models.Item, ids []uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		children, err := tx.Children(ctx, album, nil)
		if err != nil {
			return err
		}

		current := make(map[uint]bool, len(children))
		for _, child := range children {
			current[child.ID] = true
		}
		if len(ids) != len(current) {
			return apperr.Validation("expected %d children, got %d ids", len(current), len(ids))
		}
		given := make(map[uint]bool, len(ids))
		for _, id := range ids {
			if !current[id] {
				return apperr.Validation("item %d is not a child of this album", id)
			}
			if given[id] {
				return apperr.Validation("item %d is listed twice", id)
			}
			given[id] = true
		}

		for rank, id := range ids {
			err := tx.conn(ctx).Model(&models.Item{}).Where("id = ?", id).UpdateColumn("item_rank", rank).Error
			if err != nil {
				return fmt.Errorf("failed to rank item %d: %w", id, err)
			}
		}
		return nil
	})
}
