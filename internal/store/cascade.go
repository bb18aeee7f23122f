package store

import (
	"context"
	"fmt"

	"go-album-center/internal/models"
)

// DeleteTree deletes it and, for albums, every descendant bottom-up,
// together with the derivatives of each deleted media. onMedia runs for each
// deleted media inside the transaction; its error rolls everything back.
func (s *Store) DeleteTree(ctx context.Context, it *models.Item, onMedia func(*models.Item) error) ([]models.Item, error) {
	var deleted []models.Item
	err := s.Transaction(ctx, func(tx *Store) error {
		var victims []models.Item
		if it.IsAlbum() {
			descendants, err := tx.Descendants(ctx, it)
			if err != nil {
				return err
			}
			victims = descendants
		}
		victims = append([]models.Item{*it}, victims...)

		for i := len(victims) - 1; i >= 0; i-- {
			victim := &victims[i]
			if victim.IsMedia() {
				if err := tx.DeleteDerivatives(ctx, victim.ID); err != nil {
					return err
				}
			}
			if err := tx.Delete(ctx, victim); err != nil {
				return err
			}
		}

		if onMedia != nil {
			for i := len(victims) - 1; i >= 0; i-- {
				if !victims[i].IsMedia() {
					continue
				}
				if err := onMedia(&victims[i]); err != nil {
					return fmt.Errorf("failed to release media %d: %w", victims[i].ID, err)
				}
			}
		}
		deleted = victims
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
