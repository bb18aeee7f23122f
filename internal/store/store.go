// Package store persists the album tree and media derivatives through gorm.
//
// Absence is never an error here: getters return (nil, false, nil) and the
// callers decide between a 404 and a silent skip.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/processor"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store stamping times with now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn against a store bound to a single transaction. Any
// error rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create validates and inserts it. The parent, if any, must be an existing
// album. The item is appended after its siblings.
func (s *Store) Create(ctx context.Context, it *models.Item) error {
	if it.ID != 0 {
		return apperr.Validation("item already has id %d", it.ID)
	}
	if it.Status == "" {
		it.Status = models.StatusPublished
	}
	if err := it.Validate(); err != nil {
		return err
	}

	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.checkParent(ctx, it.ParentID); err != nil {
			return err
		}
		rank, err := tx.countChildren(ctx, it.ParentID, nil)
		if err != nil {
			return err
		}
		it.Rank = int(rank)
		it.CreatedAt = tx.stamp()
		it.ModifiedAt = nil
		if err := tx.conn(ctx).Create(it).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", it.Type, err)
		}
		return nil
	})
}

// Get loads an item. An empty kind matches any type.
func (s *Store) Get(ctx context.Context, kind models.Kind, id uint) (*models.Item, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	q := s.conn(ctx).Where("id = ?", id)
	if kind != "" {
		q = q.Where("type = ?", kind)
	}

	var it models.Item
	err := q.Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load item %d: %w", id, err)
	}
	return &it, true, nil
}

// Update applies whitelisted fields, moving the item when parent_id changes,
// and stamps modified_at. it is left untouched on failure.
func (s *Store) Update(ctx context.Context, it *models.Item, fields map[string]any) error {
	updated := *it
	if err := updated.Apply(fields); err != nil {
		return err
	}

	err := s.Transaction(ctx, func(tx *Store) error {
		// The rank is owned by OrderChildren unless the item moves.
		omit := []string{"id", "created_at", "derivative_seq"}
		if sameParent(it.ParentID, updated.ParentID) {
			omit = append(omit, "item_rank")
		} else {
			if err := tx.checkMove(ctx, &updated); err != nil {
				return err
			}
			rank, err := tx.countChildren(ctx, updated.ParentID, nil)
			if err != nil {
				return err
			}
			updated.Rank = int(rank)
		}
		now := tx.stamp()
		updated.ModifiedAt = &now
		err := tx.conn(ctx).Model(&updated).
			Select("*").Omit(omit...).
			Updates(&updated).Error
		if err != nil {
			return fmt.Errorf("failed to update %s %d: %w", it.Type, it.ID, err)
		}
		err = tx.conn(ctx).Model(&models.Item{}).Select("item_rank").
			Where("id = ?", updated.ID).Scan(&updated.Rank).Error
		if err != nil {
			return fmt.Errorf("failed to reload rank of %s %d: %w", it.Type, it.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*it = updated
	return nil
}

// Touch stamps modified_at, used when only the media content changed.
func (s *Store) Touch(ctx context.Context, it *models.Item) error {
	now := s.stamp()
	err := s.conn(ctx).Model(&models.Item{}).Where("id = ?", it.ID).Update("modified_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to touch item %d: %w", it.ID, err)
	}
	it.ModifiedAt = &now
	return nil
}

// Delete removes the single record. Cascading is the caller's concern, see
// DeleteTree.
func (s *Store) Delete(ctx context.Context, it *models.Item) error {
	res := s.conn(ctx).Where("id = ?", it.ID).Delete(&models.Item{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete item %d: %w", it.ID, res.Error)
	}
	return nil
}

// Items lists every item of kind (any kind when empty) ordered by id.
func (s *Store) Items(ctx context.Context, kind models.Kind) ([]models.Item, error) {
	q := s.conn(ctx).Order("id ASC")
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// CreateDerivative draws the next per-media id and inserts the derivative.
func (s *Store) CreateDerivative(ctx context.Context, media *models.Item, ops processor.Operations) (*models.Derivative, error) {
	d, err := models.NewDerivative(media.ID, ops)
	if err != nil {
		return nil, err
	}

	err = s.Transaction(ctx, func(tx *Store) error {
		res := tx.conn(ctx).Model(&models.Item{}).
			Where("id = ? AND type = ?", media.ID, models.KindMedia).
			UpdateColumn("derivative_seq", gorm.Expr("derivative_seq + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("failed to allocate derivative id: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.NotFound("media %d", media.ID)
		}

		var seq models.Item
		if err := tx.conn(ctx).Select("derivative_seq").Where("id = ?", media.ID).Take(&seq).Error; err != nil {
			return fmt.Errorf("failed to read derivative id: %w", err)
		}
		d.ID = seq.DerivativeSeq
		if err := tx.conn(ctx).Create(d).Error; err != nil {
			return fmt.Errorf("failed to create derivative: %w", err)
		}
		media.DerivativeSeq = seq.DerivativeSeq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) GetDerivative(ctx context.Context, mediaID, id uint) (*models.Derivative, bool, error) {
	var d models.Derivative
	err := s.conn(ctx).Where("media_id = ? AND id = ?", mediaID, id).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load derivative %d/%d: %w", mediaID, id, err)
	}
	return &d, true, nil
}

// UpdateDerivative replaces the operations of d.
func (s *Store) UpdateDerivative(ctx context.Context, d *models.Derivative, ops processor.Operations) error {
	if err := ops.Validate(); err != nil {
		return err
	}
	if ops == nil {
		ops = processor.Operations{}
	}
	err := s.conn(ctx).Model(&models.Derivative{}).
		Where("media_id = ? AND id = ?", d.MediaID, d.ID).
		Update("operations", ops).Error
	if err != nil {
		return fmt.Errorf("failed to update derivative %d/%d: %w", d.MediaID, d.ID, err)
	}
	d.Operations = ops
	return nil
}

func (s *Store) DeleteDerivative(ctx context.Context, d *models.Derivative) error {
	err := s.conn(ctx).Where("media_id = ? AND id = ?", d.MediaID, d.ID).Delete(&models.Derivative{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete derivative %d/%d: %w", d.MediaID, d.ID, err)
	}
	return nil
}

// DeleteDerivatives removes every derivative of a media.
func (s *Store) DeleteDerivatives(ctx context.Context, mediaID uint) error {
	err := s.conn(ctx).Where("media_id = ?", mediaID).Delete(&models.Derivative{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete derivatives of %d: %w", mediaID, err)
	}
	return nil
}

// Derivatives lists a page of a media's derivatives ordered by id, and the
// total count. A negative limit returns everything.
func (s *Store) Derivatives(ctx context.Context, mediaID uint, offset, limit int) ([]models.Derivative, int64, error) {
	q := s.conn(ctx).Model(&models.Derivative{}).Where("media_id = ?", mediaID)
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count derivatives: %w", err)
	}

	var ds []models.Derivative
	err := s.conn(ctx).Where("media_id = ?", mediaID).Order("id ASC").
		Offset(offset).Limit(limit).Find(&ds).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list derivatives: %w", err)
	}
	return ds, count, nil
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
