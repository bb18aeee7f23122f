package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
)

// ordered sorts siblings by rank, ties broken by id.
func ordered(q *gorm.DB) *gorm.DB {
	return q.Order("item_rank ASC").Order("id ASC")
}

func childrenOf(q *gorm.DB, parentID *uint, statuses []models.Status) *gorm.DB {
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if statuses != nil {
		q = q.Where("status IN ?", statuses)
	}
	return q
}

func (s *Store) countChildren(ctx context.Context, parentID *uint, statuses []models.Status) (int64, error) {
	var n int64
	err := childrenOf(s.conn(ctx).Model(&models.Item{}), parentID, statuses).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return n, nil
}

// checkParent requires parentID to be nil or an existing album.
func (s *Store) checkParent(ctx context.Context, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	parent, ok, err := s.Get(ctx, "", *parentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("parent %d does not exist", *parentID)
	}
	if !parent.IsAlbum() {
		return apperr.Validation("parent %d is not an album", *parentID)
	}
	return nil
}

// checkMove validates the new parent of it: an album that is neither it nor
// one of its descendants.
func (s *Store) checkMove(ctx context.Context, it *models.Item) error {
	if err := s.checkParent(ctx, it.ParentID); err != nil {
		return err
	}
	if it.ParentID == nil {
		return nil
	}
	if *it.ParentID == it.ID {
		return apperr.Validation("item %d cannot be its own parent", it.ID)
	}

	parent, _, err := s.Get(ctx, "", *it.ParentID)
	if err != nil {
		return err
	}
	ancestors, err := s.Parents(ctx, parent)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.ID == it.ID {
			return apperr.Validation("item %d cannot be moved into its own descendant %d", it.ID, parent.ID)
		}
	}
	return nil
}

// Parent returns nil for root-level items. A dangling parent_id is an
// integrity error.
func (s *Store) Parent(ctx context.Context, it *models.Item) (*models.Item, error) {
	if it.ParentID == nil {
		return nil, nil
	}
	parent, ok, err := s.Get(ctx, "", *it.ParentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Integrity("item %d references missing parent %d", it.ID, *it.ParentID)
	}
	return parent, nil
}

// Parents returns the ancestor chain, root-most first.
func (s *Store) Parents(ctx context.Context, it *models.Item) ([]*models.Item, error) {
	var chain []*models.Item
	seen := map[uint]bool{it.ID: true}
	current := it
	for {
		parent, err := s.Parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		if seen[parent.ID] {
			return nil, apperr.Integrity("cycle through item %d", parent.ID)
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children lists the children of album (nil for the root) whose status is
// in statuses, by rank. A nil statuses slice disables the filter.
func (s *Store) Children(ctx context.Context, album *models.Item, statuses []models.Status) ([]models.Item, error) {
	items, _, err := s.ChildrenPage(ctx, album, statuses, 0, -1)
	return items, err
}

// ChildrenPage is Children restricted to [offset, offset+limit), with the
// filtered total.
func (s *Store) ChildrenPage(ctx context.Context, album *models.Item, statuses []models.Status, offset, limit int) ([]models.Item, int64, error) {
	parentID := parentRef(album)
	count, err := s.countChildren(ctx, parentID, statuses)
	if err != nil {
		return nil, 0, err
	}

	var items []models.Item
	q := ordered(childrenOf(s.conn(ctx), parentID, statuses)).Offset(offset).Limit(limit)
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list children: %w", err)
	}
	return items, count, nil
}

// Visible applies the anonymous visibility rule: the item and all its
// ancestors must be published. Authorized callers see everything.
func (s *Store) Visible(ctx context.Context, it *models.Item, authorized bool) (bool, error) {
	if authorized || it.IsToplevel() {
		return true, nil
	}
	if !it.Published() {
		return false, nil
	}
	ancestors, err := s.Parents(ctx, it)
	if err != nil {
		return false, err
	}
	for _, a := range ancestors {
		if !a.Published() {
			return false, nil
		}
	}
	return true, nil
}

// VisibilityIndex computes the anonymous visibility of every item with a
// single query.
func (s *Store) VisibilityIndex(ctx context.Context) (map[uint]bool, error) {
	items, err := s.Items(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	visible := make(map[uint]bool, len(items))
	var resolve func(id uint, depth int) (bool, error)
	resolve = func(id uint, depth int) (bool, error) {
		if v, ok := visible[id]; ok {
			return v, nil
		}
		it, ok := byID[id]
		if !ok {
			return false, apperr.Integrity("missing item %d", id)
		}
		if depth > len(items) {
			return false, apperr.Integrity("cycle through item %d", id)
		}
		v := it.Published()
		if v && it.ParentID != nil {
			pv, err := resolve(*it.ParentID, depth+1)
			if err != nil {
				return false, err
			}
			v = pv
		}
		visible[id] = v
		return v, nil
	}
	for _, it := range items {
		if _, err := resolve(it.ID, 0); err != nil {
			return nil, err
		}
	}
	return visible, nil
}

// Path returns the filesystem-safe segments of the ancestors and the item.
func (s *Store) Path(ctx context.Context, it *models.Item) ([]string, error) {
	if it.IsToplevel() {
		return []string{}, nil
	}
	ancestors, err := s.Parents(ctx, it)
	if err != nil {
		return nil, err
	}
	path := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		path = append(path, models.FilesystemName(a.Name))
	}
	return append(path, models.FilesystemName(it.Name)), nil
}

// Descendants returns every item below album, parents before children.
func (s *Store) Descendants(ctx context.Context, album *models.Item) ([]models.Item, error) {
	var out []models.Item
	queue := []*uint{parentRef(album)}
	seen := map[uint]bool{}
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		var children []models.Item
		if err := ordered(childrenOf(s.conn(ctx), parentID, nil)).Find(&children).Error; err != nil {
			return nil, fmt.Errorf("failed to list descendants: %w", err)
		}
		for _, child := range children {
			if seen[child.ID] {
				return nil, apperr.Integrity("cycle through item %d", child.ID)
			}
			seen[child.ID] = true
			out = append(out, child)
			if child.IsAlbum() {
				id := child.ID
				queue = append(queue, &id)
			}
		}
	}
	return out, nil
}

func parentRef(album *models.Item) *uint {
	if album == nil || album.IsToplevel() {
		return nil
	}
	id := album.ID
	return &id
}
