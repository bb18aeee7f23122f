// Package service sequences store writes, blob writes and change
// notifications for the album tree.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/processor"
	"go-album-center/internal/storage"
	"go-album-center/internal/store"
	"go-album-center/internal/utils"
	"go-album-center/internal/websocket"
)

// Notifier receives committed changes.
type Notifier interface {
	Notify(websocket.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(websocket.Notification) {}

type Options struct {
	MaxUploadSize int64
}

type Library struct {
	store    *store.Store
	blobs    storage.Blob
	notifier Notifier
	opts     Options
	log      zerolog.Logger
}

func NewLibrary(st *store.Store, blobs storage.Blob, notifier Notifier, opts Options, log zerolog.Logger) *Library {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Library{store: st, blobs: blobs, notifier: notifier, opts: opts, log: log}
}

func (l *Library) Store() *store.Store { return l.store }

func (l *Library) Ping(ctx context.Context) error { return l.store.Ping(ctx) }

// MediaInput carries the fields of a media creation request.
type MediaInput struct {
	Name     string
	Author   string
	Keywords []string
	Filename string
	ParentID *uint
	Content  []byte
}

// Lookup loads an item the caller may see. Hidden and absent items are
// both reported as not found.
func (l *Library) Lookup(ctx context.Context, kind models.Kind, id uint, authorized bool) (*models.Item, error) {
	it, ok, err := l.store.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("%s %d", kindName(kind), id)
	}
	visible, err := l.store.Visible(ctx, it, authorized)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperr.NotFound("%s %d", kindName(kind), id)
	}
	return it, nil
}

func (l *Library) CreateAlbum(ctx context.Context, name string, parentID *uint) (*models.Item, error) {
	album, err := models.NewAlbum(name, parentID)
	if err != nil {
		return nil, err
	}
	if err := l.store.Create(ctx, album); err != nil {
		return nil, err
	}
	l.notify(websocket.Created, album)
	return album, nil
}

// CreateMedia inserts the record and writes its content in one transaction.
// A failed blob write rolls the record back; a failed commit removes the
// blob again.
func (l *Library) CreateMedia(ctx context.Context, in MediaInput) (*models.Item, error) {
	if err := l.checkSize(in.Content); err != nil {
		return nil, err
	}
	media, err := models.NewMedia(in.Name, in.Author, in.Keywords, in.Filename, in.ParentID, in.Content)
	if err != nil {
		return nil, err
	}

	written := false
	err = l.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Create(ctx, media); err != nil {
			return err
		}
		if err := l.blobs.Write(ctx, media.ID, in.Content); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		if written {
			if derr := l.blobs.Delete(context.WithoutCancel(ctx), media.ID); derr != nil {
				l.log.Error().Err(derr).Uint("media_id", media.ID).Msg("failed to remove orphaned blob")
			}
		}
		return nil, err
	}

	l.logContent(media, in.Content).Msg("media created")
	l.notify(websocket.Created, media)
	return media, nil
}

// UpdateItem applies whitelisted fields, moving the item when parent_id
// changes.
func (l *Library) UpdateItem(ctx context.Context, it *models.Item, fields map[string]any) error {
	if err := l.store.Update(ctx, it, fields); err != nil {
		return err
	}
	l.notify(websocket.Updated, it)
	return nil
}

// DeleteItem deletes it with all its descendants, derivatives and blobs.
// A blob that cannot be removed rolls the database deletion back and the
// blobs already removed are written again.
func (l *Library) DeleteItem(ctx context.Context, it *models.Item) error {
	released := map[uint][]byte{}
	deleted, err := l.store.DeleteTree(ctx, it, func(media *models.Item) error {
		data, err := l.blobs.Read(ctx, media.ID)
		if err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			return err
		}
		if err := l.blobs.Delete(ctx, media.ID); err != nil {
			return err
		}
		if data != nil {
			released[media.ID] = data
		}
		return nil
	})
	if err != nil {
		for id, data := range released {
			if rerr := l.blobs.Write(context.WithoutCancel(ctx), id, data); rerr != nil {
				l.log.Error().Err(rerr).Uint("media_id", id).Msg("failed to restore content")
			}
		}
		return err
	}
	for i := range deleted {
		l.notify(websocket.Deleted, &deleted[i])
	}
	return nil
}

// Children pages through the filtered children of album.
func (l *Library) Children(ctx context.Context, album *models.Item, statuses []models.Status, offset, limit int) ([]models.Item, int64, error) {
	return l.store.ChildrenPage(ctx, album, statuses, offset, limit)
}

// Reorder ranks the children of album (the root when toplevel) by ids.
func (l *Library) Reorder(ctx context.Context, album *models.Item, ids []uint) error {
	if err := l.store.OrderChildren(ctx, album, ids); err != nil {
		return err
	}
	l.notifier.Notify(websocket.Notification{Type: websocket.Reordered, Kind: string(models.KindAlbum), ID: album.ID})
	return nil
}

// Path returns the filesystem-safe path segments of it.
func (l *Library) Path(ctx context.Context, it *models.Item) ([]string, error) {
	return l.store.Path(ctx, it)
}

// MediaPage lists the media visible to the caller ordered by id.
func (l *Library) MediaPage(ctx context.Context, authorized bool, offset, limit int) ([]models.Item, int, error) {
	items, err := l.store.Items(ctx, models.KindMedia)
	if err != nil {
		return nil, 0, err
	}
	if !authorized {
		index, err := l.store.VisibilityIndex(ctx)
		if err != nil {
			return nil, 0, err
		}
		visible := items[:0]
		for _, it := range items {
			if index[it.ID] {
				visible = append(visible, it)
			}
		}
		items = visible
	}

	total := len(items)
	begin := min(offset, total)
	end := total
	if limit >= 0 {
		end = min(begin+limit, total)
	}
	return items[begin:end], total, nil
}

// Content returns the media bytes.
func (l *Library) Content(ctx context.Context, media *models.Item) ([]byte, error) {
	data, err := l.blobs.Read(ctx, media.ID)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, apperr.NotFound("content of media %d", media.ID)
	}
	return data, err
}

// ReplaceContent overwrites the media bytes and stamps modified_at. The
// previous bytes are restored if the record cannot be updated.
func (l *Library) ReplaceContent(ctx context.Context, media *models.Item, data []byte) error {
	if err := l.checkSize(data); err != nil {
		return err
	}
	previous, err := l.blobs.Read(ctx, media.ID)
	if err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		return err
	}

	if err := l.blobs.Write(ctx, media.ID, data); err != nil {
		return err
	}
	if err := l.store.Touch(ctx, media); err != nil {
		if previous != nil {
			if rerr := l.blobs.Write(context.WithoutCancel(ctx), media.ID, previous); rerr != nil {
				l.log.Error().Err(rerr).Uint("media_id", media.ID).Msg("failed to restore previous content")
			}
		}
		return err
	}

	l.logContent(media, data).Msg("media content replaced")
	l.notifier.Notify(websocket.Notification{Type: websocket.Replaced, Kind: string(models.KindMedia), ID: media.ID})
	return nil
}

func (l *Library) CreateDerivative(ctx context.Context, media *models.Item, ops processor.Operations) (*models.Derivative, error) {
	d, err := l.store.CreateDerivative(ctx, media, ops)
	if err != nil {
		return nil, err
	}
	l.notifyDerivative(websocket.Created, d)
	return d, nil
}

// Derivative loads a derivative of media.
func (l *Library) Derivative(ctx context.Context, media *models.Item, id uint) (*models.Derivative, error) {
	d, ok, err := l.store.GetDerivative(ctx, media.ID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("derivative %d of media %d", id, media.ID)
	}
	return d, nil
}

func (l *Library) Derivatives(ctx context.Context, media *models.Item, offset, limit int) ([]models.Derivative, int64, error) {
	return l.store.Derivatives(ctx, media.ID, offset, limit)
}

func (l *Library) UpdateDerivative(ctx context.Context, d *models.Derivative, ops processor.Operations) error {
	if err := l.store.UpdateDerivative(ctx, d, ops); err != nil {
		return err
	}
	l.notifyDerivative(websocket.Updated, d)
	return nil
}

func (l *Library) DeleteDerivative(ctx context.Context, d *models.Derivative) error {
	if err := l.store.DeleteDerivative(ctx, d); err != nil {
		return err
	}
	l.notifyDerivative(websocket.Deleted, d)
	return nil
}

// Render applies the derivative to its media content and returns the
// encoded image with its MIME type.
func (l *Library) Render(ctx context.Context, media *models.Item, d *models.Derivative) ([]byte, string, error) {
	src, err := l.Content(ctx, media)
	if err != nil {
		return nil, "", err
	}
	if !utils.IsImage(src) {
		return nil, "", apperr.Validation("content of media %d is not an image", media.ID)
	}
	out, format, err := processor.Render(src, d.Operations)
	if err != nil {
		return nil, "", fmt.Errorf("render derivative %d of media %d: %w", d.ID, media.ID, err)
	}
	return out, "image/" + format, nil
}

func (l *Library) checkSize(content []byte) error {
	if len(content) == 0 {
		return apperr.Validation("content must not be empty")
	}
	if l.opts.MaxUploadSize > 0 && int64(len(content)) > l.opts.MaxUploadSize {
		return apperr.Validation("content exceeds %d bytes", l.opts.MaxUploadSize)
	}
	return nil
}

func (l *Library) logContent(media *models.Item, content []byte) *zerolog.Event {
	meta := utils.ExtractMetadata(content)
	event := l.log.Debug().Uint("media_id", media.ID).Str("mime", meta.MimeType).Int64("size", meta.Size)
	if meta.Dimensions != nil {
		event = event.Int("width", meta.Dimensions.Width).Int("height", meta.Dimensions.Height)
	}
	return event
}

func (l *Library) notify(t websocket.NotificationType, it *models.Item) {
	l.notifier.Notify(websocket.Notification{Type: t, Kind: string(it.Type), ID: it.ID})
}

func (l *Library) notifyDerivative(t websocket.NotificationType, d *models.Derivative) {
	l.notifier.Notify(websocket.Notification{Type: t, Kind: "derivative", ID: d.ID, MediaID: d.MediaID})
}

func kindName(kind models.Kind) string {
	if kind == "" {
		return "item"
	}
	return string(kind)
}
