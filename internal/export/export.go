// Package export dumps the album tree as a catalog or as a directory of
// files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/service"
	"go-album-center/internal/utils"
)

// Entry is one catalog row.
type Entry struct {
	ID       uint          `json:"id"`
	Type     models.Kind   `json:"type"`
	Name     string        `json:"name"`
	Status   models.Status `json:"status"`
	ParentID *uint         `json:"parent_id"`
	Path     string        `json:"path"`
	Filename string        `json:"filename,omitempty"`

	segments []string
	item     models.Item
}

var csvHeader = []string{"id", "type", "name", "status", "parent_id", "path", "filename"}

type Exporter struct {
	lib *service.Library
	log zerolog.Logger
}

func New(lib *service.Library, log zerolog.Logger) *Exporter {
	return &Exporter{lib: lib, log: log}
}

// Catalog lists every item in tree order, parents first.
func (e *Exporter) Catalog(ctx context.Context) ([]Entry, error) {
	items, err := e.lib.Store().Descendants(ctx, models.Toplevel())
	if err != nil {
		return nil, err
	}

	paths := map[uint][]string{}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		var parent []string
		if it.ParentID != nil {
			parent = paths[*it.ParentID]
		}
		segments := append(append([]string{}, parent...), models.FilesystemName(it.Name))
		paths[it.ID] = segments

		entries = append(entries, Entry{
			ID:       it.ID,
			Type:     it.Type,
			Name:     it.Name,
			Status:   it.Status,
			ParentID: it.ParentID,
			Path:     strings.Join(segments, "/"),
			Filename: it.Filename,
			segments: segments,
			item:     it,
		})
	}
	return entries, nil
}

func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		parent := ""
		if e.ParentID != nil {
			parent = strconv.FormatUint(uint64(*e.ParentID), 10)
		}
		row := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			string(e.Type),
			e.Name,
			string(e.Status),
			parent,
			e.Path,
			e.Filename,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Stats counts what WriteDir wrote.
type Stats struct {
	Media       int
	Derivatives int
}

// WriteDir mirrors the tree under dir: media content at <path>/<filename>,
// rendered derivatives at <path>/<media>_<derivative><ext>, and a
// catalog.csv mapping ids onto the written files.
func (e *Exporter) WriteDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats
	entries, err := e.Catalog(ctx)
	if err != nil {
		return stats, err
	}

	var rows [][]string
	for _, entry := range entries {
		if entry.Type != models.KindMedia {
			continue
		}
		media := entry.item
		folder := path.Join(entry.segments[:len(entry.segments)-1]...)

		content, err := e.lib.Content(ctx, &media)
		if err != nil {
			return stats, fmt.Errorf("export media %d: %w", media.ID, err)
		}
		rel := path.Join(folder, media.Filename)
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return stats, apperr.Integrity("media %d: filename %q escapes the export directory", media.ID, media.Filename)
		}
		if _, err := utils.SaveFile(content, filepath.FromSlash(rel), dir); err != nil {
			return stats, fmt.Errorf("export media %d: %w", media.ID, err)
		}
		rows = append(rows, []string{strconv.FormatUint(uint64(media.ID), 10), rel})
		stats.Media++

		derivatives, _, err := e.lib.Derivatives(ctx, &media, 0, -1)
		if err != nil {
			return stats, err
		}
		for i := range derivatives {
			d := &derivatives[i]
			data, mime, err := e.lib.Render(ctx, &media, d)
			if err != nil {
				e.log.Warn().Err(err).Uint("media_id", media.ID).Uint("derivative_id", d.ID).Msg("skipping derivative")
				continue
			}
			name := fmt.Sprintf("%d_%d%s", media.ID, d.ID, extension(mime))
			drel := path.Join(folder, name)
			if _, err := utils.SaveFile(data, filepath.FromSlash(drel), dir); err != nil {
				return stats, fmt.Errorf("export derivative %d of media %d: %w", d.ID, media.ID, err)
			}
			rows = append(rows, []string{fmt.Sprintf("%d/%d", media.ID, d.ID), drel})
			stats.Derivatives++
		}
	}

	var buf strings.Builder
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"id", "path"}); err != nil {
		return stats, err
	}
	if err := cw.WriteAll(rows); err != nil {
		return stats, err
	}
	if _, err := utils.SaveFile([]byte(buf.String()), "catalog.csv", dir); err != nil {
		return stats, err
	}
	return stats, nil
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
