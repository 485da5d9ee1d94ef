// Package catalog loads the plant catalog and filters it by level.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"jardin/internal/model"
)

var (
	//go:embed plants.json
	defaultCatalogJSON []byte

	ErrEmptyCatalog = errors.New("catalog is empty")
)

// Source yields the current catalog.
type Source interface {
	Fetch(ctx context.Context) (model.Catalog, error)
}

type rawEntry struct {
	Difficulty  int      `json:"dificultad"`
	Description string   `json:"descripcion"`
	Location    string   `json:"otros_detalles"`
	Photos      []string `json:"fotos"`
}

// Parse decodes the catalog wire format: plant id -> entry. Entries without a
// difficulty default to tier 1; photo references are resolved against
// photoBaseURL unless already absolute. Only the first two photos are kept.
func Parse(data []byte, photoBaseURL string) (model.Catalog, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := make(model.Catalog, len(raw))
	for id, entry := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		difficulty := entry.Difficulty
		if difficulty <= 0 {
			difficulty = 1
		}
		photos := make([]string, 0, 2)
		for _, ref := range entry.Photos {
			if ref = strings.TrimSpace(ref); ref == "" {
				continue
			}
			photos = append(photos, ResolvePhoto(photoBaseURL, ref))
			if len(photos) == 2 {
				break
			}
		}
		out[id] = model.Plant{
			ID:          id,
			Difficulty:  difficulty,
			Description: entry.Description,
			Location:    entry.Location,
			Photos:      photos,
		}
	}
	return out, nil
}

func ResolvePhoto(baseURL string, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ref
	}
	return baseURL + "/" + strings.TrimLeft(ref, "/")
}

// Visible returns the plants unlocked at lvl, ordered by id.
func Visible(cat model.Catalog, lvl int) []model.Plant {
	out := make([]model.Plant, 0, len(cat))
	for _, plant := range cat {
		if plant.Difficulty <= lvl {
			out = append(out, plant)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Unlocked returns the plants visible at to but not at from.
func Unlocked(cat model.Catalog, from, to int) []model.Plant {
	out := make([]model.Plant, 0)
	for _, plant := range Visible(cat, to) {
		if plant.Difficulty > from {
			out = append(out, plant)
		}
	}
	return out
}

// Static serves a fixed catalog.
type Static struct {
	catalog model.Catalog
}

func NewStatic(cat model.Catalog) *Static {
	return &Static{catalog: cat}
}

// Default returns the catalog bundled with the binary.
func Default(photoBaseURL string) (*Static, error) {
	cat, err := Parse(defaultCatalogJSON, photoBaseURL)
	if err != nil {
		return nil, err
	}
	return NewStatic(cat), nil
}

func (s *Static) Fetch(_ context.Context) (model.Catalog, error) {
	if len(s.catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	return clone(s.catalog), nil
}

func clone(cat model.Catalog) model.Catalog {
	out := make(model.Catalog, len(cat))
	for id, plant := range cat {
		plant.Photos = append([]string(nil), plant.Photos...)
		out[id] = plant
	}
	return out
}
