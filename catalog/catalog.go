// Package catalog holds the read-only bilingual food catalog and resolves
// free-text food names against it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"glucoplate"
)

// Source loads the raw catalog document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

type entry struct {
	record  glucoplate.FoodRecord
	primary string
	alt     string
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	entries []entry
	byID    map[int]int
	byName  map[string]int
	byAlt   map[string]int
}

// New validates records and builds the lookup indexes. Primary names must be
// unique (case-insensitive) so that resolving a record's own name returns it.
func New(records []glucoplate.FoodRecord) (*Catalog, error) {
	c := &Catalog{
		entries: make([]entry, 0, len(records)),
		byID:    make(map[int]int, len(records)),
		byName:  make(map[string]int, len(records)),
		byAlt:   make(map[string]int, len(records)),
	}

	for _, r := range records {
		primary := normalize(r.Name)
		if primary == "" {
			return nil, fmt.Errorf("food %d: empty name", r.ID)
		}
		if !r.Suitability.IsValid() {
			return nil, fmt.Errorf("food %d: invalid suitability %q", r.ID, r.Suitability)
		}
		if r.Calories < 0 || r.Carbs < 0 || r.Protein < 0 || r.Fat < 0 || r.Sugar < 0 {
			return nil, fmt.Errorf("food %d: negative nutrient value", r.ID)
		}
		if r.GlycemicIndex < 0 || r.GlycemicIndex > 100 {
			return nil, fmt.Errorf("food %d: glycemic index %d out of range", r.ID, r.GlycemicIndex)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("food %d: duplicate id", r.ID)
		}
		if _, dup := c.byName[primary]; dup {
			return nil, fmt.Errorf("food %d: duplicate name %q", r.ID, r.Name)
		}

		idx := len(c.entries)
		e := entry{record: r, primary: primary, alt: normalize(r.AlternateName)}
		c.entries = append(c.entries, e)
		c.byID[r.ID] = idx
		c.byName[primary] = idx
		if e.alt != "" {
			if _, seen := c.byAlt[e.alt]; !seen {
				c.byAlt[e.alt] = idx
			}
		}
	}

	return c, nil
}

// Load reads a JSON array of food records from src.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var records []glucoplate.FoodRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c, err := New(records)
	if err != nil {
		return nil, err
	}

	slog.Info("CATALOG: Loaded", "foods", c.Len())
	return c, nil
}

func (c *Catalog) Len() int { return len(c.entries) }

// All returns a copy of every record in catalog order.
func (c *Catalog) All() []glucoplate.FoodRecord {
	out := make([]glucoplate.FoodRecord, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.record
	}
	return out
}

func (c *Catalog) Get(id int) (glucoplate.FoodRecord, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return glucoplate.FoodRecord{}, false
	}
	return c.entries[idx].record, true
}

// Resolve matches free text against the catalog. The first rule that hits wins:
// exact primary name, exact alternate name, then substring containment in either
// direction against either name (catalog order).
func (c *Catalog) Resolve(name string) (glucoplate.FoodRecord, bool) {
	q := normalize(name)
	if q == "" {
		return glucoplate.FoodRecord{}, false
	}

	if idx, ok := c.byName[q]; ok {
		return c.entries[idx].record, true
	}
	if idx, ok := c.byAlt[q]; ok {
		return c.entries[idx].record, true
	}

	for _, e := range c.entries {
		if contains(q, e.primary) || contains(q, e.alt) {
			return e.record, true
		}
	}

	return glucoplate.FoodRecord{}, false
}

// Search returns records whose names contain query, ordered by name. An empty
// query returns everything in catalog order.
func (c *Catalog) Search(query string) []glucoplate.FoodRecord {
	q := normalize(query)
	if q == "" {
		return c.All()
	}

	var out []glucoplate.FoodRecord
	for _, e := range c.entries {
		if strings.Contains(e.primary, q) || strings.Contains(e.alt, q) {
			out = append(out, e.record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func contains(q, name string) bool {
	if name == "" {
		return false
	}
	return strings.Contains(q, name) || strings.Contains(name, q)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
