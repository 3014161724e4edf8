package recognition

import (
	"sort"
	"strings"

	"glucoplate"
)

// DefaultMaxItems is the largest merged list ever returned. A configured
// limit can only lower it.
const DefaultMaxItems = 5

// Merge combines provider lists into one. Names are grouped
// case-insensitively, the first spelling seen is kept, confidences are
// averaged, and the result is sorted by confidence descending and truncated
// to max entries.
func Merge(lists [][]glucoplate.RecognizedItem, max int) []glucoplate.RecognizedItem {
	if max <= 0 || max > DefaultMaxItems {
		max = DefaultMaxItems
	}

	type group struct {
		name  string
		sum   float64
		count int
	}
	var order []*group
	byKey := make(map[string]*group)

	for _, list := range lists {
		for _, item := range list {
			name := strings.TrimSpace(item.Name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			g, ok := byKey[key]
			if !ok {
				g = &group{name: name}
				byKey[key] = g
				order = append(order, g)
			}
			g.sum += item.Confidence
			g.count++
		}
	}

	merged := make([]glucoplate.RecognizedItem, 0, len(order))
	for _, g := range order {
		merged = append(merged, glucoplate.RecognizedItem{
			Name:       g.name,
			Confidence: g.sum / float64(g.count),
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
