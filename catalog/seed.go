package catalog

import (
	"context"
	_ "embed"
)

//go:embed seed/foods.json
var seedFoods []byte

// SeedSource serves the catalog bundled with the binary.
type SeedSource struct{}

func (SeedSource) Load(ctx context.Context) ([]byte, error) {
	return seedFoods, nil
}

// Seed loads the bundled catalog.
func Seed(ctx context.Context) (*Catalog, error) {
	return Load(ctx, SeedSource{})
}
