package catalog

import (
	"context"
	"testing"

	"glucoplate"
	"glucoplate/catalog/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []glucoplate.FoodRecord {
	return []glucoplate.FoodRecord{
		{ID: 1, Name: "أرز بسمتي", AlternateName: "Basmati Rice", Carbs: 32, GlycemicIndex: 58, Suitability: glucoplate.Moderate},
		{ID: 3, Name: "تفاح", AlternateName: "Apple", Carbs: 25, Sugar: 19, GlycemicIndex: 38, Suitability: glucoplate.Moderate},
		{ID: 6, Name: "أرز أبيض", AlternateName: "White Rice", Carbs: 28, Sugar: 0.1, GlycemicIndex: 73, Suitability: glucoplate.Avoid},
		{ID: 24, Name: "حمص", AlternateName: "Chickpeas", Suitability: glucoplate.Safe},
		{ID: 50, Name: "حمص بطحينة", AlternateName: "Hummus", Suitability: glucoplate.Safe},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		records []glucoplate.FoodRecord
		wantErr string
	}{
		{
			name:    "empty name",
			records: []glucoplate.FoodRecord{{ID: 1, Name: "  ", Suitability: glucoplate.Safe}},
			wantErr: "empty name",
		},
		{
			name:    "invalid suitability",
			records: []glucoplate.FoodRecord{{ID: 1, Name: "x", Suitability: "great"}},
			wantErr: "invalid suitability",
		},
		{
			name:    "negative nutrient",
			records: []glucoplate.FoodRecord{{ID: 1, Name: "x", Sugar: -1, Suitability: glucoplate.Safe}},
			wantErr: "negative nutrient",
		},
		{
			name:    "glycemic index out of range",
			records: []glucoplate.FoodRecord{{ID: 1, Name: "x", GlycemicIndex: 120, Suitability: glucoplate.Safe}},
			wantErr: "out of range",
		},
		{
			name: "duplicate id",
			records: []glucoplate.FoodRecord{
				{ID: 1, Name: "x", Suitability: glucoplate.Safe},
				{ID: 1, Name: "y", Suitability: glucoplate.Safe},
			},
			wantErr: "duplicate id",
		},
		{
			name: "duplicate name differing in case",
			records: []glucoplate.FoodRecord{
				{ID: 1, Name: "Apple", Suitability: glucoplate.Safe},
				{ID: 2, Name: "apple ", Suitability: glucoplate.Safe},
			},
			wantErr: "duplicate name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.records)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolve(t *testing.T) {
	c, err := New(testRecords())
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		wantID int
		wantOK bool
	}{
		{name: "exact primary", query: "تفاح", wantID: 3, wantOK: true},
		{name: "exact alternate case-insensitive", query: "white RICE", wantID: 6, wantOK: true},
		{name: "exact primary beats earlier substring", query: "حمص بطحينة", wantID: 50, wantOK: true},
		{name: "exact alternate beats substring", query: "Hummus", wantID: 50, wantOK: true},
		{name: "query contains name", query: "Green Apple slices", wantID: 3, wantOK: true},
		{name: "name contains query", query: "basmati", wantID: 1, wantOK: true},
		{name: "substring takes first in catalog order", query: "rice", wantID: 1, wantOK: true},
		{name: "surrounding whitespace", query: "  Apple  ", wantID: 3, wantOK: true},
		{name: "miss", query: "pizza", wantOK: false},
		{name: "empty", query: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Resolve(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestSeed_RoundTrip(t *testing.T) {
	c, err := Seed(context.Background())
	require.NoError(t, err)
	require.Greater(t, c.Len(), 50)

	for _, food := range c.All() {
		got, ok := c.Resolve(food.Name)
		require.True(t, ok, food.Name)
		assert.Equal(t, food, got, "resolve(%q) should return the record itself", food.Name)
	}
}

func TestSeed_KnownEntries(t *testing.T) {
	c, err := Seed(context.Background())
	require.NoError(t, err)

	rice, ok := c.Resolve("أرز أبيض")
	require.True(t, ok)
	assert.Equal(t, glucoplate.Avoid, rice.Suitability)
	assert.Equal(t, 73, rice.GlycemicIndex)

	chicken, ok := c.Get(4)
	require.True(t, ok)
	assert.Equal(t, "Grilled Chicken Breast", chicken.AlternateName)
	assert.Equal(t, glucoplate.Safe, chicken.Suitability)
}

func TestGetAndSearch(t *testing.T) {
	c, err := New(testRecords())
	require.NoError(t, err)

	_, ok := c.Get(999)
	assert.False(t, ok)

	all := c.All()
	all[0].Name = "mutated"
	first, _ := c.Get(1)
	assert.Equal(t, "أرز بسمتي", first.Name, "All returns a copy")

	assert.Len(t, c.Search(""), 5)

	hits := c.Search("rice")
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, []int{1, 6}, h.ID)
	}
	assert.Empty(t, c.Search("pizza"))
}

func TestLoad(t *testing.T) {
	t.Run("decodes records", func(t *testing.T) {
		src := storage.NewTestSource([]byte(`[{"id":1,"name":"تفاح","alternateName":"Apple","suitability":"moderate","glycemicIndex":38}]`))
		c, err := Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("source error", func(t *testing.T) {
		_, err := Load(context.Background(), storage.NewTestSourceWithError())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load catalog")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(context.Background(), storage.NewTestSource([]byte(`{`)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode catalog")
	})
}
