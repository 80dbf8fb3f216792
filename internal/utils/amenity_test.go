package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmenity(t *testing.T) {
	tests := map[string]string{
		"Swimming Pool":   "Pool",
		" central air ":   "Air conditioning",
		"washer/dryer":    "Laundry",
		"pet friendly":    "Pets allowed",
		"wine cellar":     "Wine Cellar",
		"":                "",
		"in unit laundry": "Laundry",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeAmenity(in), "input %q", in)
	}
}

func TestAmenityPatterns(t *testing.T) {
	assert.Equal(t, []string{"Pool", "Swimming pool"}, AmenityPatterns("heated pool"))
	assert.Equal(t, []string{"EV charging", "Electric vehicle"}, AmenityPatterns("EV charging"))
	assert.Equal(t, []string{"Yard", "Backyard", "Fenced yard", "Garden"}, AmenityPatterns("big yard"))
	// neither "ac" nor "yard" matches inside a longer word
	assert.Equal(t, []string{"Backyard"}, AmenityPatterns("backyard"))
	assert.Equal(t, []string{"Wine Cellar"}, AmenityPatterns("wine cellar"))
}

func TestBuildAmenityQuery(t *testing.T) {
	conds, params, next := BuildAmenityQuery("amenities", []string{"pool", " ", "wine cellar"}, 4)

	assert.Equal(t, []string{
		"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE elem ILIKE $4 OR elem ILIKE $5)",
		"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE elem ILIKE $6)",
	}, conds)
	assert.Equal(t, []interface{}{"%Pool%", "%Swimming pool%", "%Wine Cellar%"}, params)
	assert.Equal(t, 7, next)

	conds, params, next = BuildAmenityQuery("amenities", nil, 2)
	assert.Empty(t, conds)
	assert.Empty(t, params)
	assert.Equal(t, 2, next)
}
