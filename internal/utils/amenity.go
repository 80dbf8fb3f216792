package utils

import (
	"fmt"
	"sort"
	"strings"
)

// amenityPatterns maps a search keyword to the spellings listings use
var amenityPatterns = map[string][]string{
	"pool":        {"Pool", "Swimming pool"},
	"garage":      {"Garage", "Attached garage", "Detached garage"},
	"parking":     {"Parking", "Driveway", "Carport", "Garage"},
	"fireplace":   {"Fireplace", "Wood burning"},
	"air":         {"Central air", "Air conditioning", "A/C"},
	"ac":          {"Central air", "Air conditioning", "A/C"},
	"laundry":     {"Laundry", "Washer", "Dryer", "In unit laundry"},
	"washer":      {"Washer", "Laundry"},
	"yard":        {"Yard", "Backyard", "Fenced yard", "Garden"},
	"garden":      {"Garden", "Yard"},
	"basement":    {"Basement", "Finished basement"},
	"patio":       {"Patio", "Deck", "Porch"},
	"deck":        {"Deck", "Patio"},
	"balcony":     {"Balcony", "Terrace"},
	"gym":         {"Gym", "Fitness center"},
	"elevator":    {"Elevator"},
	"dishwasher":  {"Dishwasher"},
	"hardwood":    {"Hardwood", "Wood floors"},
	"pet":         {"Pets allowed", "Cats OK", "Dogs OK"},
	"solar":       {"Solar", "Solar panels"},
	"view":        {"View", "Water view", "City view"},
	"waterfront":  {"Waterfront", "Water view"},
	"doorman":     {"Doorman", "Concierge"},
	"storage":     {"Storage", "Walk-in closet"},
	"heating":     {"Heating", "Forced air", "Radiant"},
	"wheelchair":  {"Accessible", "Wheelchair"},
	"accessible":  {"Accessible", "Wheelchair"},
	"playground":  {"Playground"},
	"security":    {"Security", "Gated"},
	"gated":       {"Gated", "Security"},
	"ev charging": {"EV charging", "Electric vehicle"},
}

var amenityNames = map[string]string{
	"pool":             "Pool",
	"swimming pool":    "Pool",
	"garage":           "Garage",
	"car garage":       "Garage",
	"parking":          "Parking",
	"driveway":         "Parking",
	"fireplace":        "Fireplace",
	"ac":               "Air conditioning",
	"a/c":              "Air conditioning",
	"central air":      "Air conditioning",
	"air conditioning": "Air conditioning",
	"laundry":          "Laundry",
	"washer":           "Laundry",
	"washer/dryer":     "Laundry",
	"in unit laundry":  "Laundry",
	"yard":             "Yard",
	"backyard":         "Yard",
	"garden":           "Yard",
	"basement":         "Basement",
	"patio":            "Patio",
	"deck":             "Patio",
	"balcony":          "Balcony",
	"terrace":          "Balcony",
	"gym":              "Gym",
	"fitness center":   "Gym",
	"pets":             "Pets allowed",
	"pet friendly":     "Pets allowed",
	"pets allowed":     "Pets allowed",
}

// sortedKeywords is amenityPatterns' keys, longest first, so "ev
// charging" wins over shorter keys it contains.
var sortedKeywords = func() []string {
	keys := make([]string, 0, len(amenityPatterns))
	for k := range amenityPatterns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// NormalizeAmenity maps an amenity phrase to its standard name. Unknown
// phrases are title cased.
func NormalizeAmenity(amenity string) string {
	lower := strings.ToLower(strings.TrimSpace(amenity))
	if lower == "" {
		return ""
	}
	if name, ok := amenityNames[lower]; ok {
		return name
	}
	return titleCase(lower)
}

// AmenityPatterns returns the listing spellings matched for a search term
func AmenityPatterns(term string) []string {
	lower := strings.ToLower(strings.TrimSpace(term))
	for _, key := range sortedKeywords {
		if containsWord(lower, key) {
			return amenityPatterns[key]
		}
	}
	return []string{titleCase(lower)}
}

// BuildAmenityQuery builds one EXISTS condition per term over a JSONB
// array column. Placeholders start at paramIndex; the next free index is
// returned.
func BuildAmenityQuery(column string, terms []string, paramIndex int) ([]string, []interface{}, int) {
	var conditions []string
	var params []interface{}

	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		var ors []string
		for _, pattern := range AmenityPatterns(term) {
			ors = append(ors, fmt.Sprintf("elem ILIKE $%d", paramIndex))
			params = append(params, "%"+pattern+"%")
			paramIndex++
		}
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(%s) elem WHERE %s)",
			column, strings.Join(ors, " OR ")))
	}
	return conditions, params, paramIndex
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isLetter(s[start-1])) && (end == len(s) || !isLetter(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool { return b >= 'a' && b <= 'z' }

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
