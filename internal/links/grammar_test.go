package links

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebot/internal/registry"
)

func TestTokenize_ExampleScenario(t *testing.T) {
	out := Tokenize("Check the [[market trends]] and [[schools]] near this home.")
	got := Extract(out)

	require.Len(t, got, 2)

	assert.Equal(t, LinkMarket, got[0].Type)
	assert.Equal(t, registry.SectionMarket, got[0].Section)
	assert.Equal(t, "market-trends-section", string(got[0].Section))
	assert.True(t, got[0].ForceTabSwitch)
	assert.Equal(t, "[[market trends]]", got[0].Matched)

	assert.Equal(t, LinkPropertySchools, got[1].Type)
	assert.Equal(t, registry.PropertyTabSchools, got[1].PropertyTab)
	assert.Empty(t, got[1].Section)

	assert.True(t, strings.HasPrefix(out, "Check the <a "))
	assert.True(t, strings.HasSuffix(out, "</a> near this home."))
}

func TestTokenize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"no tokens here",
		"[[market]] then [[price history]]",
		"[[MARKET   TRENDS]] twice [[market trends]]",
		"unknown [[zoning]] stays",
		"nested [[[[market]]]] brackets",
		"half open [[market",
		"already <a data-ui-link=\"market\">Market</a> and [[schools]]",
	}

	for _, in := range inputs {
		once := Tokenize(in)
		assert.Equal(t, once, Tokenize(once), "input %q", in)
	}
}

func TestTokenize_SynonymEquivalence(t *testing.T) {
	for _, v := range Vocabulary() {
		var first *RenderedLink
		for _, syn := range v.Synonyms {
			got := Parse("[[" + syn + "]]")
			require.Len(t, got, 1, "synonym %q", syn)
			if first == nil {
				first = &got[0]
				continue
			}
			assert.Equal(t, first.Type, got[0].Type, "synonym %q", syn)
			assert.Equal(t, first.Section, got[0].Section, "synonym %q", syn)
			assert.Equal(t, first.PropertyTab, got[0].PropertyTab, "synonym %q", syn)
			assert.Equal(t, first.Label, got[0].Label, "synonym %q", syn)
		}
	}
}

func TestTokenize_PassThrough(t *testing.T) {
	tests := []string{
		"Plain answer.\n\nSecond paragraph.",
		"Prices [in brackets] are fine",
		"[[not a known token]]",
		"[[ ]]",
	}
	for _, in := range tests {
		assert.Equal(t, in, Tokenize(in))
	}
}

func TestTokenize_CaseAndWhitespaceInsensitive(t *testing.T) {
	got := Parse("See [[  Local   Amenities ]] and [[Transit Options]]")
	require.Len(t, got, 2)
	assert.Equal(t, LinkRestaurants, got[0].Type)
	assert.Equal(t, "Local Amenities", got[0].Label)
	assert.Equal(t, LinkTransit, got[1].Type)
}

func TestTokenize_Subsections(t *testing.T) {
	got := Parse("[[tax history]] [[description]]")
	require.Len(t, got, 2)

	assert.Equal(t, LinkPropertyPriceHistory, got[0].Type)
	assert.Equal(t, "taxes", got[0].Subsection)

	assert.Equal(t, LinkPropertyDescription, got[1].Type)
	assert.Equal(t, registry.PropertyTabDetails, got[1].PropertyTab)
	assert.Equal(t, "description", got[1].Subsection)
}

func TestScopesAreExclusive(t *testing.T) {
	for _, v := range Vocabulary() {
		switch v.Type.Scope() {
		case ScopeSection:
			assert.NotEmpty(t, v.Address.Section, v.Token)
			assert.Empty(t, v.Address.PropertyTab, v.Token)
			assert.True(t, v.Address.Section.Valid(), v.Token)
		case ScopeProperty:
			assert.Empty(t, v.Address.Section, v.Token)
			assert.True(t, v.Address.PropertyTab.Valid(), v.Token)
		default:
			t.Errorf("token %s has no scope", v.Token)
		}
		assert.True(t, v.Address.Tab.Valid(), v.Token)
	}
}

func TestEveryTypeHasAToken(t *testing.T) {
	seen := map[LinkType]bool{}
	for _, v := range Vocabulary() {
		seen[v.Type] = true
	}
	for _, lt := range AllLinkTypes() {
		assert.True(t, seen[lt], "no token for %s", lt)
	}
}

func TestParseLinkType(t *testing.T) {
	assert.Equal(t, LinkPropertySchools, ParseLinkType("propertySchools"))
	assert.Equal(t, LinkPropertyDetails, ParseLinkType("propertyDetail"))
	assert.Equal(t, LinkUnknown, ParseLinkType("weather"))
	assert.Equal(t, "LinkType(99)", LinkType(99).String())
}

func TestExtract_HandWrittenPropertyLink(t *testing.T) {
	markup := `See <a href="#" data-ui-link="propertyDetail" data-zpid="123">123 Main St</a> now`
	got := Extract(markup)
	require.Len(t, got, 1)
	assert.Equal(t, LinkPropertyDetails, got[0].Type)
	assert.Equal(t, "123", got[0].ZPID)
	assert.Equal(t, "123 Main St", got[0].Label)
	assert.Equal(t, registry.PropertyTabDetails, got[0].PropertyTab)

	act := got[0].Activation()
	assert.Equal(t, "123", act.ZPID)
	assert.Equal(t, LinkPropertyDetails, act.Type)
}

func TestExtract_IgnoresPlainAnchors(t *testing.T) {
	assert.Empty(t, Extract(`<a href="https://example.com">x</a>`))
	got := Extract(`<p><a href="#x">plain</a> <a data-ui-link="transit">Transit</a></p>`)
	require.Len(t, got, 1)
	assert.Equal(t, LinkTransit, got[0].Type)
	assert.Equal(t, registry.SectionTransit, got[0].Section)
}

func TestPromptVocabulary(t *testing.T) {
	p := PromptVocabulary()
	assert.Contains(t, p, "[[market trends]]")
	assert.Contains(t, p, "[[schools]]")
}
