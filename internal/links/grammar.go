// Package links implements the bracket-token grammar used by assistant
// replies ([[market trends]], [[schools]], ...) and turns tokens into
// anchors that carry their navigation address as data attributes.
package links

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"rebot/internal/registry"
)

// Marker is the attribute every materialized link carries. Text that
// already contains it is never tokenized again.
const Marker = "data-ui-link"

// Token is one synonym group of the grammar
type Token struct {
	Type     LinkType
	Label    string
	Synonyms []string
	Address  Address

	pattern *regexp.Regexp
}

// grammar is applied in this order every time. The first synonym of a
// group is its canonical token.
var grammar = []*Token{
	{
		Type:     LinkMarket,
		Label:    "Market Trends",
		Synonyms: []string{"market trends", "market details", "market"},
		Address:  Address{Section: registry.SectionMarket, Tab: registry.TabExplore, ForceTabSwitch: true},
	},
	{
		Type:     LinkProperty,
		Label:    "Properties",
		Synonyms: []string{"properties", "property listings", "listings"},
		Address:  Address{Section: registry.SectionProperties, Tab: registry.TabExplore, ForceTabSwitch: true},
	},
	{
		Type:     LinkRestaurants,
		Label:    "Local Amenities",
		Synonyms: []string{"local amenities", "restaurants", "amenities"},
		Address:  Address{Section: registry.SectionAmenities, Tab: registry.TabExplore, ForceTabSwitch: true},
	},
	{
		Type:     LinkTransit,
		Label:    "Transit",
		Synonyms: []string{"transit options", "public transit", "transit"},
		Address:  Address{Section: registry.SectionTransit, Tab: registry.TabExplore, ForceTabSwitch: true},
	},
	{
		Type:     LinkAgents,
		Label:    "Agents",
		Synonyms: []string{"real estate agents", "local agents", "agents"},
		Address:  Address{Section: registry.SectionAgents, Tab: registry.TabExplore, ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertyDetails,
		Label:    "Property Details",
		Synonyms: []string{"property details", "details"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabDetails, ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertyPriceHistory,
		Label:    "Tax History",
		Synonyms: []string{"tax history", "property taxes"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabPriceHistory, Subsection: "taxes", ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertyPriceHistory,
		Label:    "Price History",
		Synonyms: []string{"price history", "property price history"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabPriceHistory, ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertySchools,
		Label:    "Schools",
		Synonyms: []string{"schools", "property schools", "nearby schools"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabSchools, ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertyMarketAnalysis,
		Label:    "Market Analysis",
		Synonyms: []string{"market analysis", "property market analysis", "property market"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabMarketAnalysis, ForceTabSwitch: true},
	},
	{
		Type:     LinkPropertyDescription,
		Label:    "Description",
		Synonyms: []string{"description", "property description"},
		Address:  Address{Tab: registry.TabExplore, PropertyTab: registry.PropertyTabDetails, Subsection: "description", ForceTabSwitch: true},
	},
}

func init() {
	for _, tok := range grammar {
		alts := make([]string, len(tok.Synonyms))
		for i, syn := range tok.Synonyms {
			alts[i] = strings.ReplaceAll(regexp.QuoteMeta(syn), " ", `\s+`)
		}
		tok.pattern = regexp.MustCompile(`(?i)\[\[\s*(?:` + strings.Join(alts, "|") + `)\s*\]\]`)
	}
}

// HasMarkers reports whether text already contains materialized links
func HasMarkers(text string) bool {
	return strings.Contains(text, Marker+"=")
}

// Tokenize replaces every recognized [[phrase]] with an anchor. Unknown
// tokens and plain text pass through unchanged. Calling Tokenize on its
// own output returns it unchanged.
func Tokenize(text string) string {
	if HasMarkers(text) || !strings.Contains(text, "[[") {
		return text
	}
	out := text
	for _, tok := range grammar {
		tok := tok
		out = tok.pattern.ReplaceAllStringFunc(out, func(match string) string {
			return tok.anchor(match)
		})
	}
	return out
}

// Parse tokenizes text and returns the links in document order
func Parse(text string) []RenderedLink {
	return Extract(Tokenize(text))
}

func (t *Token) anchor(matched string) string {
	var b strings.Builder
	target := "#" + string(t.Address.Section)
	if t.Type.Scope() == ScopeProperty {
		target = "#" + registry.SubsectionElementID(t.Address.PropertyTab, t.Address.Subsection)
	}
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(target))
	b.WriteString(`" class="ui-link"`)
	writeAttr(&b, Marker, t.Type.String())
	writeAttr(&b, "data-label", t.Label)
	writeAttr(&b, "data-token", matched)
	writeAttr(&b, "data-tab", string(t.Address.Tab))
	writeAttr(&b, "data-section", string(t.Address.Section))
	writeAttr(&b, "data-property-tab", string(t.Address.PropertyTab))
	writeAttr(&b, "data-subsection", t.Address.Subsection)
	writeAttr(&b, "data-force-tab", strconv.FormatBool(t.Address.ForceTabSwitch))
	b.WriteString(">")
	b.WriteString(html.EscapeString(t.Label))
	b.WriteString("</a>")
	return b.String()
}

func writeAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, ` %s="%s"`, name, html.EscapeString(value))
}

// VocabularyEntry describes one token for prompts and the API
type VocabularyEntry struct {
	Token    string   `json:"token"`
	Type     LinkType `json:"type"`
	Label    string   `json:"label"`
	Synonyms []string `json:"synonyms"`
	Address  Address  `json:"address"`
}

// Vocabulary lists the grammar in application order
func Vocabulary() []VocabularyEntry {
	out := make([]VocabularyEntry, 0, len(grammar))
	for _, tok := range grammar {
		out = append(out, VocabularyEntry{
			Token:    "[[" + tok.Synonyms[0] + "]]",
			Type:     tok.Type,
			Label:    tok.Label,
			Synonyms: append([]string(nil), tok.Synonyms...),
			Address:  tok.Address,
		})
	}
	return out
}

// PromptVocabulary renders the vocabulary as bullet lines for a system prompt
func PromptVocabulary() string {
	var b strings.Builder
	for _, v := range Vocabulary() {
		fmt.Fprintf(&b, "- %s shows %s\n", v.Token, v.Label)
	}
	return b.String()
}
