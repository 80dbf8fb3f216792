// Package registry holds the canonical tab, section and property sub-tab
// identifiers shared by the link grammar, the navigation router and the
// view layer. The values double as HTML element ids and must match what
// the rendering layer mounts.
package registry

import "fmt"

// Tab is one of the top-level tabs of the info panel shell
type Tab string

const (
	TabExplore Tab = "explore"
	TabAI      Tab = "ai"
	TabSaved   Tab = "saved"
	TabUpdates Tab = "updates"
)

// DefaultTab is the tab a new session starts on
const DefaultTab = TabExplore

// Section is an anchor id inside the single-page explore tab
type Section string

const (
	SectionProperties Section = "properties-section"
	SectionMarket     Section = "market-trends-section"
	SectionAmenities  Section = "amenities-section"
	SectionTransit    Section = "transit-section"
	SectionAgents     Section = "agents-section"
)

// PropertyTab is one of the tabs of the property detail sub-shell
type PropertyTab string

const (
	PropertyTabDetails        PropertyTab = "details"
	PropertyTabPriceHistory   PropertyTab = "priceHistory"
	PropertyTabSchools        PropertyTab = "schools"
	PropertyTabMarketAnalysis PropertyTab = "marketAnalysis"
)

var (
	tabs         = []Tab{TabExplore, TabAI, TabSaved, TabUpdates}
	sections     = []Section{SectionProperties, SectionMarket, SectionAmenities, SectionTransit, SectionAgents}
	propertyTabs = []PropertyTab{PropertyTabDetails, PropertyTabPriceHistory, PropertyTabSchools, PropertyTabMarketAnalysis}

	propertyTabElementIDs = map[PropertyTab]string{
		PropertyTabDetails:        "property-details-tab",
		PropertyTabPriceHistory:   "property-price-history-tab",
		PropertyTabSchools:        "property-schools-tab",
		PropertyTabMarketAnalysis: "property-market-analysis-tab",
	}
)

// Tabs returns all top-level tabs in display order
func Tabs() []Tab { return append([]Tab(nil), tabs...) }

// Sections returns all explore sections in display order
func Sections() []Section { return append([]Section(nil), sections...) }

// PropertyTabs returns all property sub-tabs in display order
func PropertyTabs() []PropertyTab { return append([]PropertyTab(nil), propertyTabs...) }

// Valid reports whether t is a registered tab
func (t Tab) Valid() bool {
	for _, v := range tabs {
		if v == t {
			return true
		}
	}
	return false
}

// Valid reports whether s is a registered section
func (s Section) Valid() bool {
	for _, v := range sections {
		if v == s {
			return true
		}
	}
	return false
}

// Valid reports whether p is a registered property sub-tab
func (p PropertyTab) Valid() bool {
	_, ok := propertyTabElementIDs[p]
	return ok
}

// ElementID returns the DOM id of the property sub-tab panel
func (p PropertyTab) ElementID() string {
	return propertyTabElementIDs[p]
}

// SubsectionElementID returns the DOM id of a sub-section inside a
// property tab, e.g. property-priceHistory-taxes.
func SubsectionElementID(p PropertyTab, subsection string) string {
	if subsection == "" {
		return p.ElementID()
	}
	return fmt.Sprintf("property-%s-%s", p, subsection)
}

// ParseTab converts a raw string into a Tab
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tab %q", s)
	}
	return t, nil
}

// ParsePropertyTab accepts both the short tab id and its DOM element id
func ParsePropertyTab(s string) (PropertyTab, error) {
	p := PropertyTab(s)
	if p.Valid() {
		return p, nil
	}
	for tab, id := range propertyTabElementIDs {
		if id == s {
			return tab, nil
		}
	}
	return "", fmt.Errorf("unknown property tab %q", s)
}

// Manifest is the published form of the registry
type Manifest struct {
	Tabs         []Tab             `json:"tabs"`
	Sections     []Section         `json:"sections"`
	PropertyTabs map[string]string `json:"property_tabs"`
}

// Describe returns the registry as a JSON-friendly manifest
func Describe() Manifest {
	m := Manifest{
		Tabs:         Tabs(),
		Sections:     Sections(),
		PropertyTabs: make(map[string]string, len(propertyTabs)),
	}
	for _, p := range propertyTabs {
		m.PropertyTabs[string(p)] = p.ElementID()
	}
	return m
}
