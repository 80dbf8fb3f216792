package links

import (
	"encoding/json"
	"fmt"

	"rebot/internal/registry"
)

// LinkType is the semantic type of a chat link
type LinkType int

const (
	LinkUnknown LinkType = iota
	LinkMarket
	LinkProperty
	LinkRestaurants
	LinkTransit
	LinkAgents
	LinkPropertyDetails
	LinkPropertyPriceHistory
	LinkPropertySchools
	LinkPropertyMarketAnalysis
	LinkPropertyDescription
)

var linkTypeNames = [...]string{
	LinkUnknown:                "unknown",
	LinkMarket:                 "market",
	LinkProperty:               "property",
	LinkRestaurants:            "restaurants",
	LinkTransit:                "transit",
	LinkAgents:                 "agents",
	LinkPropertyDetails:        "propertyDetails",
	LinkPropertyPriceHistory:   "propertyPriceHistory",
	LinkPropertySchools:        "propertySchools",
	LinkPropertyMarketAnalysis: "propertyMarketAnalysis",
	LinkPropertyDescription:    "propertyDescription",
}

// AllLinkTypes returns every known type, excluding LinkUnknown
func AllLinkTypes() []LinkType {
	out := make([]LinkType, 0, len(linkTypeNames)-1)
	for t := LinkMarket; int(t) < len(linkTypeNames); t++ {
		out = append(out, t)
	}
	return out
}

func (t LinkType) String() string {
	if t < 0 || int(t) >= len(linkTypeNames) {
		return fmt.Sprintf("LinkType(%d)", int(t))
	}
	return linkTypeNames[t]
}

// ParseLinkType maps a wire name to a LinkType. Unrecognized names map to
// LinkUnknown rather than failing.
func ParseLinkType(s string) LinkType {
	// older bot messages used the singular form for property links
	if s == "propertyDetail" {
		return LinkPropertyDetails
	}
	for i, name := range linkTypeNames {
		if name == s {
			return LinkType(i)
		}
	}
	return LinkUnknown
}

// MarshalJSON encodes the type by name
func (t LinkType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name; unknown names decode to LinkUnknown
func (t *LinkType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseLinkType(s)
	return nil
}

// Scope says which addressing field of a link is meaningful
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSection
	ScopeProperty
)

// Scope returns whether the type addresses an explore section or a
// property sub-tab. The two categories are mutually exclusive.
func (t LinkType) Scope() Scope {
	switch t {
	case LinkMarket, LinkProperty, LinkRestaurants, LinkTransit, LinkAgents:
		return ScopeSection
	case LinkPropertyDetails, LinkPropertyPriceHistory, LinkPropertySchools,
		LinkPropertyMarketAnalysis, LinkPropertyDescription:
		return ScopeProperty
	default:
		return ScopeNone
	}
}

// Address is where a link points in the UI
type Address struct {
	Section        registry.Section     `json:"section,omitempty"`
	Tab            registry.Tab         `json:"tab,omitempty"`
	PropertyTab    registry.PropertyTab `json:"property_tab,omitempty"`
	Subsection     string               `json:"subsection,omitempty"`
	ForceTabSwitch bool                 `json:"force_tab_switch"`
}

// RenderedLink is an interactive link materialized from a token match.
// It is rebuilt on every render and never persisted.
type RenderedLink struct {
	Type    LinkType `json:"type"`
	Label   string   `json:"label"`
	Matched string   `json:"matched,omitempty"`
	ZPID    string   `json:"zpid,omitempty"`
	Address
}

// Activation is the payload produced when a user triggers a link
type Activation struct {
	Type  LinkType `json:"type"`
	Label string   `json:"label"`
	ZPID  string   `json:"zpid,omitempty"`
	Address
}

// Activation builds the activation payload for this link
func (l RenderedLink) Activation() Activation {
	return Activation{
		Type:    l.Type,
		Label:   l.Label,
		ZPID:    l.ZPID,
		Address: l.Address,
	}
}
