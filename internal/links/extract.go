package links

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"rebot/internal/registry"
)

// Extract walks markup and returns every materialized link in document
// order. Malformed markup yields whatever links were read before the
// tokenizer gave up.
func Extract(markup string) []RenderedLink {
	if !HasMarkers(markup) {
		return nil
	}

	var (
		out     []RenderedLink
		current *RenderedLink
		text    strings.Builder
		depth   int
	)

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return out
			}
			if current != nil {
				out = append(out, finish(current, text.String()))
			}
			return out

		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			if current != nil {
				depth++
				continue
			}
			if link, ok := fromAttrs(tok.Attr); ok {
				current = &link
				text.Reset()
				depth = 0
			}

		case html.EndTagToken:
			tok := z.Token()
			if tok.Data != "a" || current == nil {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			out = append(out, finish(current, text.String()))
			current = nil

		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}
		}
	}
}

func finish(link *RenderedLink, text string) RenderedLink {
	if link.Label == "" {
		link.Label = strings.TrimSpace(text)
	}
	return *link
}

func fromAttrs(attrs []html.Attribute) (RenderedLink, bool) {
	var (
		link  RenderedLink
		found bool
	)
	for _, a := range attrs {
		switch a.Key {
		case Marker:
			found = true
			link.Type = ParseLinkType(a.Val)
		case "data-label":
			link.Label = a.Val
		case "data-token":
			link.Matched = a.Val
		case "data-zpid":
			link.ZPID = a.Val
		case "data-tab":
			link.Tab = registry.Tab(a.Val)
		case "data-section":
			link.Section = registry.Section(a.Val)
		case "data-property-tab":
			link.PropertyTab = registry.PropertyTab(a.Val)
		case "data-subsection":
			link.Subsection = a.Val
		case "data-force-tab":
			link.ForceTabSwitch, _ = strconv.ParseBool(a.Val)
		}
	}
	if found {
		link.fillDefaults()
	}
	return link, found
}

// fillDefaults completes links written by hand (or by older builds) that
// only carry the type attribute.
func (l *RenderedLink) fillDefaults() {
	if l.Section != "" || l.PropertyTab != "" {
		return
	}
	l.Address = DefaultAddress(l.Type)
}

// DefaultAddress returns the grammar address of a link type. Types with
// several token groups resolve to the group without a subsection.
func DefaultAddress(t LinkType) Address {
	var fallback *Token
	for _, tok := range grammar {
		if tok.Type != t {
			continue
		}
		if tok.Address.Subsection == "" {
			return tok.Address
		}
		if fallback == nil {
			fallback = tok
		}
	}
	if fallback != nil {
		return fallback.Address
	}
	return Address{}
}
