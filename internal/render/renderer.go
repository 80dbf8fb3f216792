// Package render turns chat messages into displayable content and keeps
// the per-message link bindings used to activate links.
package render

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"rebot/internal/links"
	"rebot/internal/model"
)

// Mode says which path produced a Content
type Mode string

const (
	// ModeLinked is content that already carried materialized links
	ModeLinked Mode = "linked"
	// ModeTokenized is legacy content run through markdown and the grammar
	ModeTokenized Mode = "tokenized"
	// ModePlain is text with no links, segmented into paragraphs
	ModePlain Mode = "plain"
)

// Paragraph is a block of lines separated by single newlines
type Paragraph struct {
	Lines []string `json:"lines"`
}

// Content is a rendered message
type Content struct {
	MessageID  int64                `json:"message_id"`
	Mode       Mode                 `json:"mode"`
	HTML       string               `json:"html"`
	Paragraphs []Paragraph          `json:"paragraphs,omitempty"`
	Links      []links.RenderedLink `json:"links"`
}

// Text rejoins plain paragraphs into the original message text
func (c Content) Text() string {
	blocks := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		blocks[i] = strings.Join(p.Lines, "\n")
	}
	return strings.Join(blocks, "\n\n")
}

// Renderer converts messages into Content
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	log    *zap.Logger
}

// NewRenderer creates a renderer with GitHub-flavoured markdown and a
// UGC sanitizing policy.
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
		log:    logger,
	}
}

// Render picks one of three paths: content flagged LinksResolved is
// shown as-is, content with [[ markers goes through markdown, sanitizing
// and the link grammar, anything else is escaped plain text. Markup in
// unflagged content is never trusted.
func (r *Renderer) Render(m model.Message) Content {
	out := Content{MessageID: m.ID, Links: []links.RenderedLink{}}

	switch {
	case m.LinksResolved:
		out.Mode = ModeLinked
		out.HTML = m.Content
		if ls := links.Extract(m.Content); ls != nil {
			out.Links = ls
		}

	case strings.Contains(m.Content, "[["):
		out.Mode = ModeTokenized
		out.HTML = r.Resolve(m.Content)
		if ls := links.Extract(out.HTML); ls != nil {
			out.Links = ls
		}

	default:
		out.Mode = ModePlain
		out.Paragraphs = segment(m.Content)
		out.HTML = paragraphsHTML(out.Paragraphs)
	}
	return out
}

// Resolve converts assistant markdown into sanitized HTML with its link
// tokens materialized. Messages holding the result are marked
// LinksResolved.
func (r *Renderer) Resolve(text string) string {
	var buf bytes.Buffer
	body := text
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		r.log.Warn("markdown conversion failed, using raw text", zap.Error(err))
	} else {
		body = buf.String()
	}
	return links.Tokenize(r.policy.Sanitize(body))
}

func segment(text string) []Paragraph {
	blocks := strings.Split(text, "\n\n")
	out := make([]Paragraph, len(blocks))
	for i, b := range blocks {
		out[i] = Paragraph{Lines: strings.Split(b, "\n")}
	}
	return out
}

func paragraphsHTML(ps []Paragraph) string {
	var b strings.Builder
	for _, p := range ps {
		b.WriteString("<p>")
		for i, line := range p.Lines {
			if i > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(html.EscapeString(line))
		}
		b.WriteString("</p>")
	}
	return b.String()
}
