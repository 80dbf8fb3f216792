package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebot/internal/links"
	"rebot/internal/model"
)

func TestRender_Paths(t *testing.T) {
	r := NewRenderer(nil)
	linked := links.Tokenize("See [[market trends]].")

	tests := []struct {
		name      string
		msg       model.Message
		wantMode  Mode
		wantLinks int
	}{
		{
			name:      "resolved flag",
			msg:       model.Message{ID: 1, Content: linked, LinksResolved: true},
			wantMode:  ModeLinked,
			wantLinks: 1,
		},
		{
			name:      "markers without flag",
			msg:       model.Message{ID: 2, Content: linked},
			wantMode:  ModePlain,
			wantLinks: 0,
		},
		{
			name:      "legacy tokens",
			msg:       model.Message{ID: 3, Content: "**Tip:** check [[schools]] and [[transit]]"},
			wantMode:  ModeTokenized,
			wantLinks: 2,
		},
		{
			name:      "plain",
			msg:       model.Message{ID: 4, Content: "Hello\nthere\n\nBye"},
			wantMode:  ModePlain,
			wantLinks: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(tt.msg)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.msg.ID, got.MessageID)
			assert.Len(t, got.Links, tt.wantLinks)
		})
	}
}

func TestRender_LinkedContentIsUntouched(t *testing.T) {
	r := NewRenderer(nil)
	content := links.Tokenize("Check the [[market trends]] and [[schools]] near this home.")
	got := r.Render(model.Message{Content: content, LinksResolved: true})
	assert.Equal(t, content, got.HTML)
}

func TestRender_TokenizedSanitizesMarkup(t *testing.T) {
	r := NewRenderer(nil)
	got := r.Render(model.Message{Content: "See [[price history]] <script>alert(1)</script>"})
	assert.NotContains(t, got.HTML, "<script>")
	assert.Contains(t, got.HTML, `data-ui-link="propertyPriceHistory"`)
	require.Len(t, got.Links, 1)
	assert.Equal(t, links.LinkPropertyPriceHistory, got.Links[0].Type)
}

func TestRender_UnflaggedMarkupIsEscaped(t *testing.T) {
	r := NewRenderer(nil)
	got := r.Render(model.Message{
		Type:    model.MessageUser,
		Content: `<img src=x onerror=alert(1)> what does data-ui-link="market" mean?`,
	})
	assert.Equal(t, ModePlain, got.Mode)
	assert.NotContains(t, got.HTML, "<img")
	assert.Contains(t, got.HTML, "&lt;img src=x onerror=alert(1)&gt;")
	assert.Empty(t, got.Links)
}

func TestRender_UnflaggedMarkupWithTokensIsSanitized(t *testing.T) {
	r := NewRenderer(nil)
	got := r.Render(model.Message{
		Type:    model.MessageUser,
		Content: `<a data-ui-link="market" onclick="steal()">x</a> and [[schools]]`,
	})
	assert.Equal(t, ModeTokenized, got.Mode)
	assert.NotContains(t, got.HTML, "onclick")
	assert.NotContains(t, got.HTML, "steal()")
}

func TestRender_PlainRoundTrip(t *testing.T) {
	r := NewRenderer(nil)
	inputs := []string{
		"",
		"one line",
		"line one\nline two",
		"para one\n\npara two\nwith a break",
		"trailing\n\n",
		"a\n\n\nb",
	}
	for _, in := range inputs {
		got := r.Render(model.Message{Content: in})
		require.Equal(t, ModePlain, got.Mode)
		assert.Equal(t, in, got.Text(), "input %q", in)
	}
}

func TestRender_PlainEscapesHTML(t *testing.T) {
	r := NewRenderer(nil)
	got := r.Render(model.Message{Content: "a < b\n\nc"})
	assert.Equal(t, "<p>a &lt; b</p><p>c</p>", got.HTML)
	assert.False(t, strings.Contains(got.HTML, "<br>"))
}
