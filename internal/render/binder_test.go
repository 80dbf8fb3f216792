package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebot/internal/links"
	"rebot/internal/model"
)

func TestBinder_RebindDoesNotDuplicate(t *testing.T) {
	var fired []links.Activation
	b := NewBinder(func(_ int64, a links.Activation) { fired = append(fired, a) })
	r := NewRenderer(nil)
	msg := model.Message{ID: 7, Content: "Look at [[market]] and [[agents]]"}

	for i := 0; i < 3; i++ {
		c := r.Render(msg)
		assert.Equal(t, 2, b.Bind(msg.ID, c.Links))
	}
	require.Len(t, b.Bound(7), 2)

	a, err := b.Activate(7, 1)
	require.NoError(t, err)
	assert.Equal(t, links.LinkAgents, a.Type)
	require.Len(t, fired, 1)
	assert.Equal(t, links.LinkAgents, fired[0].Type)
}

func TestBinder_ActivateUnbound(t *testing.T) {
	b := NewBinder(nil)
	_, err := b.Activate(1, 0)
	assert.True(t, errors.Is(err, ErrLinkNotBound))

	b.Bind(1, links.Parse("[[transit]]"))
	_, err = b.Activate(1, 1)
	assert.ErrorIs(t, err, ErrLinkNotBound)
	_, err = b.Activate(1, -1)
	assert.ErrorIs(t, err, ErrLinkNotBound)

	b.Unbind(1)
	_, err = b.Activate(1, 0)
	assert.ErrorIs(t, err, ErrLinkNotBound)
}

func TestBinder_BindEmptyDetaches(t *testing.T) {
	b := NewBinder(nil)
	b.Bind(1, links.Parse("[[transit]]"))
	assert.Equal(t, 0, b.Bind(1, nil))
	assert.Empty(t, b.Bound(1))
}
