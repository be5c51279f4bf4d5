package collab

import (
	"testing"

	"deckhand/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCache_GetSetRemoveAll(t *testing.T) {
	c := NewStatusCache()
	assert.Nil(t, c.Get(1))

	s := &model.SharingStatus{PresentationID: 1}
	assert.Same(t, s, c.Set(1, s))
	assert.Same(t, s, c.Get(1))

	replacement := &model.SharingStatus{PresentationID: 1}
	c.Set(1, replacement)
	assert.Same(t, replacement, c.Get(1))
	assert.Equal(t, 1, c.Len())

	c.RemoveAll()
	assert.Nil(t, c.Get(1))
	assert.Zero(t, c.Len())
}

func TestStatusCache_MergeKeepsInstance(t *testing.T) {
	c := NewStatusCache()
	cached := c.Set(3, &model.SharingStatus{PresentationID: 3, Users: []*model.SharingUser{{UserID: 1}}})
	observer := c.Get(3)

	override := &model.SharingStatus{Users: []*model.SharingUser{{UserID: 2, Accepted: true}, {InviteEmail: "x@example.com"}}}
	got := c.Merge(3, override)

	assert.Same(t, cached, got)
	require.Len(t, observer.Users, 2)
	assert.Equal(t, int64(2), observer.Users[0].UserID)
	assert.NotSame(t, override.Users[0], observer.Users[0], "users are cloned into the cache")

	override.Users[0].Accepted = false
	assert.True(t, observer.Users[0].Accepted)
}

func TestStatusCache_MergeInsertsClone(t *testing.T) {
	c := NewStatusCache()
	override := &model.SharingStatus{Users: []*model.SharingUser{{UserID: 9}}}
	got := c.Merge(4, override)

	assert.NotSame(t, override, got)
	assert.Equal(t, int64(4), got.PresentationID)
	assert.Same(t, got, c.Get(4))
}

func TestStatusCache_MergeWithItself(t *testing.T) {
	c := NewStatusCache()
	s := c.Set(1, &model.SharingStatus{PresentationID: 1, Users: []*model.SharingUser{{UserID: 1}, {UserID: 2}}})
	c.Merge(1, s)
	assert.Len(t, s.Users, 2)
}
