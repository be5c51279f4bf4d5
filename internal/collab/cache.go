package collab

import "deckhand/internal/model"

// StatusCache holds at most one SharingStatus per presentation id.
//
// Entries keep their identity across merges, so observers holding a *SharingStatus keep
// seeing updates.
type StatusCache struct {
	entries map[int64]*model.SharingStatus
}

func NewStatusCache() *StatusCache {
	return &StatusCache{entries: map[int64]*model.SharingStatus{}}
}

// Get returns the cached status or nil.
func (c *StatusCache) Get(key int64) *model.SharingStatus {
	return c.entries[key]
}

// Set stores status under key, replacing any previous entry, and returns it.
func (c *StatusCache) Set(key int64, status *model.SharingStatus) *model.SharingStatus {
	c.entries[key] = status
	return status
}

// Merge replaces the user list of the cached entry in place with clones of override's
// users. Without a cached entry, a clone of override is inserted. The resulting entry is
// returned.
func (c *StatusCache) Merge(key int64, override *model.SharingStatus) *model.SharingStatus {
	cached := c.entries[key]
	if cached == nil {
		fresh := override.Clone()
		fresh.PresentationID = key
		return c.Set(key, fresh)
	}
	if cached == override {
		return cached
	}
	clones := make([]*model.SharingUser, 0, len(override.Users))
	for _, u := range override.Users {
		clones = append(clones, u.Clone())
	}
	cached.Users = append(cached.Users[:0], clones...)
	return cached
}

// RemoveAll empties the cache.
func (c *StatusCache) RemoveAll() {
	clear(c.entries)
}

func (c *StatusCache) Len() int { return len(c.entries) }
