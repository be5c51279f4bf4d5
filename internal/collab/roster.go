package collab

import "deckhand/internal/model"

// Delta is what one Apply changed.
type Delta struct {
	Added   []*model.TeamMember
	Removed []*model.TeamMember
}

func (d Delta) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Roster is the locally held team.
//
// Apply synchronizes membership only: a member present locally and in the incoming
// snapshot keeps its pointer and its local field values, so anything bound to it never
// sees a spurious remove/add cycle. Field changes go through Update.
type Roster struct {
	members []*model.TeamMember
}

func NewRoster(members ...*model.TeamMember) *Roster {
	return &Roster{members: append([]*model.TeamMember(nil), members...)}
}

// Members returns the roster in its current order. The slice is owned by the roster.
func (r *Roster) Members() []*model.TeamMember { return r.members }

func (r *Roster) Len() int { return len(r.members) }

func (r *Roster) Find(id int64) (*model.TeamMember, bool) {
	for _, m := range r.members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Apply makes the roster's member set equal incoming's, by id.
//
// New members are appended in incoming order. Removal is two-phase: the set of ids to drop
// is computed up front and then filtered out in one pass, which yields the same result as
// repeatedly removing one stale member and rescanning. An empty incoming snapshot clears
// the roster.
func (r *Roster) Apply(incoming []*model.TeamMember) Delta {
	var d Delta
	if len(incoming) == 0 {
		d.Removed = r.members
		r.members = nil
		return d
	}

	local := make(map[int64]bool, len(r.members))
	for _, m := range r.members {
		local[m.ID] = true
	}
	keep := make(map[int64]bool, len(incoming))
	for _, m := range incoming {
		if m == nil {
			continue
		}
		keep[m.ID] = true
		if local[m.ID] {
			continue
		}
		local[m.ID] = true
		r.members = append(r.members, m)
		d.Added = append(d.Added, m)
	}

	drop := staleIDs(r.members, keep)
	if len(drop) == 0 {
		return d
	}
	kept := r.members[:0:0]
	for _, m := range r.members {
		if drop[m.ID] {
			d.Removed = append(d.Removed, m)
			continue
		}
		kept = append(kept, m)
	}
	r.members = kept
	return d
}

func staleIDs(members []*model.TeamMember, keep map[int64]bool) map[int64]bool {
	var drop map[int64]bool
	for _, m := range members {
		if keep[m.ID] {
			continue
		}
		if drop == nil {
			drop = map[int64]bool{}
		}
		drop[m.ID] = true
	}
	return drop
}

// Update copies fields from m onto the member with the same id, keeping its identity.
func (r *Roster) Update(m *model.TeamMember) bool {
	cur, ok := r.Find(m.ID)
	if !ok {
		return false
	}
	cur.Load(m.Serialize())
	return true
}
