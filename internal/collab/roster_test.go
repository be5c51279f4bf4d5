package collab

import (
	"math/rand"
	"sort"
	"testing"

	"deckhand/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(ids ...int64) []*model.TeamMember {
	out := make([]*model.TeamMember, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.TeamMember{ID: id})
	}
	return out
}

func ids(ms []*model.TeamMember) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

// removeOneRescan drops one stale member at a time and rescans; Apply must agree with it.
func removeOneRescan(local, incoming []*model.TeamMember) []*model.TeamMember {
	in := map[int64]bool{}
	for _, m := range incoming {
		in[m.ID] = true
	}
	have := map[int64]bool{}
	for _, m := range local {
		have[m.ID] = true
	}
	for _, m := range incoming {
		if !have[m.ID] {
			have[m.ID] = true
			local = append(local, m)
		}
	}
	if len(incoming) == 0 {
		return nil
	}
	for {
		removed := false
		for i, m := range local {
			if !in[m.ID] {
				local = append(local[:i:i], local[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			return local
		}
	}
}

func TestRosterApply_AddsAndRemoves(t *testing.T) {
	r := NewRoster(members(1, 2)...)
	two := r.Members()[1]

	d := r.Apply(members(2, 3))

	assert.Equal(t, []int64{2, 3}, ids(r.Members()))
	assert.Same(t, two, r.Members()[0])
	assert.Equal(t, []int64{3}, ids(d.Added))
	assert.Equal(t, []int64{1}, ids(d.Removed))
	assert.True(t, d.Changed())
}

func TestRosterApply_EmptyIncomingClears(t *testing.T) {
	for _, incoming := range [][]*model.TeamMember{nil, {}} {
		r := NewRoster(members(1, 2, 3)...)
		d := r.Apply(incoming)
		assert.Zero(t, r.Len())
		assert.Len(t, d.Removed, 3)
	}
}

func TestRosterApply_MembershipOnly(t *testing.T) {
	local := &model.TeamMember{ID: 5, FirstName: "Ana"}
	r := NewRoster(local)

	d := r.Apply([]*model.TeamMember{{ID: 5, FirstName: "Anabela"}})

	assert.False(t, d.Changed())
	assert.Same(t, local, r.Members()[0])
	assert.Equal(t, "Ana", r.Members()[0].FirstName)

	require.True(t, r.Update(&model.TeamMember{ID: 5, FirstName: "Anabela"}))
	assert.Same(t, local, r.Members()[0])
	assert.Equal(t, "Anabela", local.FirstName)
	assert.False(t, r.Update(&model.TeamMember{ID: 99}))
}

func TestRosterApply_DuplicateIncomingIDsAddedOnce(t *testing.T) {
	r := NewRoster()
	r.Apply(members(4, 4, 5))
	assert.Equal(t, []int64{4, 5}, ids(r.Members()))
}

func TestRosterApply_ConvergesAndPreservesIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pick := func() []int64 {
		var out []int64
		for id := int64(1); id <= 12; id++ {
			if rng.Intn(2) == 0 {
				out = append(out, id)
			}
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	for i := 0; i < 200; i++ {
		localIDs, incomingIDs := pick(), pick()
		local := members(localIDs...)
		incoming := members(incomingIDs...)

		before := map[int64]*model.TeamMember{}
		for _, m := range local {
			before[m.ID] = m
		}

		r := NewRoster(local...)
		r.Apply(incoming)

		got := ids(r.Members())
		want := append([]int64(nil), incomingIDs...)
		sorted := func(xs []int64) []int64 {
			ys := append([]int64(nil), xs...)
			sort.Slice(ys, func(a, b int) bool { return ys[a] < ys[b] })
			return ys
		}
		if diff := cmp.Diff(sorted(want), sorted(got)); diff != "" {
			t.Fatalf("key sets differ (-want +got):\n%s", diff)
		}
		for _, m := range r.Members() {
			if prev, ok := before[m.ID]; ok && prev != m {
				t.Fatalf("member %d was reconstructed", m.ID)
			}
		}

		oracle := removeOneRescan(members(localIDs...), members(incomingIDs...))
		if diff := cmp.Diff(ids(oracle), got); diff != "" {
			t.Fatalf("order differs from remove-one-rescan (-want +got):\n%s", diff)
		}
	}
}
