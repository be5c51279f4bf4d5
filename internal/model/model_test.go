package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditable_RoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		build func() Editable
		fresh func() Editable
	}{
		{
			name: "presentation",
			build: func() Editable {
				return &Presentation{ID: 7, Name: "Q3 review", Description: "numbers", Width: 1920, Height: 1080, OwnerID: 3}
			},
			fresh: func() Editable { return &Presentation{} },
		},
		{
			name: "slide with elements",
			build: func() Editable {
				return &Slide{ID: 2, PresentationID: 7, Name: "Intro", Order: 1, Notes: "# hello", Elements: []*Element{
					{ID: 10, SlideID: 2, Name: "Title", Kind: ElementText, Order: 1, X: 10, Y: 20, Width: 300, Height: 40, Content: "Hi"},
					{ID: 11, SlideID: 2, Name: "Chart", Kind: ElementChart, Order: 2, Locked: true},
				}}
			},
			fresh: func() Editable { return &Slide{} },
		},
		{
			name: "team member",
			build: func() Editable {
				return &TeamMember{ID: 4, Email: "ana@example.com", FirstName: "Ana", LastName: "Lima"}
			},
			fresh: func() Editable { return &TeamMember{} },
		},
		{
			name: "sharing status",
			build: func() Editable {
				return &SharingStatus{PresentationID: 7, Users: []*SharingUser{
					{UserID: 4, InviteEmail: "ana@example.com", Accepted: true},
					{InviteEmail: "new@example.com"},
				}}
			},
			fresh: func() Editable { return &SharingStatus{} },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := tc.build()
			want := orig.Serialize()

			got := tc.fresh()
			got.Load(want)
			if diff := cmp.Diff(want, got.Serialize()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEditable_RoundTripThroughJSON(t *testing.T) {
	e := &Element{ID: 5, SlideID: 1, Name: "Logo", Kind: ElementImage, Order: 3, X: 1.5, Y: 2, Width: 64, Height: 64}
	b, err := json.Marshal(e.Serialize())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	got := &Element{}
	got.Load(decoded)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.SlideID, got.SlideID)
	assert.Equal(t, e.Order, got.Order)
	assert.Equal(t, e.Kind, got.Kind)
	assert.InDelta(t, e.X, got.X, 0)
}

func TestLoad_DropsUnknownAndZeroesAbsentFields(t *testing.T) {
	p := &Presentation{ID: 1, Name: "old", Description: "keep?"}
	p.Load(Record{"id": 2, "name": "new", "colour": "red"})

	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "new", p.Name)
	assert.Empty(t, p.Description)
	assert.NotContains(t, p.Serialize(), "colour")
}

func TestNormalize_ToleratesPayloadCasing(t *testing.T) {
	e := ElementFromRecord(Record{"Id": float64(9), "SlideId": "4", "Name": "Box", "order": 2})
	assert.Equal(t, int64(9), e.ID)
	assert.Equal(t, int64(4), e.SlideID)
	assert.Equal(t, "Box", e.Name)
	assert.Equal(t, int64(2), e.Order)

	m := TeamMemberFromRecord(Record{"ID": 3, "first_name": "Rui"})
	assert.Equal(t, int64(3), m.ID)
	assert.Equal(t, "Rui", m.FirstName)
}

func TestNormalize_CanonicalKeyWins(t *testing.T) {
	r := Normalize(Record{"id": 1, "Id": 2}, "id")
	assert.Equal(t, 1, r["id"])
	assert.NotContains(t, r, "Id")
}

func TestNormalize_VariantsResolveDeterministically(t *testing.T) {
	for range 20 {
		r := Normalize(Record{"Id": 2, "ID": 3, "slide_id": 4, "SlideID": 5}, "id", "slideId")
		assert.Equal(t, Record{"id": 3, "slideId": 5}, r)
	}
}

func TestElementLoad_KeepsLocalKey(t *testing.T) {
	e := NewElement(ElementText, "Body")
	key := e.LocalKey
	require.NotEmpty(t, key)

	e.Load(Record{"id": 12, "name": "Body"})
	assert.Equal(t, key, e.LocalKey)
	assert.NotContains(t, e.Serialize(), "localKey")
}

func TestRecordClone_IsDeep(t *testing.T) {
	orig := Record{"name": "Chart", "nested": map[string]any{"a": 1}, "list": []any{Record{"b": 2}}}
	c := orig.Clone()

	c["name"] = "Changed"
	c["nested"].(map[string]any)["a"] = 99
	c["list"].([]any)[0].(Record)["b"] = 99

	assert.Equal(t, "Chart", orig["name"])
	assert.Equal(t, 1, orig["nested"].(map[string]any)["a"])
	assert.Equal(t, 2, orig["list"].([]any)[0].(Record)["b"])
}

func TestTeamFromRecords_SkipsMembersWithoutID(t *testing.T) {
	team := TeamFromRecords([]Record{{"id": 1}, {"email": "x@example.com"}, {"Id": 2}})
	require.Len(t, team, 2)
	assert.Equal(t, int64(1), team[0].ID)
	assert.Equal(t, int64(2), team[1].ID)
}

func TestSharingStatusClone_Decoupled(t *testing.T) {
	s := &SharingStatus{PresentationID: 1, Users: []*SharingUser{{UserID: 2}}}
	c := s.Clone()
	c.Users[0].Accepted = true
	assert.False(t, s.Users[0].Accepted)
}
