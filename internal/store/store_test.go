package store

import (
	"context"
	"errors"
	"testing"

	"deckhand/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PresentationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := &model.Presentation{Name: "  Q3  ", Width: 1920, Height: 1080, OwnerID: 1}
	if err := s.CreatePresentation(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == model.UnsetID || p.Name != "Q3" {
		t.Fatalf("unexpected created presentation: %+v", p)
	}

	p.Description = "numbers"
	if err := s.UpdatePresentation(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetPresentation(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "numbers" || got.Width != 1920 {
		t.Fatalf("unexpected presentation: %+v", got)
	}

	all, err := s.ListPresentations(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v %v", all, err)
	}

	if err := s.CreatePresentation(ctx, &model.Presentation{Name: " "}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetPresentation(ctx, 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "presentation" || nf.ID != 99 {
		t.Fatalf("unexpected error: %#v", err)
	}
	if err := s.UpdateElement(ctx, &model.Element{ID: 1, SlideID: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for element on missing slide, got %v", err)
	}
	if err := s.RemoveMember(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing member, got %v", err)
	}
}

func TestStore_SlidesCarryOrderedElements(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := &model.Presentation{Name: "Deck"}
	if err := s.CreatePresentation(ctx, p); err != nil {
		t.Fatalf("create presentation: %v", err)
	}
	second := &model.Slide{PresentationID: p.ID, Name: "Second", Order: 2}
	first := &model.Slide{PresentationID: p.ID, Name: "First", Order: 1}
	for _, sl := range []*model.Slide{second, first} {
		if err := s.CreateSlide(ctx, sl); err != nil {
			t.Fatalf("create slide: %v", err)
		}
	}
	for _, el := range []*model.Element{
		{SlideID: first.ID, Name: "B", Kind: model.ElementShape, Order: 3, Locked: true},
		{SlideID: first.ID, Name: "A", Kind: model.ElementText, Order: 1, X: 1.5},
		{SlideID: second.ID, Name: "C", Kind: model.ElementChart, Order: 1, Copied: true},
	} {
		if err := s.CreateElement(ctx, el); err != nil {
			t.Fatalf("create element: %v", err)
		}
	}

	slides, err := s.ListSlides(ctx, p.ID)
	if err != nil {
		t.Fatalf("list slides: %v", err)
	}
	if len(slides) != 2 || slides[0].Name != "First" || slides[1].Name != "Second" {
		t.Fatalf("unexpected slide order: %+v", slides)
	}
	if len(slides[0].Elements) != 2 || slides[0].Elements[0].Name != "A" || !slides[0].Elements[1].Locked {
		t.Fatalf("unexpected elements: %+v", slides[0].Elements)
	}
	if slides[0].Elements[0].X != 1.5 {
		t.Fatalf("expected x=1.5, got %v", slides[0].Elements[0].X)
	}
	if !slides[1].Elements[0].Copied || slides[1].Elements[0].Kind != model.ElementChart {
		t.Fatalf("unexpected element: %+v", slides[1].Elements[0])
	}

	if err := s.UpdateSlideNotes(ctx, first.ID, "# speaker"); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	got, err := s.GetSlide(ctx, first.ID)
	if err != nil || got.Notes != "# speaker" {
		t.Fatalf("notes not stored: %+v %v", got, err)
	}

	if err := s.CreateSlide(ctx, &model.Slide{PresentationID: 42}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing presentation, got %v", err)
	}
}

func TestStore_UpdateElement(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := &model.Presentation{Name: "Deck"}
	_ = s.CreatePresentation(ctx, p)
	sl := &model.Slide{PresentationID: p.ID, Order: 1}
	_ = s.CreateSlide(ctx, sl)
	el := &model.Element{SlideID: sl.ID, Name: "Title", Order: 1}
	if err := s.CreateElement(ctx, el); err != nil {
		t.Fatalf("create element: %v", err)
	}

	el.Content = "Hello"
	if err := s.UpdateElement(ctx, el); err != nil {
		t.Fatalf("update element: %v", err)
	}
	got, err := s.GetElement(ctx, el.ID)
	if err != nil || got.Content != "Hello" {
		t.Fatalf("unexpected element: %+v %v", got, err)
	}
}

func TestStore_Team(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ana := &model.TeamMember{Email: " Ana@Example.com ", FirstName: "Ana"}
	if err := s.AddMember(ctx, ana); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ana.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", ana.Email)
	}
	if err := s.AddMember(ctx, &model.TeamMember{Email: "ANA@example.com"}); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
	bo := &model.TeamMember{Email: "bo@example.com"}
	_ = s.AddMember(ctx, bo)

	edit := &model.TeamMember{ID: bo.ID, Email: "ignored@example.com", FirstName: " Bo "}
	if err := s.UpdateMember(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}
	if edit.Email != "bo@example.com" || edit.FirstName != "Bo" {
		t.Fatalf("unexpected member after update: %+v", edit)
	}
	if err := s.UpdateMember(ctx, &model.TeamMember{ID: 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.RemoveMember(ctx, ana.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	team, err := s.ListTeam(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(team) != 1 || team[0].ID != bo.ID || team[0].FirstName != "Bo" {
		t.Fatalf("unexpected team: %+v", team)
	}
}

func TestStore_SharingReplaceKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := &model.Presentation{Name: "Deck"}
	_ = s.CreatePresentation(ctx, p)

	empty, err := s.GetSharing(ctx, p.ID)
	if err != nil || len(empty.Users) != 0 {
		t.Fatalf("expected empty status: %+v %v", empty, err)
	}

	st := &model.SharingStatus{PresentationID: p.ID, Users: []*model.SharingUser{
		{InviteEmail: "z@example.com"},
		{UserID: 2, Accepted: true},
	}}
	if err := s.ReplaceSharing(ctx, st); err != nil {
		t.Fatalf("replace: %v", err)
	}
	st.Users = st.Users[1:]
	if err := s.ReplaceSharing(ctx, st); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, err := s.GetSharing(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Users) != 1 || got.Users[0].UserID != 2 || !got.Users[0].Accepted {
		t.Fatalf("unexpected users: %+v", got.Users)
	}
}

func TestOpen_Reopens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.CreatePresentation(ctx, &model.Presentation{Name: "Keep"})
	_ = s.Close()

	s2, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	all, _ := s2.ListPresentations(ctx)
	if len(all) != 1 || all[0].Name != "Keep" {
		t.Fatalf("data not persisted: %+v", all)
	}
}
