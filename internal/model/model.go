package model

import (
	"strings"

	"github.com/google/uuid"
)

// UnsetID marks an entity (or a reference to one) that the server has not assigned yet.
const UnsetID int64 = 0

// UnsetOrder marks an element or slide whose order has not been assigned.
const UnsetOrder int64 = 0

var presentationFields = []string{"id", "name", "description", "width", "height", "ownerId"}

type Presentation struct {
	ID          int64
	Name        string
	Description string
	Width       int64
	Height      int64
	OwnerID     int64
}

func (p *Presentation) Load(r Record) {
	r = Normalize(r, presentationFields...)
	*p = Presentation{
		ID:          r.Int("id"),
		Name:        r.String("name"),
		Description: r.String("description"),
		Width:       r.Int("width"),
		Height:      r.Int("height"),
		OwnerID:     r.Int("ownerId"),
	}
}

func (p *Presentation) Serialize() Record {
	return Record{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"width":       p.Width,
		"height":      p.Height,
		"ownerId":     p.OwnerID,
	}
}

var slideFields = []string{"id", "presentationId", "name", "order", "notes", "elements"}

type Slide struct {
	ID             int64
	PresentationID int64
	Name           string
	Order          int64
	Notes          string
	Elements       []*Element
}

func (s *Slide) Load(r Record) {
	r = Normalize(r, slideFields...)
	*s = Slide{
		ID:             r.Int("id"),
		PresentationID: r.Int("presentationId"),
		Name:           r.String("name"),
		Order:          r.Int("order"),
		Notes:          r.String("notes"),
	}
	for _, er := range r.Records("elements") {
		s.Elements = append(s.Elements, ElementFromRecord(er))
	}
}

func (s *Slide) Serialize() Record {
	elements := make([]any, 0, len(s.Elements))
	for _, e := range s.Elements {
		elements = append(elements, e.Serialize())
	}
	return Record{
		"id":             s.ID,
		"presentationId": s.PresentationID,
		"name":           s.Name,
		"order":          s.Order,
		"notes":          s.Notes,
		"elements":       elements,
	}
}

func SlideFromRecord(r Record) *Slide {
	s := &Slide{}
	s.Load(r)
	return s
}

var elementFields = []string{
	"id", "slideId", "name", "kind", "order",
	"x", "y", "width", "height",
	"locked", "copied", "content",
}

type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementImage ElementKind = "image"
	ElementChart ElementKind = "chart"
	ElementShape ElementKind = "shape"
)

type Element struct {
	ID      int64
	SlideID int64
	Name    string
	Kind    ElementKind
	Order   int64

	// Explicit positioning offsets.
	X      float64
	Y      float64
	Width  float64
	Height float64

	Locked  bool
	Copied  bool
	Content string

	// LocalKey identifies the element on this client, including before the server has
	// assigned an ID. It is not part of the serialized record.
	LocalKey string
}

// NewElement returns an unsaved element with a fresh local key.
func NewElement(kind ElementKind, name string) *Element {
	return &Element{Kind: kind, Name: name, LocalKey: uuid.NewString()}
}

func (e *Element) Load(r Record) {
	r = Normalize(r, elementFields...)
	key := e.LocalKey
	*e = Element{
		ID:       r.Int("id"),
		SlideID:  r.Int("slideId"),
		Name:     r.String("name"),
		Kind:     ElementKind(r.String("kind")),
		Order:    r.Int("order"),
		X:        r.Float("x"),
		Y:        r.Float("y"),
		Width:    r.Float("width"),
		Height:   r.Float("height"),
		Locked:   r.Bool("locked"),
		Copied:   r.Bool("copied"),
		Content:  r.String("content"),
		LocalKey: key,
	}
	if e.LocalKey == "" {
		e.LocalKey = uuid.NewString()
	}
}

func (e *Element) Serialize() Record {
	return Record{
		"id":      e.ID,
		"slideId": e.SlideID,
		"name":    e.Name,
		"kind":    string(e.Kind),
		"order":   e.Order,
		"x":       e.X,
		"y":       e.Y,
		"width":   e.Width,
		"height":  e.Height,
		"locked":  e.Locked,
		"copied":  e.Copied,
		"content": e.Content,
	}
}

func ElementFromRecord(r Record) *Element {
	e := &Element{}
	e.Load(r)
	return e
}

var teamMemberFields = []string{"id", "email", "firstName", "lastName", "avatarUrl"}

type TeamMember struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

func (m *TeamMember) Load(r Record) {
	r = Normalize(r, teamMemberFields...)
	*m = TeamMember{
		ID:        r.Int("id"),
		Email:     r.String("email"),
		FirstName: r.String("firstName"),
		LastName:  r.String("lastName"),
		AvatarURL: r.String("avatarUrl"),
	}
}

func (m *TeamMember) Serialize() Record {
	return Record{
		"id":        m.ID,
		"email":     m.Email,
		"firstName": m.FirstName,
		"lastName":  m.LastName,
		"avatarUrl": m.AvatarURL,
	}
}

// DisplayName falls back to the email when no name is known.
func (m *TeamMember) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" {
		return m.Email
	}
	return name
}

func TeamMemberFromRecord(r Record) *TeamMember {
	m := &TeamMember{}
	m.Load(r)
	return m
}

// TeamFromRecords decodes a team payload, dropping entries without an id.
func TeamFromRecords(rs []Record) []*TeamMember {
	out := make([]*TeamMember, 0, len(rs))
	for _, r := range rs {
		m := TeamMemberFromRecord(r)
		if m.ID == UnsetID {
			continue
		}
		out = append(out, m)
	}
	return out
}

var sharingUserFields = []string{"userId", "inviteEmail", "accepted"}

type SharingUser struct {
	UserID      int64
	InviteEmail string
	Accepted    bool
}

func (u *SharingUser) Load(r Record) {
	r = Normalize(r, sharingUserFields...)
	*u = SharingUser{
		UserID:      r.Int("userId"),
		InviteEmail: r.String("inviteEmail"),
		Accepted:    r.Bool("accepted"),
	}
}

func (u *SharingUser) Serialize() Record {
	return Record{
		"userId":      u.UserID,
		"inviteEmail": u.InviteEmail,
		"accepted":    u.Accepted,
	}
}

func (u *SharingUser) Clone() *SharingUser {
	c := *u
	return &c
}

var sharingStatusFields = []string{"presentationId", "users"}

// SharingStatus is the per-presentation sharing state held by the status cache.
type SharingStatus struct {
	PresentationID int64
	Users          []*SharingUser
}

func (s *SharingStatus) Load(r Record) {
	r = Normalize(r, sharingStatusFields...)
	*s = SharingStatus{PresentationID: r.Int("presentationId")}
	for _, ur := range r.Records("users") {
		u := &SharingUser{}
		u.Load(ur)
		s.Users = append(s.Users, u)
	}
}

func (s *SharingStatus) Serialize() Record {
	users := make([]any, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, u.Serialize())
	}
	return Record{
		"presentationId": s.PresentationID,
		"users":          users,
	}
}

// Clone copies the status and every user in it.
func (s *SharingStatus) Clone() *SharingStatus {
	out := &SharingStatus{PresentationID: s.PresentationID}
	for _, u := range s.Users {
		out.Users = append(out.Users, u.Clone())
	}
	return out
}

func SharingStatusFromRecord(r Record) *SharingStatus {
	s := &SharingStatus{}
	s.Load(r)
	return s
}
