// Package session exposes the signed-in user to the rest of the editor.
package session

import "strings"

// Context is read-only once constructed.
type Context struct {
	userID int64
	email  string
}

func New(userID int64, email string) Context {
	return Context{userID: userID, email: strings.TrimSpace(email)}
}

func (c Context) UserID() int64 { return c.userID }

func (c Context) Email() string { return c.email }

// IsSelf reports whether id is the signed-in user. An anonymous session matches nobody.
func (c Context) IsSelf(id int64) bool {
	return c.userID != 0 && c.userID == id
}
