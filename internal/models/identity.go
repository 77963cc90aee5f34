package models

// Identity is the acting principal of a request: a *User or AnonymousUser.
type Identity interface {
	Can(p Permission) bool
	IsAdministrator() bool
	IsAuthenticated() bool
}

// AnonymousUser is the identity of a visitor without a session.
type AnonymousUser struct{}

func (AnonymousUser) Can(Permission) bool { return false }

func (AnonymousUser) IsAdministrator() bool { return false }

func (AnonymousUser) IsAuthenticated() bool { return false }

var (
	_ Identity = (*User)(nil)
	_ Identity = AnonymousUser{}
)
