package auth

import (
	"strings"

	"github.com/google/uuid"
)

const RoleAdmin = "Admin"

// Caller is the identity resolved from the request token.
// Employees are scoped to members whose owner matches Name, ignoring case and surrounding space.
type Caller struct {
	ID   uuid.UUID
	Name string
	Role string
}

func (c *Caller) Privileged() bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.Role), RoleAdmin)
}

// CanAccessOwner reports whether c may act on records owned by owner.
func (c *Caller) CanAccessOwner(owner string) bool {
	if c == nil {
		return false
	}
	return c.Privileged() || SameOwner(c.Name, owner)
}

// SameOwner is the one owner-matching rule used by repos, reports and access checks.
func SameOwner(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
