package models

import "strings"

type Role int

const (
	Member Role = iota
	Admin
)

func (r Role) String() string {
	switch r {
	case Admin:
		return "admin"
	default:
		return "member"
	}
}

// ParseRole maps a lowercase role label back to a Role. Unknown labels are members.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), "admin") {
		return Admin
	}
	return Member
}

// Upgrade returns the stronger of the two roles. Roles only ever move member -> admin.
func (r Role) Upgrade(seen Role) Role {
	if seen == Admin {
		return Admin
	}
	return r
}
