package entity

import (
	"fmt"
	"strings"
)

// Role is the account category chosen at registration.
// The set is closed; there is no default role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleEmployer Role = "employer"
)

// Roles lists every accepted role in display order.
func Roles() []Role { return []Role{RoleEmployee, RoleEmployer} }

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleEmployer:
		return true
	}
	return false
}

// ParseRole normalizes s and checks it against the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
