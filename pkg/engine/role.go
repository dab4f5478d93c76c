package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role identifies one specialized analysis agent.
type Role string

const (
	RoleVulnerability Role = "vulnerability"
	RoleExploit       Role = "exploit"
	RoleFix           Role = "fix"
	RoleEconomic      Role = "economic"
	RoleGovernance    Role = "governance"
)

var allRoles = []Role{RoleVulnerability, RoleExploit, RoleFix, RoleEconomic, RoleGovernance}

// AllRoles returns every known role in canonical order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ErrUnknownRole is returned by ParseRole.
var ErrUnknownRole = errors.New("unknown agent role")

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// sortRoles orders roles by name and removes duplicates.
func sortRoles(in []Role) []Role {
	seen := make(map[Role]bool, len(in))
	out := make([]Role, 0, len(in))
	for _, r := range in {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
