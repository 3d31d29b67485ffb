package walker

import (
	"fmt"
	"strings"
)

// Scope limits how far a walk follows references out of the code it starts
// in. Scopes are ordered by permissiveness; a walk's scope never changes.
type Scope uint8

const (
	// ScopeMember never leaves the root's own code.
	ScopeMember Scope = iota
	// ScopeInstance follows instance members of the containing type (and its
	// bases) reached through this, base, or an implicit this.
	ScopeInstance
	// ScopeType also follows static members of the containing type and of
	// types related to it by inheritance.
	ScopeType
	// ScopeRecursive follows everything that resolves.
	ScopeRecursive
)

var scopeNames = [...]string{
	ScopeMember:    "member",
	ScopeInstance:  "instance",
	ScopeType:      "type",
	ScopeRecursive: "recursive",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("Scope(%d)", uint8(s))
}

// ParseScope parses a scope name case-insensitively.
func ParseScope(name string) (Scope, error) {
	for i, n := range scopeNames {
		if strings.EqualFold(name, n) {
			return Scope(i), nil
		}
	}
	return ScopeMember, fmt.Errorf("unknown scope %q (want member, instance, type or recursive)", name)
}
