package checksum

import "sort"

// Classification labels what happened to one identity between two digests.
type Classification string

const (
	Unchanged         Classification = "unchanged"
	ExpectedChanged   Classification = "expected-changed"
	UnexpectedChanged Classification = "unexpected-changed"
	Added             Classification = "added"
	Removed           Classification = "removed"
)

// Scope is the set of identity values a deployment action is permitted to
// modify. The zero value (and NewScope with no arguments) permits nothing:
// with an empty scope every leaf change is classified unexpected-changed,
// which is the mechanism for asserting that nothing outside the declared
// scope moved.
type Scope struct {
	allowed map[string]struct{}
}

// NewScope builds a scope from the permitted identity values.
func NewScope(identities ...string) Scope {
	s := Scope{allowed: make(map[string]struct{}, len(identities))}
	for _, id := range identities {
		s.allowed[id] = struct{}{}
	}
	return s
}

// Contains reports whether the identity is permitted to change.
func (s Scope) Contains(identity string) bool {
	_, ok := s.allowed[identity]
	return ok
}

// Identities returns the scope members in sorted order.
func (s Scope) Identities() []string {
	ids := make([]string, 0, len(s.allowed))
	for id := range s.allowed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Change is the diff outcome for one identity.
type Change struct {
	Identity string         `json:"identity"`
	Class    Classification `json:"class"`
	InScope  bool           `json:"in_scope"`
}

// DiffResult holds the per-identity classification between two digests.
type DiffResult struct {
	Changes []Change `json:"changes"`
}

// Diff classifies every identity present in either digest.
// Changes to in-scope identities are expected-changed; everything else
// that moved is unexpected-changed. Additions and removals carry their
// scope membership so callers can tell an authorized removal from an
// out-of-scope one.
func Diff(before, after Digest, scope Scope) DiffResult {
	identities := make(map[string]struct{}, len(before.Leaves)+len(after.Leaves))
	for id := range before.Leaves {
		identities[id] = struct{}{}
	}
	for id := range after.Leaves {
		identities[id] = struct{}{}
	}

	changes := make([]Change, 0, len(identities))
	for id := range identities {
		prev, inBefore := before.Leaves[id]
		next, inAfter := after.Leaves[id]
		inScope := scope.Contains(id)

		var class Classification
		switch {
		case !inBefore:
			class = Added
		case !inAfter:
			class = Removed
		case prev == next:
			class = Unchanged
		case inScope:
			class = ExpectedChanged
		default:
			class = UnexpectedChanged
		}

		changes = append(changes, Change{Identity: id, Class: class, InScope: inScope})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Identity < changes[j].Identity })
	return DiffResult{Changes: changes}
}

// ScopeViolations returns the identities whose change the scope does not
// authorize: unexpected-changed records, plus additions and removals
// outside scope. An out-of-scope insert or delete moves data the
// deployment was never authorized to touch, the same as an edit.
func (r DiffResult) ScopeViolations() []Change {
	var out []Change
	for _, c := range r.Changes {
		switch c.Class {
		case UnexpectedChanged:
			out = append(out, c)
		case Added, Removed:
			if !c.InScope {
				out = append(out, c)
			}
		}
	}
	return out
}
