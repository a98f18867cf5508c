// Package scope implements the wirus permission-scope model: a flat registry
// of named scopes with a single level of super-scope / child-scope nesting,
// plus the set operations (expand, bind, test) the authorization flows are
// built on. All operations are pure; the registry is read-only after creation.
package scope

import (
	"net/url"
	"strings"
)

// Entry describes one scope in the registry. A scope with Children is a
// super-scope; granting it implies granting every child. Parent is the inverse
// link, used for display grouping only.
type Entry struct {
	Name     string   `json:"name"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Registry maps scope ids to their entries. Nesting is exactly one level deep:
// children are always leaves.
type Registry map[string]Entry

// Set is an ordered collection of scope ids, treated as a set. Duplicates are
// harmless; order only matters for display.
type Set []string

// Default returns the wirus scope registry.
func Default() Registry {
	return Registry{
		"wirus.user.email": {
			Name:   "Email",
			Parent: "wirus.user.read",
		},
		"wirus.user.name": {
			Name:   "Name",
			Parent: "wirus.user.read",
		},
		"wirus.user.location": {
			Name:   "Location",
			Parent: "wirus.user.read",
		},
		"wirus.user.read": {
			Name: "User",
			Children: []string{
				"wirus.user.email",
				"wirus.user.name",
				"wirus.user.location",
			},
		},
		"wirus.platform.read": {
			Name: "Platform",
		},
		"wirus.platform.write": {
			Name: "Platform",
		},
		"wirus.actions.get": {
			Name:   "Action",
			Parent: "wirus.actions.read",
		},
		"wirus.actions.list": {
			Name:   "Actions",
			Parent: "wirus.actions.read",
		},
		"wirus.actions.read": {
			Name: "Actions",
			Children: []string{
				"wirus.actions.get",
				"wirus.actions.list",
			},
		},
		"wirus.actions.create": {
			Name:   "Action",
			Parent: "wirus.actions.write",
		},
		"wirus.actions.complete": {
			Name:   "Action",
			Parent: "wirus.actions.write",
		},
		"wirus.actions.write": {
			Name: "Actions",
			Children: []string{
				"wirus.actions.create",
				"wirus.actions.complete",
			},
		},
	}
}

// Contains reports whether the set holds the given scope id literally, without
// expansion.
func (s Set) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Equal reports whether two sets hold the same scopes, ignoring order and
// duplicates.
func (s Set) Equal(other Set) bool {
	for _, v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	for _, v := range other {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// Expand resolves super-scopes to their children. Every scope found in the
// registry passes through; a super-scope additionally contributes its direct
// children, and is itself kept only when keepParent is set. Unknown scopes are
// dropped. Expansion is a single level: children never expand further.
func (r Registry) Expand(s Set, keepParent bool) Set {
	expanded := Set{}
	for _, id := range s {
		entry, ok := r[id]
		if !ok {
			continue
		}
		if len(entry.Children) > 0 {
			if keepParent {
				expanded = append(expanded, id)
			}
			expanded = append(expanded, entry.Children...)
		} else {
			expanded = append(expanded, id)
		}
	}
	return expanded
}

// Bind reduces a requested scope set to fit within an allowed ceiling. For
// every allowed scope: keep it when requested literally; when it is a
// super-scope and the request names some of its children, keep exactly those
// children instead; otherwise keep the allowed scope as the default grant.
// An empty request therefore yields the full allowed set.
func (r Registry) Bind(requested, allowed Set) Set {
	bound := Set{}
	for _, id := range allowed {
		if requested.Contains(id) {
			bound = append(bound, id)
			continue
		}
		entry, ok := r[id]
		if ok && len(entry.Children) > 0 {
			children := Set{}
			for _, child := range entry.Children {
				if requested.Contains(child) {
					children = append(children, child)
				}
			}
			if len(children) > 0 {
				bound = append(bound, children...)
				continue
			}
		}
		bound = append(bound, id)
	}
	return bound
}

// Test reports whether a granted scope set satisfies every required scope.
// Required super-scopes are replaced by their children before the check, while
// the grant is expanded keeping parents, so a granted super-scope satisfies
// any of its child requirements.
func (r Registry) Test(granted, required Set) bool {
	expRequired := r.Expand(required, false)
	expGranted := r.Expand(granted, true)
	for _, id := range expRequired {
		if !expGranted.Contains(id) {
			return false
		}
	}
	return true
}

// Describe builds the consent-screen text for a scope set: the display names
// of all user scopes, joined with a German conjunction.
func (r Registry) Describe(s Set) string {
	names := []string{}
	for _, id := range r.Expand(s, false) {
		if strings.HasPrefix(id, "wirus.user") {
			names = append(names, r[id].Name)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " und " + names[len(names)-1]
	}
}

// Parse decodes a space-delimited, URL-encoded scope string, as carried in
// query parameters. Malformed escapes yield an empty set.
func Parse(s string) Set {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return nil
	}
	set := Set{}
	for _, id := range strings.Fields(decoded) {
		set = append(set, id)
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Encode serializes a scope set for use in query strings and redirect URIs.
func Encode(s Set) string {
	return url.QueryEscape(strings.Join(s, " "))
}
