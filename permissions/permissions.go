// Package permissions defines the resource/scope grant model and the policy
// that derives a grant set from an identity. Grants are never stored; they are
// recomputed on every token issue so a policy change takes effect on the next
// login.
package permissions

import "strings"

// Scope is a permitted action on a resource.
type Scope string

const (
	ScopeView   Scope = "view"
	ScopeCreate Scope = "create"
	ScopeEdit   Scope = "edit"
	ScopeDelete Scope = "delete"
)

// Resource names used across the service.
const (
	ResourceGift            = "gift"
	ResourceTag             = "tag"
	ResourceGiftReservation = "gift-reservation"
)

// Permission grants a set of scopes on a single resource.
type Permission struct {
	Resource string  `json:"resource"`
	Scopes   []Scope `json:"scopes"`
}

// rule pairs an identity predicate with the grants it yields. Rules are
// evaluated in order; the first match wins.
type rule struct {
	matches func(email string) bool
	grants  []Permission
}

// Resolver maps an identity to its grant set.
type Resolver struct {
	rules []rule
}

// NewResolver builds the default policy: the owner identity receives full
// control over gifts and tags, everyone else gets the guest set.
func NewResolver(ownerEmail string) *Resolver {
	owner := NormalizeIdentity(ownerEmail)

	return &Resolver{
		rules: []rule{
			{
				matches: func(email string) bool { return owner != "" && email == owner },
				grants: []Permission{
					{Resource: ResourceGift, Scopes: []Scope{ScopeView, ScopeCreate, ScopeEdit, ScopeDelete}},
					{Resource: ResourceTag, Scopes: []Scope{ScopeCreate, ScopeEdit, ScopeDelete}},
				},
			},
			{
				matches: func(string) bool { return true },
				grants: []Permission{
					{Resource: ResourceGift, Scopes: []Scope{ScopeView}},
					{Resource: ResourceTag, Scopes: []Scope{ScopeView}},
					{Resource: ResourceGiftReservation, Scopes: []Scope{ScopeCreate, ScopeView, ScopeDelete}},
				},
			},
		},
	}
}

// Resolve returns the grant set for the given identity.
func (r *Resolver) Resolve(email string) []Permission {
	email = NormalizeIdentity(email)
	for _, rule := range r.rules {
		if rule.matches(email) {
			return clone(rule.grants)
		}
	}
	return nil
}

// Satisfies reports whether the granted set covers every required permission:
// for each required resource, the required scopes must be a subset of the
// granted scopes for that resource.
func Satisfies(granted, required []Permission) bool {
	for _, req := range required {
		grant, ok := find(granted, req.Resource)
		if !ok {
			return false
		}
		for _, scope := range req.Scopes {
			if !hasScope(grant.Scopes, scope) {
				return false
			}
		}
	}
	return true
}

// NormalizeIdentity canonicalizes an email for use as a principal key.
func NormalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func find(perms []Permission, resource string) (Permission, bool) {
	for _, p := range perms {
		if p.Resource == resource {
			return p, true
		}
	}
	return Permission{}, false
}

func hasScope(scopes []Scope, scope Scope) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func clone(perms []Permission) []Permission {
	out := make([]Permission, len(perms))
	for i, p := range perms {
		scopes := make([]Scope, len(p.Scopes))
		copy(scopes, p.Scopes)
		out[i] = Permission{Resource: p.Resource, Scopes: scopes}
	}
	return out
}
