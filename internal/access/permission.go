package access

import (
	"fmt"
	"sort"
	"strings"
)

const (
	allToken = "all"
	anyToken = "*"
)

// Action is the verb of a permission. The zero value is invalid.
type Action struct {
	verb string
	all  bool
}

// Action verbs understood by the back office.
var (
	AllActions    = Action{all: true}
	ActionView    = Action{verb: "view"}
	ActionCreate  = Action{verb: "create"}
	ActionUpdate  = Action{verb: "update"}
	ActionDelete  = Action{verb: "delete"}
	ActionApprove = Action{verb: "approve"}
	ActionExport  = Action{verb: "export"}
)

var knownActions = map[string]Action{
	allToken:           AllActions,
	ActionView.verb:    ActionView,
	ActionCreate.verb:  ActionCreate,
	ActionUpdate.verb:  ActionUpdate,
	ActionDelete.verb:  ActionDelete,
	ActionApprove.verb: ActionApprove,
	ActionExport.verb:  ActionExport,
}

// ParseAction converts a stored token into an Action. Tokens are matched exactly.
func ParseAction(raw string) (Action, error) {
	a, ok := knownActions[raw]
	if !ok {
		return Action{}, fmt.Errorf("access: unknown action %q", raw)
	}
	return a, nil
}

// IsAll reports whether a is the wildcard action.
func (a Action) IsAll() bool { return a.all }

// IsZero reports whether a was never set.
func (a Action) IsZero() bool { return !a.all && a.verb == "" }

func (a Action) String() string {
	if a.all {
		return allToken
	}
	return a.verb
}

// Resource is the noun of a permission, either a concrete name or the wildcard.
type Resource struct {
	name string
	any  bool
}

// AnyResource matches every resource of a module.
var AnyResource = Resource{any: true}

// SpecificResource returns a concrete resource. The wire token "*" yields AnyResource.
func SpecificResource(name string) Resource {
	if name == anyToken {
		return AnyResource
	}
	return Resource{name: name}
}

// IsAny reports whether r is the wildcard resource.
func (r Resource) IsAny() bool { return r.any }

// IsZero reports whether r was never set.
func (r Resource) IsZero() bool { return !r.any && r.name == "" }

func (r Resource) String() string {
	if r.any {
		return anyToken
	}
	return r.name
}

// Permission is a single (module, action, resource) grant. Equality is structural.
type Permission struct {
	Module   string
	Action   Action
	Resource Resource
}

// NewPermission builds a permission from its stored tokens.
func NewPermission(module, action, resource string) (Permission, error) {
	if module == "" {
		return Permission{}, fmt.Errorf("access: permission module required")
	}
	a, err := ParseAction(action)
	if err != nil {
		return Permission{}, err
	}
	if resource == "" {
		return Permission{}, fmt.Errorf("access: permission resource required")
	}
	return Permission{Module: module, Action: a, Resource: SpecificResource(resource)}, nil
}

// MustPermission is NewPermission for static tables; it panics on invalid tokens.
func MustPermission(module, action, resource string) Permission {
	p, err := NewPermission(module, action, resource)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Permission) String() string {
	return p.Module + ":" + p.Action.String() + ":" + p.Resource.String()
}

// SystemWildcard grants everything regardless of module, action or resource.
var SystemWildcard = Permission{Module: "system", Action: AllActions, Resource: AnyResource}

// PermissionSet is an immutable snapshot of a principal's grants.
// The zero value is an empty set.
type PermissionSet struct {
	grants map[Permission]struct{}
}

// NewPermissionSet copies perms into a new set. Zero-valued records are ignored.
func NewPermissionSet(perms ...Permission) PermissionSet {
	grants := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if p.Module == "" || p.Action.IsZero() || p.Resource.IsZero() {
			continue
		}
		grants[p] = struct{}{}
	}
	return PermissionSet{grants: grants}
}

// RawPermission is the wire shape of a permission record.
type RawPermission struct {
	Module   string `json:"module" yaml:"module"`
	Action   string `json:"action" yaml:"action"`
	Resource string `json:"resource" yaml:"resource"`
}

// PermissionSetFromRaw builds a set from wire records. Malformed records are skipped
// and returned separately so callers can report them.
func PermissionSetFromRaw(raw []RawPermission) (PermissionSet, []RawPermission) {
	perms := make([]Permission, 0, len(raw))
	var rejected []RawPermission
	for _, r := range raw {
		p, err := NewPermission(strings.TrimSpace(r.Module), strings.TrimSpace(r.Action), strings.TrimSpace(r.Resource))
		if err != nil {
			rejected = append(rejected, r)
			continue
		}
		perms = append(perms, p)
	}
	return NewPermissionSet(perms...), rejected
}

// Len returns the number of grants.
func (s PermissionSet) Len() int { return len(s.grants) }

// Contains reports whether p is granted verbatim.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s.grants[p]
	return ok
}

// List returns the grants sorted by their string form.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s.grants))
	for p := range s.grants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Raw converts the set back to its wire shape.
func (s PermissionSet) Raw() []RawPermission {
	list := s.List()
	out := make([]RawPermission, 0, len(list))
	for _, p := range list {
		out = append(out, RawPermission{Module: p.Module, Action: p.Action.String(), Resource: p.Resource.String()})
	}
	return out
}
