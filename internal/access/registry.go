package access

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var validate = validator.New()

// RouteRequirement is the permission a path (or path pattern) demands for entry.
type RouteRequirement struct {
	Pattern  string `validate:"required,startswith=/"`
	Module   string `validate:"required"`
	Action   Action
	Resource Resource
}

// Permission returns the requirement as a permission to test against a set.
func (r RouteRequirement) Permission() Permission {
	return Permission{Module: r.Module, Action: r.Action, Resource: r.Resource}
}

// Require is shorthand for building a RouteRequirement in static tables.
func Require(pattern, module string, action Action, resource string) RouteRequirement {
	return RouteRequirement{Pattern: pattern, Module: module, Action: action, Resource: SpecificResource(resource)}
}

// segment is one parsed token of a route pattern: a literal or a parameter.
type segment struct {
	literal string
	param   bool
}

type compiledRoute struct {
	req      RouteRequirement
	segments []segment
}

// Overlap names two parameterised patterns that can match the same concrete path.
// Resolve returns the one registered first.
type Overlap struct {
	First  string
	Second string
}

// Registry maps application paths to route requirements. It is populated once at
// start-up and read-only afterwards; Register must not race with Resolve.
type Registry struct {
	literals map[string]RouteRequirement
	patterns []compiledRoute
	order    []string
}

// NewRegistry returns a registry populated with reqs in order.
func NewRegistry(reqs ...RouteRequirement) (*Registry, error) {
	r := &Registry{literals: make(map[string]RouteRequirement, len(reqs))}
	for _, req := range reqs {
		if err := r.Register(req); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a requirement. Patterns may hold at most one "{name}" parameter segment.
func (r *Registry) Register(req RouteRequirement) error {
	if err := validate.Struct(req); err != nil {
		return oops.In("access").
			Code("INVALID_REQUIREMENT").
			With("pattern", req.Pattern).
			Wrap(err)
	}
	if req.Action.IsZero() || req.Resource.IsZero() {
		return oops.In("access").
			Code("INVALID_REQUIREMENT").
			With("pattern", req.Pattern).
			New("requirement action and resource are required")
	}
	segments, params, err := parsePattern(req.Pattern)
	if err != nil {
		return err
	}
	if r.literals == nil {
		r.literals = make(map[string]RouteRequirement)
	}
	if r.has(req.Pattern) {
		return oops.In("access").
			Code("DUPLICATE_ROUTE_PATTERN").
			With("pattern", req.Pattern).
			New("route pattern already registered")
	}
	if params == 0 {
		r.literals[req.Pattern] = req
	} else {
		r.patterns = append(r.patterns, compiledRoute{req: req, segments: segments})
	}
	r.order = append(r.order, req.Pattern)
	return nil
}

func (r *Registry) has(pattern string) bool {
	if _, ok := r.literals[pattern]; ok {
		return true
	}
	for _, p := range r.patterns {
		if p.req.Pattern == pattern {
			return true
		}
	}
	return false
}

// Resolve returns the requirement for a concrete path. Literal patterns are tried
// first, then parameterised patterns in registration order.
func (r *Registry) Resolve(path string) (RouteRequirement, bool) {
	if r == nil {
		return RouteRequirement{}, false
	}
	if req, ok := r.literals[path]; ok {
		return req, true
	}
	parts := splitPath(path)
	for _, p := range r.patterns {
		if matchSegments(p.segments, parts) {
			return p.req, true
		}
	}
	return RouteRequirement{}, false
}

// Requirements lists every registered requirement in registration order.
func (r *Registry) Requirements() []RouteRequirement {
	if r == nil {
		return nil
	}
	out := make([]RouteRequirement, 0, len(r.order))
	for _, pattern := range r.order {
		if req, ok := r.literals[pattern]; ok {
			out = append(out, req)
			continue
		}
		for _, p := range r.patterns {
			if p.req.Pattern == pattern {
				out = append(out, p.req)
				break
			}
		}
	}
	return out
}

// Overlaps reports parameterised pattern pairs that could both match one path.
// Literal patterns never appear: they are always tried before any pattern.
func (r *Registry) Overlaps() []Overlap {
	if r == nil {
		return nil
	}
	var out []Overlap
	for i := 0; i < len(r.patterns); i++ {
		for j := i + 1; j < len(r.patterns); j++ {
			if segmentsOverlap(r.patterns[i].segments, r.patterns[j].segments) {
				out = append(out, Overlap{First: r.patterns[i].req.Pattern, Second: r.patterns[j].req.Pattern})
			}
		}
	}
	return out
}

func parsePattern(pattern string) ([]segment, int, error) {
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	params := 0
	for _, part := range parts {
		switch {
		case part == "":
			return nil, 0, oops.In("access").
				Code("INVALID_ROUTE_PATTERN").
				With("pattern", pattern).
				New("empty path segment")
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2:
			params++
			segments = append(segments, segment{param: true})
		case strings.ContainsAny(part, "{}"):
			return nil, 0, oops.In("access").
				Code("INVALID_ROUTE_PATTERN").
				With("pattern", pattern).
				With("segment", part).
				New("malformed parameter segment")
		default:
			segments = append(segments, segment{literal: part})
		}
	}
	if params > 1 {
		return nil, 0, oops.In("access").
			Code("INVALID_ROUTE_PATTERN").
			With("pattern", pattern).
			New("at most one parameter segment is supported")
	}
	return segments, params, nil
}

// splitPath splits "/a/b" into ["a", "b"]. Empty segments are preserved so that
// "/a//b" and "/a/b/" never match a pattern of a different shape.
func splitPath(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(segments []segment, parts []string) bool {
	if len(segments) != len(parts) {
		return false
	}
	for i, seg := range segments {
		if seg.param {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg.literal != parts[i] {
			return false
		}
	}
	return true
}

func segmentsOverlap(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].param || b[i].param {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}
