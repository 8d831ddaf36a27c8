package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// RouteRule maps a URL path pattern to the permissions (or role) required
// to enter it. Patterns are slash-separated and support three segment
// kinds:
//
//	literal   /admin/users
//	:param    /admin/users/:id        matches exactly one segment
//	trailing* /admin/reports/*        matches the prefix and anything below
//
// Exactly one of RequiredPermissions or RequiredRoleID should be set; a
// rule with neither admits any authenticated principal that passed the
// role checks.
type RouteRule struct {
	Pattern             string
	RequiredPermissions []string
	RequiredRoleID      int64
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind  segmentKind
	value string
}

type compiledRule struct {
	rule        RouteRule
	segments    []segment
	exact       bool
	staticCount int
	paramCount  int
	order       int
}

// RouteTable resolves request paths to route rules with a deterministic
// specificity order:
//
//  1. exact patterns (no params, no wildcard)
//  2. parameterized patterns: more literal segments first, then fewer
//     params
//  3. wildcard patterns: longer literal prefix first
//
// Ties at every level break by declaration order. Unmatched paths resolve
// to nil, which callers must treat as deny.
type RouteTable struct {
	rules []compiledRule
}

// NewRouteTable compiles and orders the rule set.
func NewRouteTable(rules []RouteRule) (*RouteTable, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		cr, err := compileRule(rule, i)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return moreSpecific(compiled[i], compiled[j])
	})
	return &RouteTable{rules: compiled}, nil
}

// Resolve returns the most specific rule matching path, or nil when no
// rule matches.
func (t *RouteTable) Resolve(path string) *RouteRule {
	parts := splitPath(path)
	for i := range t.rules {
		if t.rules[i].match(parts) {
			return &t.rules[i].rule
		}
	}
	return nil
}

func compileRule(rule RouteRule, order int) (compiledRule, error) {
	pattern := strings.TrimSpace(rule.Pattern)
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return compiledRule{}, fmt.Errorf("rbac: route pattern %q must start with /", rule.Pattern)
	}
	cr := compiledRule{rule: rule, order: order}
	for i, raw := range splitPath(pattern) {
		switch {
		case raw == "*":
			if i != len(splitPath(pattern))-1 {
				return compiledRule{}, fmt.Errorf("rbac: route pattern %q: * allowed only as last segment", rule.Pattern)
			}
			cr.segments = append(cr.segments, segment{kind: segWildcard})
		case strings.HasPrefix(raw, ":"):
			if len(raw) == 1 {
				return compiledRule{}, fmt.Errorf("rbac: route pattern %q: empty parameter name", rule.Pattern)
			}
			cr.segments = append(cr.segments, segment{kind: segParam, value: raw[1:]})
			cr.paramCount++
		default:
			cr.segments = append(cr.segments, segment{kind: segLiteral, value: raw})
			cr.staticCount++
		}
	}
	cr.exact = cr.paramCount == 0 && !cr.hasWildcard()
	return cr, nil
}

func (c compiledRule) hasWildcard() bool {
	return len(c.segments) > 0 && c.segments[len(c.segments)-1].kind == segWildcard
}

func (c compiledRule) match(parts []string) bool {
	wildcard := c.hasWildcard()
	fixed := c.segments
	if wildcard {
		fixed = c.segments[:len(c.segments)-1]
	}
	if wildcard {
		if len(parts) < len(fixed) {
			return false
		}
	} else if len(parts) != len(fixed) {
		return false
	}
	for i, seg := range fixed {
		switch seg.kind {
		case segLiteral:
			if parts[i] != seg.value {
				return false
			}
		case segParam:
			if parts[i] == "" {
				return false
			}
		}
	}
	return true
}

func moreSpecific(a, b compiledRule) bool {
	if a.exact != b.exact {
		return a.exact
	}
	aw, bw := a.hasWildcard(), b.hasWildcard()
	if aw != bw {
		return !aw
	}
	if a.staticCount != b.staticCount {
		return a.staticCount > b.staticCount
	}
	if a.paramCount != b.paramCount {
		return a.paramCount < b.paramCount
	}
	return a.order < b.order
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
