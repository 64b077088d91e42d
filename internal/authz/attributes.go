package authz

import (
	"sort"
	"strings"
)

type filterKind int

const (
	filterAll filterKind = iota
	filterWhitelist
	filterBlacklist
)

// AttributeFilter is the field-level scope attached to a granted
// permission: everything, an explicit whitelist, or everything minus a
// blacklist. The persisted string form ("*", plain names, "!"-prefixed
// names) is parsed into this variant once, at registry build time.
type AttributeFilter struct {
	kind   filterKind
	fields map[string]struct{}
}

func AllAttributes() AttributeFilter {
	return AttributeFilter{kind: filterAll}
}

func Whitelist(names ...string) AttributeFilter {
	return AttributeFilter{kind: filterWhitelist, fields: toSet(names)}
}

func Blacklist(names ...string) AttributeFilter {
	return AttributeFilter{kind: filterBlacklist, fields: toSet(names)}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// ParseAttributes converts the persisted attribute list. A lone "*"
// grants everything; a "!" prefix anywhere makes the list a blacklist
// of the prefixed names.
func ParseAttributes(list []string) AttributeFilter {
	if len(list) == 0 {
		return Whitelist()
	}
	if len(list) == 1 && list[0] == "*" {
		return AllAttributes()
	}

	var excluded, included []string
	for _, entry := range list {
		if entry == "*" {
			continue
		}
		if strings.HasPrefix(entry, "!") {
			excluded = append(excluded, strings.TrimPrefix(entry, "!"))
			continue
		}
		included = append(included, entry)
	}
	if len(excluded) > 0 {
		return Blacklist(excluded...)
	}
	return Whitelist(included...)
}

// Allows reports whether a single field passes the filter. The schema
// bound is checked by the projector, not here.
func (f AttributeFilter) Allows(field string) bool {
	switch f.kind {
	case filterAll:
		return true
	case filterWhitelist:
		_, ok := f.fields[field]
		return ok
	case filterBlacklist:
		_, ok := f.fields[field]
		return !ok
	}
	return false
}

// IsAll reports the wildcard case.
func (f AttributeFilter) IsAll() bool {
	return f.kind == filterAll
}

// Strings renders the filter back into its persisted form.
func (f AttributeFilter) Strings() []string {
	switch f.kind {
	case filterAll:
		return []string{"*"}
	case filterBlacklist:
		out := make([]string, 0, len(f.fields))
		for n := range f.fields {
			out = append(out, "!"+n)
		}
		sort.Strings(out)
		return out
	default:
		out := make([]string, 0, len(f.fields))
		for n := range f.fields {
			out = append(out, n)
		}
		sort.Strings(out)
		return out
	}
}
