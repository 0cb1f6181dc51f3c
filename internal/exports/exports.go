// Package exports decides which module members are public. The policy is a
// set of pure functions over what an introspector reports, kept apart from
// tree construction so it can be swapped without touching the tree builder.
package exports

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/autoapi/internal/util/sets"
)

// Listings are the two export-listing conventions a module may declare.
// API is the dedicated documentation listing; All is the general one.
type Listings struct {
	API    []string
	All    []string
	HasAPI bool
	HasAll bool
}

// Select returns the names of the listing in effect. API takes precedence over
// All; the two are never merged. ok is false when the module declares neither
// listing, or the one in effect is empty.
func Select(l Listings) (names []string, ok bool) {
	switch {
	case l.HasAPI:
		names = l.API
	case l.HasAll:
		names = l.All
	}
	return dedupe(names), len(names) > 0
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := sets.New[string]()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen.Has(n) {
			continue
		}
		seen.Add(n)
		out = append(out, n)
	}
	return out
}

// Visibility classifies a member name by naming convention.
type Visibility int

const (
	Public Visibility = iota
	Private
	Special
)

// VisibilityOf classifies names: "__x__" is special, "_x" is private.
func VisibilityOf(name string) Visibility {
	switch {
	case len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return Special
	case strings.HasPrefix(name, "_"):
		return Private
	default:
		return Public
	}
}

// Category is an extra member category a module without a listing may admit.
type Category string

const (
	UndocMembers   Category = "undoc-members"
	SpecialMembers Category = "special-members"
	PrivateMembers Category = "private-members"
)

// ParseCategory validates a module-members value.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.TrimSpace(raw)); c {
	case UndocMembers, SpecialMembers, PrivateMembers:
		return c, nil
	default:
		return "", fmt.Errorf("unknown member category %q (want %s, %s or %s)", raw, UndocMembers, SpecialMembers, PrivateMembers)
	}
}

// Candidate is a member considered by Fallback.
type Candidate struct {
	Name       string
	Visibility Visibility
	Documented bool
}

// Fallback picks members of a module that has no export listing. It only
// applies when at least one category is requested: every candidate is then
// admitted unless it is undocumented, private or special and the matching
// category was not requested. Order follows the candidates.
func Fallback(candidates []Candidate, categories sets.Set[Category]) []string {
	if len(categories) == 0 {
		return nil
	}
	var out []string
	for _, c := range candidates {
		if !c.Documented && !categories.Has(UndocMembers) {
			continue
		}
		if c.Visibility == Private && !categories.Has(PrivateMembers) {
			continue
		}
		if c.Visibility == Special && !categories.Has(SpecialMembers) {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}
