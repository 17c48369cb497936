package model

import "strings"

// named is a generic constraint for state entries looked up by name.
type named interface {
	Condition | Resource
	entryName() string
}

func (c Condition) entryName() string { return c.Name }
func (r Resource) entryName() string  { return r.Name }

// indexNamed returns the index of the first entry whose name matches
// (case-insensitive), or -1.
func indexNamed[T named](items []T, name string) int {
	for i, item := range items {
		if strings.EqualFold(item.entryName(), name) {
			return i
		}
	}
	return -1
}

// containsNamed reports whether any entry matches name (case-insensitive).
func containsNamed[T named](items []T, name string) bool {
	return indexNamed(items, name) >= 0
}

// containsAnyNamed reports whether any entry matches any of names.
func containsAnyNamed[T named](items []T, names []string) bool {
	for _, n := range names {
		if containsNamed(items, n) {
			return true
		}
	}
	return false
}

func lower(s string) string { return strings.ToLower(s) }
