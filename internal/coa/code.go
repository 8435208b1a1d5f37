// Package coa provides helpers for hierarchical chart-of-accounts codes
// such as "1", "1.1" and "1.1.01". The dot-separated segments encode the
// position of an account in the tree: the code of a child extends its
// parent's code by exactly one segment.
package coa

import (
	"regexp"
	"strings"
)

var reCode = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// IsCode reports whether s is a well-formed account code.
func IsCode(s string) bool {
	return reCode.MatchString(s)
}

// Level returns the depth encoded in the code (1 for roots).
// Returns 0 for malformed codes.
func Level(code string) int {
	if !IsCode(code) {
		return 0
	}
	return strings.Count(code, ".") + 1
}

// Parent returns the code of the parent account, or "" for a root code.
func Parent(code string) string {
	i := strings.LastIndex(code, ".")
	if i < 0 {
		return ""
	}
	return code[:i]
}

// IsChildOf reports whether child extends parent by exactly one segment.
func IsChildOf(child, parent string) bool {
	return IsCode(child) && IsCode(parent) && Parent(child) == parent
}
