package crudr

import (
	"fmt"
	"strings"
)

// columnList renders "a, b, c". An empty field set renders "".
func columnList(fs []Field) string {
	var b strings.Builder
	for i, f := range fs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
	}
	return b.String()
}

// placeholderList renders ":a, :b, :c". An empty field set renders "".
func placeholderList(fs []Field) string {
	var b strings.Builder
	for i, f := range fs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte(':')
		b.WriteString(f.Name)
	}
	return b.String()
}

// assignmentList renders "a = :a, b = :b" for an UPDATE SET clause.
// An empty field set is an error: an update with no assignments is meaningless.
func assignmentList(fs []Field) (string, error) {
	if len(fs) == 0 {
		return "", fmt.Errorf("%w: empty assignment list", ErrNoFields)
	}
	var b strings.Builder
	for i, f := range fs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(" = :")
		b.WriteString(f.Name)
	}
	return b.String(), nil
}

// predicate renders " where a = :a and b = :b", or "" for an empty field set
// so a key-less statement scopes the whole table.
func predicate(fs []Field) string {
	if len(fs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" where ")
	for i, f := range fs {
		if i > 0 {
			b.WriteString(" and ")
		}
		b.WriteString(f.Name)
		b.WriteString(" = :")
		b.WriteString(f.Name)
	}
	return b.String()
}
