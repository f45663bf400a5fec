// Package sqlutil builds MySQL statements for the benchmark results table.
package sqlutil

import (
	"regexp"
	"strings"
)

var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// QuoteIdentifier wraps name in backticks, doubling any backtick inside it.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// IsValidIdentifier reports whether name uses only letters, digits and underscores.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteTableName validates and quotes a table name, which may be qualified
// with a schema as schema.table.
func QuoteTableName(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", &InvalidIdentifierError{Name: name}
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if !IsValidIdentifier(p) {
			return "", &InvalidIdentifierError{Name: name}
		}
		quoted[i] = QuoteIdentifier(p)
	}
	return strings.Join(quoted, "."), nil
}

// Placeholders returns n comma-separated bind markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
