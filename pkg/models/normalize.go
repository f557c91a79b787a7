package models

import "strings"

// NormalizeEmail lower-cases and trims a git author email. Domain aliasing
// is intentionally not attempted; unknown aliases go through the email
// mapping table instead.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeTeamName folds a team name for schedule matching: NBSP to
// space, whitespace collapsed, case folded, trimmed.
func NormalizeTeamName(name string) string {
	name = strings.ReplaceAll(name, "\u00a0", " ")
	name = strings.Join(strings.Fields(name), " ")
	return strings.ToLower(strings.TrimSpace(name))
}
