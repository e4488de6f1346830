package store

import (
	"strings"

	"github.com/teranos/labelmaker/errors"
)

// LikeEscape escapes SQL LIKE metacharacters (% and _) in user input,
// using backslash as the escape character.
func LikeEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// CompilePattern validates and translates a URI pattern into a SQL LIKE
// expression, per the wildcard policy:
//
//   - "*" means "no pattern filter" and is reported via noFilter = true.
//   - a "*" anywhere but the final position is a client error.
//   - a pattern ending in "*" becomes a LIKE prefix match with the literal
//     text escaped and a trailing "%" for the wildcard.
//   - a pattern without "*" is escaped and matches the URI exactly.
func CompilePattern(pattern string) (like string, noFilter bool, err error) {
	if pattern == "*" {
		return "", true, nil
	}

	if idx := strings.IndexByte(pattern, '*'); idx >= 0 && idx != len(pattern)-1 {
		return "", false, errors.Newf("wildcard '*' only allowed at the end of a pattern: %q", pattern)
	}

	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return LikeEscape(prefix) + "%", false, nil
	}

	return LikeEscape(pattern), false, nil
}
