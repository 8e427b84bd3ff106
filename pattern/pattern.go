// Package pattern implements the ignore/preprocess pattern matcher.
package pattern

import (
	"path"
	"strings"
)

// Matches decides whether p (a POSIX-style path rooted at "/") is
// matched by the ordered pattern list patterns. The rules are:
//
//  1. backslashes in each pattern are normalized to "/";
//  2. a leading "!" negates the pattern;
//  3. a trailing "/" restricts the pattern to directories, and is
//     skipped entirely for non-directory candidates;
//  4. a pattern with no "/" matches the candidate's basename using
//     shell-glob rules, case-insensitively;
//  5. any other pattern is anchored at the root and matched against
//     the full path, with "*" not crossing "/" boundaries, case-
//     insensitively.
//
// Patterns are applied in order starting from result=false; a matching
// pattern sets result to !negated, and a non-matching pattern leaves
// result unchanged. The final result is returned, so later patterns
// can re-include paths excluded by earlier ones (and vice versa).
func Matches(p string, patterns []string, isDir bool) bool {
	var result bool

	for _, raw := range patterns {
		pat := strings.ReplaceAll(raw, `\`, "/")

		negated := false
		if strings.HasPrefix(pat, "!") {
			negated = true
			pat = pat[1:]
		}

		dirOnly := false
		if strings.HasSuffix(pat, "/") {
			dirOnly = true
			pat = strings.TrimSuffix(pat, "/")
		}
		if dirOnly && !isDir {
			continue
		}

		var matched bool
		if strings.Contains(pat, "/") {
			matched = matchRooted(pat, p)
		} else {
			matched = matchBasename(pat, p)
		}

		if matched {
			result = !negated
		}
	}

	return result
}

func matchBasename(pat, p string) bool {
	base := path.Base(p)
	ok, err := path.Match(strings.ToLower(pat), strings.ToLower(base))
	return err == nil && ok
}

func matchRooted(pat, p string) bool {
	if !strings.HasPrefix(pat, "/") {
		pat = "/" + pat
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	ok, err := path.Match(strings.ToLower(pat), strings.ToLower(p))
	return err == nil && ok
}
