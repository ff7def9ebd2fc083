package discovery

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// extglob matches the "@(a|b)" form, which doublestar spells "{a,b}".
var extglob = regexp.MustCompile(`@\(([^()]*)\)`)

// Normalize rewrites extglob alternations into doublestar brace alternations.
func Normalize(pattern string) string {
	return extglob.ReplaceAllStringFunc(pattern, func(m string) string {
		inner := m[2 : len(m)-1]
		return "{" + strings.ReplaceAll(inner, "|", ",") + "}"
	})
}

// Glob returns the files matching pattern in doublestar's walk order, which is
// lexical per directory and therefore stable for an unchanged tree.
func Glob(pattern string) ([]string, error) {
	p := Normalize(pattern)
	if !doublestar.ValidatePathPattern(p) {
		return nil, doublestar.ErrBadPattern
	}
	return doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
}

// Match reports whether path matches pattern.
func Match(pattern, path string) bool {
	ok, err := doublestar.PathMatch(Normalize(pattern), path)
	return err == nil && ok
}

// Base returns the static directory prefix of pattern, the part before any
// glob meta characters.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(Normalize(pattern))
	return base
}
