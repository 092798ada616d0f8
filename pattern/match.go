// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package pattern

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether name matches the shell pattern pat, honoring the
// same [Mode] flags as [Regexp]. Filename matching, including the "**"
// globstar form, is delegated to [doublestar.Match], which implements
// path-segment-aware wildcard matching the same way bash's globstar
// option does. Modes doublestar cannot express directly (NoGlobCase,
// Shortest) fall back to compiling pat with [Regexp] instead.
func Match(pat, name string, mode Mode) (bool, error) {
	if mode&(NoGlobCase|Shortest) == 0 {
		return doublestar.Match(pat, name)
	}
	expr, err := Regexp(pat, mode|EntireString)
	if err != nil {
		return false, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return false, err
	}
	return rx.MatchString(name), nil
}
