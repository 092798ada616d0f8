// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coreshell/gosh/expand"
	"github.com/coreshell/gosh/syntax"
)

// posString renders pos as a "line:col" string relative to src, without
// needing a *syntax.File: Pos is a plain 1-based byte offset into src.
func posString(src string, pos syntax.Pos) string {
	off := int(pos.Offset())
	if off < 1 {
		off = 1
	}
	if off > len(src)+1 {
		off = len(src) + 1
	}
	line, col := 1, 1
	for _, r := range src[:off-1] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return fmt.Sprintf("%d:%d", line, col)
}

// noSubstConfig returns an expand.Config that rejects command and process
// substitutions, reporting their source position. Expand and Fields don't
// run arbitrary commands, so $(...) and <(...) are deliberately unsupported.
func noSubstConfig(s string, env func(string) string) *expand.Config {
	return &expand.Config{
		Env: expand.FuncEnviron(env),
		CmdSubst: func(_ io.Writer, cs *syntax.CmdSubst) error {
			return fmt.Errorf("unexpected command substitution at %s", posString(s, cs.Pos()))
		},
		ProcSubst: func(ps *syntax.ProcSubst) (string, error) {
			return "", fmt.Errorf("unexpected process substitution at %s", posString(s, ps.Pos()))
		},
	}
}

// Expand performs shell expansion on s, using env to resolve variables.
// The expansion will apply to parameter expansions like $var and
// ${#var}, but also to arithmetic expansions like $((var + 3)), and brace
// expressions like foo{1,2,3}.
//
// If env is nil, the current environment variables are used. Empty variables
// are treated as unset; to support variables which are set but empty, use
// expand.Config directly.
//
// Subshells like $(echo foo) aren't supported to avoid running arbitrary code.
// To support those, use an interpreter with expand.Config.
//
// An error will be reported if the input string had invalid syntax.
func Expand(s string, env func(string) string) (string, error) {
	p := syntax.NewParser()
	word, err := p.Document(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	if env == nil {
		env = os.Getenv
	}
	cfg := noSubstConfig(s, env)
	fields, err := expand.Fields(cfg, word)
	return strings.Join(fields, ""), err
}

// Fields performs shell expansion on s, using env to resolve variables, and
// returns the separate fields that result from the expansion. It is similar to
// Expand, but word splitting is performed, and the resulting fields are not
// joined.
//
// If env is nil, the current environment variables are used. Empty variables
// are treated as unset; to support variables which are set but empty, use
// expand.Config directly.
//
// An error will be reported if the input string had invalid syntax.
func Fields(s string, env func(string) string) ([]string, error) {
	p := syntax.NewParser()
	var words []*syntax.Word
	err := p.Words(strings.NewReader(s), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = os.Getenv
	}
	cfg := noSubstConfig(s, env)
	return expand.Fields(cfg, words...)
}
