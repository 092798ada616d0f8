// Copyright (c) 2020, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidName reports whether s is a valid name for a shell variable or
// function, as recognized by the tokenizer and the "declare"/"local"
// family of builtins: a letter or underscore, followed by any number of
// letters, digits, or underscores.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}

// globMeta holds the bytes that are significant to pattern matching
// (case clauses, pathname expansion, parameter removal patterns).
const globMeta = "*?[]\\"

// HasPattern reports whether s contains any of the pattern-matching
// bytes in globMeta. Escaping is not taken into account: a backslash
// counts as one of those bytes.
func HasPattern(s string) bool {
	return strings.ContainsAny(s, globMeta)
}

// QuotePattern escapes any pattern-matching metacharacters in s so that
// it is matched as a literal string rather than as a glob pattern, for
// use in contexts like the right-hand side of "${x/pat/repl}" where a
// quoted part of the original word must not act as a pattern.
func QuotePattern(s string) string {
	if !HasPattern(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for _, r := range s {
		if strings.ContainsRune(globMeta, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// quoteErrReason identifies why a string could not be quoted for a given
// language variant.
type quoteErrReason int

const (
	quoteErrNull quoteErrReason = iota
	quoteErrPOSIX
	quoteErrMksh
)

// QuoteError is returned by Quote when a string cannot be quoted for the
// requested language variant.
type QuoteError struct {
	ByteIdx int
	Reason  quoteErrReason
}

func (e *QuoteError) Error() string {
	switch e.Reason {
	case quoteErrNull:
		return fmt.Sprintf("sh words may not contain null bytes (byte %d)", e.ByteIdx)
	case quoteErrPOSIX:
		return fmt.Sprintf("POSIX shells don't support quoting the byte at position %d", e.ByteIdx)
	case quoteErrMksh:
		return fmt.Sprintf("mksh does not support unicode runes beyond 0xFFFF (byte %d)", e.ByteIdx)
	}
	return "unknown quoting error"
}

// shellMeta holds the bytes that force quoting a word for any shell
// dialect recognized by this package.
const shellMeta = " \t\n'\"\\`$|&;()<>*?[]#~=%{}!^"

func isAnsiCByte(r rune) bool {
	return r < 0x20 || r == 0x7f
}

func ansiCEscapeRune(sb *strings.Builder, r rune) {
	switch r {
	case '\a':
		sb.WriteString(`\a`)
	case '\b':
		sb.WriteString(`\b`)
	case '\f':
		sb.WriteString(`\f`)
	case '\n':
		sb.WriteString(`\n`)
	case '\r':
		sb.WriteString(`\r`)
	case '\t':
		sb.WriteString(`\t`)
	case '\v':
		sb.WriteString(`\v`)
	case '\'', '\\':
		sb.WriteByte('\\')
		sb.WriteRune(r)
	default:
		if isAnsiCByte(r) {
			fmt.Fprintf(sb, `\x%02x`, r)
		} else {
			sb.WriteRune(r)
		}
	}
}

// Quote returns a quote form of s that a shell of the given language
// variant will parse back into exactly s, suitable for embedding a
// literal string inside generated shell source (e.g. when tracing a
// command with "set -x"). An error is returned when s
// cannot be quoted at all in the requested language variant, such as
// when it contains a NUL byte, or a control byte under LangPOSIX (which
// has no ANSI-C quoting to fall back to), or a rune beyond the Basic
// Multilingual Plane under LangMirBSDKorn.
func Quote(s string, lang LangVariant) (string, error) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == 0 {
			return "", &QuoteError{i, quoteErrNull}
		}
		if lang == LangPOSIX && isAnsiCByte(r) {
			return "", &QuoteError{i, quoteErrPOSIX}
		}
		if lang == LangMirBSDKorn && r > 0xFFFF {
			return "", &QuoteError{i, quoteErrMksh}
		}
		i += size
	}
	if s == "" {
		return "''", nil
	}

	needsAnsiC := false
	for _, r := range s {
		if isAnsiCByte(r) {
			needsAnsiC = true
			break
		}
	}

	if !needsAnsiC {
		if !strings.ContainsAny(s, shellMeta) {
			return s, nil
		}
		if !strings.Contains(s, "'") {
			return "'" + s + "'", nil
		}
		if lang == LangPOSIX {
			// POSIX has no ANSI-C quoting; close, escape, and reopen the
			// single-quoted string around every embedded quote.
			var sb strings.Builder
			sb.WriteByte('\'')
			for _, r := range s {
				if r == '\'' {
					sb.WriteString(`'\''`)
				} else {
					sb.WriteRune(r)
				}
			}
			sb.WriteByte('\'')
			return sb.String(), nil
		}
	}

	if lang == LangMirBSDKorn {
		// mksh doesn't mix escaped and literal bytes within a single
		// ANSI-C quoted segment; split into homogeneous runs and
		// concatenate adjacent quoted segments.
		var out strings.Builder
		var seg strings.Builder
		inEsc := false
		flush := func() {
			if seg.Len() == 0 {
				return
			}
			out.WriteString("$'")
			out.WriteString(seg.String())
			out.WriteByte('\'')
			seg.Reset()
		}
		for _, r := range s {
			esc := isAnsiCByte(r)
			if seg.Len() > 0 && esc != inEsc {
				flush()
			}
			inEsc = esc
			ansiCEscapeRune(&seg, r)
		}
		flush()
		return out.String(), nil
	}

	var sb strings.Builder
	sb.WriteString("$'")
	for _, r := range s {
		ansiCEscapeRune(&sb, r)
	}
	sb.WriteByte('\'')
	return sb.String(), nil
}
