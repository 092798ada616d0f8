// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	shpattern "github.com/coreshell/gosh/pattern"
	"github.com/coreshell/gosh/syntax"
)

// Config groups the inputs that the expansion functions in this package
// need in order to turn shell words into their expanded field values. A
// nil *Config is equivalent to an empty one: expansions that depend on
// environment state simply come back empty.
type Config struct {
	// Env exposes the shell variables that expansions may read. Most
	// callers also want to allow expansions to modify variables, such as
	// `${x:=y}` or `$((i++))`; for that, Env should additionally
	// implement [WriteEnviron].
	Env Environ

	// ReadDir2 lists the entries of a directory for pathname expansion.
	// A nil ReadDir2 disables globbing entirely: no directory is read,
	// so a pattern is handled like one with no matches (kept as literal
	// text, or dropped when NullGlob is set).
	ReadDir2 func(string) ([]fs.DirEntry, error)

	// GlobStar enables ** to recurse into subdirectories during
	// pathname expansion, as with Bash's globstar shopt.
	GlobStar bool
	// NoCaseGlob makes pathname expansion case-insensitive, as with
	// Bash's nocaseglob shopt.
	NoCaseGlob bool
	// NullGlob makes a pathname expansion with no matches disappear
	// instead of being kept as a literal pattern, as with Bash's
	// nullglob shopt.
	NullGlob bool
	// NoUnset makes expanding an unset parameter an error, as with
	// Bash's set -u / nounset option.
	NoUnset bool

	// CmdSubst runs the statement list within a command substitution
	// such as $(foo), writing its standard output to the given writer.
	CmdSubst func(io.Writer, *syntax.CmdSubst) error
	// ProcSubst runs the statement list within a process substitution
	// such as <(foo), returning the path that the caller should
	// substitute in place of the whole expression.
	ProcSubst func(*syntax.ProcSubst) (string, error)

	// LineNumber resolves a source position to its one-based line
	// number, for ${LINENO}. A nil LineNumber makes ${LINENO} expand to
	// 0.
	LineNumber func(syntax.Pos) int

	ifs string
	// curParam points at the parameter expansion node we're currently
	// inside, if any. Necessary for ${LINENO}.
	curParam *syntax.ParamExp

	bufferAlloc bytes.Buffer
	fieldAlloc  [4]fieldPart
	fieldsAlloc [4][]fieldPart
}

func prepareConfig(cfg *Config) *Config {
	if cfg == nil {
		return &Config{}
	}
	return cfg
}

// expandError lets the recursive expansion helpers bail out of deep call
// chains via panic/recover without requiring every intermediate function
// to thread an error return through.
type expandError struct{ err error }

func (cfg *Config) err(err error) {
	panic(expandError{err})
}

func recoverExpandErr(errp *error) {
	switch r := recover().(type) {
	case nil:
	case expandError:
		*errp = r.err
	default:
		panic(r)
	}
}

func (cfg *Config) envGet(name string) string {
	if cfg.Env == nil {
		return ""
	}
	return cfg.Env.Get(name).String()
}

func (cfg *Config) envSet(name, value string) error {
	wenv, ok := cfg.Env.(WriteEnviron)
	if !ok {
		return fmt.Errorf("expand: %s: read-only environment", name)
	}
	return wenv.Set(name, Variable{Set: true, Kind: String, Str: value})
}

func (cfg *Config) prepareIFS() {
	var vr Variable
	if cfg.Env != nil {
		vr = cfg.Env.Get("IFS")
	}
	if !vr.IsSet() {
		cfg.ifs = " \t\n"
	} else {
		cfg.ifs = vr.String()
	}
}

func (cfg *Config) ifsRune(r rune) bool {
	for _, r2 := range cfg.ifs {
		if r == r2 {
			return true
		}
	}
	return false
}

func (cfg *Config) ifsJoin(strs []string) string {
	sep := ""
	if cfg.ifs != "" {
		sep = cfg.ifs[:1]
	}
	return strings.Join(strs, sep)
}

func (cfg *Config) strBuilder() *bytes.Buffer {
	b := &cfg.bufferAlloc
	b.Reset()
	return b
}

// Literal expands a word as a single, unsplit string; no pathname
// expansion or field splitting is applied. This is used for contexts
// such as assignment right-hand sides and case patterns' subjects.
func Literal(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverExpandErr(&err)
	if word == nil {
		return "", nil
	}
	field := cfg.wordField(word.Parts, quoteDouble, true)
	return cfg.fieldJoin(field), nil
}

// Document expands a word as the body of a here-document: like Literal,
// but the leading tilde is never treated as a home directory shortcut.
func Document(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverExpandErr(&err)
	if word == nil {
		return "", nil
	}
	field := cfg.wordField(word.Parts, quoteDouble, false)
	return cfg.fieldJoin(field), nil
}

// Pattern expands a word as an extended glob pattern, such as the
// right-hand side of a case clause or the pattern half of ${x/pat/repl}.
// Parts of the word which were quoted are escaped so that they are
// matched literally rather than as glob syntax.
func Pattern(cfg *Config, word *syntax.Word) (s string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverExpandErr(&err)
	field := cfg.wordField(word.Parts, quoteSingle, true)
	buf := cfg.strBuilder()
	for _, part := range field {
		if part.quote > quoteNone {
			buf.WriteString(syntax.QuotePattern(part.val))
		} else {
			buf.WriteString(part.val)
		}
	}
	return buf.String(), nil
}

// Format implements printf-style formatting, as used by the printf
// builtin and by `echo -e`. It returns the formatted string along with
// the number of elements of args that were consumed.
func Format(cfg *Config, format string, args []string) (string, int, error) {
	cfg = prepareConfig(cfg)
	buf := cfg.strBuilder()
	esc := false
	var fmts []rune
	initialArgs := len(args)

	for _, c := range format {
		switch {
		case esc:
			esc = false
			switch c {
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			default:
				buf.WriteRune('\\')
				buf.WriteRune(c)
			}

		case len(fmts) > 0:
			switch c {
			case '%':
				buf.WriteByte('%')
				fmts = nil
			case 'c':
				var b byte
				if len(args) > 0 {
					arg := ""
					arg, args = args[0], args[1:]
					if len(arg) > 0 {
						b = arg[0]
					}
				}
				buf.WriteByte(b)
				fmts = nil
			case '+', '-', ' ':
				if len(fmts) > 1 {
					return "", 0, fmt.Errorf("invalid format char: %c", c)
				}
				fmts = append(fmts, c)
			case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
				fmts = append(fmts, c)
			case 's', 'd', 'i', 'u', 'o', 'x':
				arg := ""
				if len(args) > 0 {
					arg, args = args[0], args[1:]
				}
				var farg interface{} = arg
				if c != 's' {
					n, _ := strconv.ParseInt(arg, 0, 0)
					if c == 'i' || c == 'd' {
						farg = int(n)
					} else {
						farg = uint(n)
					}
					if c == 'i' || c == 'u' {
						c = 'd'
					}
				}
				fmts = append(fmts, c)
				fmt.Fprintf(buf, string(fmts), farg)
				fmts = nil
			default:
				return "", 0, fmt.Errorf("invalid format char: %c", c)
			}
		case c == '\\':
			esc = true
		case args != nil && c == '%':
			// if args == nil, we are not doing format arguments
			fmts = []rune{c}
		default:
			buf.WriteRune(c)
		}
	}
	if len(fmts) > 0 {
		return "", 0, fmt.Errorf("missing format char")
	}
	return buf.String(), initialArgs - len(args), nil
}

// ReadFields splits s into up to n fields using the IFS rules, as used
// by the read builtin. If raw is false, backslash escapes the next
// character and is removed from the result.
func ReadFields(cfg *Config, s string, n int, raw bool) []string {
	cfg = prepareConfig(cfg)
	cfg.prepareIFS()
	type pos struct{ start, end int }
	var fpos []pos

	runes := make([]rune, 0, len(s))
	infield := false
	esc := false
	for _, r := range s {
		if infield {
			if cfg.ifsRune(r) && (raw || !esc) {
				fpos[len(fpos)-1].end = len(runes)
				infield = false
			}
		} else {
			if !cfg.ifsRune(r) && (raw || !esc) {
				fpos = append(fpos, pos{start: len(runes), end: -1})
				infield = true
			}
		}
		if r == '\\' {
			if raw || esc {
				runes = append(runes, r)
			}
			esc = !esc
			continue
		}
		runes = append(runes, r)
		esc = false
	}
	if len(fpos) == 0 {
		return nil
	}
	if infield {
		fpos[len(fpos)-1].end = len(runes)
	}

	switch {
	case n == 1:
		// include heading/trailing IFSs
		fpos[0].start, fpos[0].end = 0, len(runes)
		fpos = fpos[:1]
	case n != -1 && n < len(fpos):
		// combine to max n fields
		fpos[n-1].end = fpos[len(fpos)-1].end
		fpos = fpos[:n]
	}

	fields := make([]string, len(fpos))
	for i, p := range fpos {
		fields[i] = string(runes[p.start:p.end])
	}
	return fields
}

func (cfg *Config) fieldJoin(parts []fieldPart) string {
	switch len(parts) {
	case 0:
		return ""
	case 1: // short-cut without a string copy
		return parts[0].val
	}
	buf := cfg.strBuilder()
	for _, part := range parts {
		buf.WriteString(part.val)
	}
	return buf.String()
}

func (cfg *Config) escapedGlobField(parts []fieldPart) (escaped string, glob bool) {
	buf := cfg.strBuilder()
	for _, part := range parts {
		if part.quote > quoteNone {
			buf.WriteString(syntax.QuotePattern(part.val))
			continue
		}
		buf.WriteString(part.val)
		if syntax.HasPattern(part.val) {
			glob = true
		}
	}
	if glob { // only copy the string if it will be used
		escaped = buf.String()
	}
	return escaped, glob
}

// Fields expands an arbitrary number of words as if they made up a
// single command's arguments: brace expansion, parameter and command
// substitution, word splitting, and pathname expansion are all applied.
func Fields(cfg *Config, words ...*syntax.Word) (fields []string, err error) {
	cfg = prepareConfig(cfg)
	defer recoverExpandErr(&err)
	cfg.prepareIFS()

	fields = make([]string, 0, len(words))
	dir := cfg.envGet("PWD")
	var expWords []*syntax.Word
	for _, word := range words {
		expWords = append(expWords, Braces(word)...)
	}
	for _, expWord := range expWords {
		for _, field := range cfg.wordFields(expWord.Parts) {
			path, doGlob := cfg.escapedGlobField(field)
			var matches []string
			abs := filepath.IsAbs(path)
			if doGlob && cfg.ReadDir2 != nil {
				base := dir
				rel := path
				if abs {
					base = string(filepath.Separator)
					rel = strings.TrimPrefix(path, string(filepath.Separator))
				}
				matches, err = cfg.glob(base, rel)
				if err != nil {
					return nil, err
				}
				if abs {
					for i, m := range matches {
						matches[i] = filepath.Join(string(filepath.Separator), m)
					}
				}
			}
			switch {
			case len(matches) > 0:
				fields = append(fields, matches...)
			case doGlob && cfg.NullGlob:
				// pattern had no matches; drop it entirely
			default:
				fields = append(fields, cfg.fieldJoin(field))
			}
		}
	}
	return fields, nil
}

type fieldPart struct {
	val   string
	quote quoteLevel
}

type quoteLevel uint

const (
	quoteNone quoteLevel = iota
	quoteDouble
	quoteSingle
)

func (cfg *Config) wordField(wps []syntax.WordPart, ql quoteLevel, expandTilde bool) []fieldPart {
	var field []fieldPart
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 && expandTilde {
				s = cfg.expandUser(s)
			}
			if ql == quoteDouble && strings.Contains(s, "\\") {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' && i+1 < len(s) {
						switch s[i+1] {
						case '\n': // remove \\\n
							i++
							continue
						case '"', '\\', '$', '`': // special chars
							continue
						}
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			field = append(field, fieldPart{val: s})
		case *syntax.SglQuoted:
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = Format(cfg, fp.val, nil)
			}
			field = append(field, fp)
		case *syntax.DblQuoted:
			for _, part := range cfg.wordField(x.Parts, quoteDouble, false) {
				part.quote = quoteDouble
				field = append(field, part)
			}
		case *syntax.ParamExp:
			field = append(field, fieldPart{val: cfg.paramExp(x)})
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				cfg.err(err)
			}
			field = append(field, fieldPart{val: val})
		case *syntax.ProcSubst:
			val, err := cfg.procSubst(x)
			if err != nil {
				cfg.err(err)
			}
			field = append(field, fieldPart{val: val})
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				cfg.err(err)
			}
			field = append(field, fieldPart{val: strconv.Itoa(n)})
		default:
			panic(fmt.Sprintf("unhandled word part: %T", x))
		}
	}
	return field
}

func (cfg *Config) cmdSubst(cs *syntax.CmdSubst) (string, error) {
	if cfg.CmdSubst == nil {
		return "", fmt.Errorf("expand: command substitution is not supported in this context")
	}
	buf := cfg.strBuilder()
	if err := cfg.CmdSubst(buf, cs); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (cfg *Config) procSubst(ps *syntax.ProcSubst) (string, error) {
	if cfg.ProcSubst == nil {
		return "", fmt.Errorf("expand: process substitution is not supported in this context")
	}
	return cfg.ProcSubst(ps)
}

func (cfg *Config) wordFields(wps []syntax.WordPart) [][]fieldPart {
	fields := cfg.fieldsAlloc[:0]
	curField := cfg.fieldAlloc[:0]
	allowEmpty := false
	flush := func() {
		if len(curField) == 0 {
			return
		}
		fields = append(fields, curField)
		curField = nil
	}
	splitAdd := func(val string) {
		for i, field := range strings.FieldsFunc(val, cfg.ifsRune) {
			if i > 0 {
				flush()
			}
			curField = append(curField, fieldPart{val: field})
		}
	}
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 {
				s = cfg.expandUser(s)
			}
			if strings.Contains(s, "\\") {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' {
						i++
						b = s[i]
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			curField = append(curField, fieldPart{val: s})
		case *syntax.SglQuoted:
			allowEmpty = true
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = Format(cfg, fp.val, nil)
			}
			curField = append(curField, fp)
		case *syntax.DblQuoted:
			allowEmpty = true
			if len(x.Parts) == 1 {
				pe, _ := x.Parts[0].(*syntax.ParamExp)
				if elems := cfg.quotedElems(pe); elems != nil {
					for i, elem := range elems {
						if i > 0 {
							flush()
						}
						curField = append(curField, fieldPart{
							quote: quoteDouble,
							val:   elem,
						})
					}
					continue
				}
			}
			for _, part := range cfg.wordField(x.Parts, quoteDouble, false) {
				part.quote = quoteDouble
				curField = append(curField, part)
			}
		case *syntax.ParamExp:
			splitAdd(cfg.paramExp(x))
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				cfg.err(err)
			}
			splitAdd(val)
		case *syntax.ProcSubst:
			val, err := cfg.procSubst(x)
			if err != nil {
				cfg.err(err)
			}
			curField = append(curField, fieldPart{val: val})
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				cfg.err(err)
			}
			curField = append(curField, fieldPart{val: strconv.Itoa(n)})
		default:
			panic(fmt.Sprintf("unhandled word part: %T", x))
		}
	}
	flush()
	if allowEmpty && len(fields) == 0 {
		fields = append(fields, curField)
	}
	return fields
}

// quotedElems checks if a parameter expansion is exactly ${@} or ${foo[@]}.
func (cfg *Config) quotedElems(pe *syntax.ParamExp) []string {
	if pe == nil || pe.Excl || pe.Length || pe.Width {
		return nil
	}
	if pe.Param.Value == "@" {
		return cfg.envGetList("@")
	}
	if anyOfLit(pe.Index, "@") == "" {
		return nil
	}
	return cfg.envGetList(pe.Param.Value)
}

func (cfg *Config) envGetList(name string) []string {
	if cfg.Env == nil {
		return nil
	}
	vr := cfg.Env.Get(name)
	if vr.Kind != Indexed {
		return nil
	}
	return vr.List
}

func (cfg *Config) expandUser(field string) string {
	if len(field) == 0 || field[0] != '~' {
		return field
	}
	name := field[1:]
	rest := ""
	if i := strings.Index(name, "/"); i >= 0 {
		rest = name[i:]
		name = name[:i]
	}
	if name == "" {
		return cfg.envGet("HOME") + rest
	}
	// TODO: don't hard-code os/user into the expansion package
	u, err := user.Lookup(name)
	if err != nil {
		return field
	}
	return u.HomeDir + rest
}

func findAllIndex(pattern, name string, n int) [][]int {
	expr, err := syntax.TranslatePattern(pattern, true)
	if err != nil {
		return nil
	}
	rx := regexp.MustCompile(expr)
	return rx.FindAllStringIndex(name, n)
}

// glob matches pattern, a slash-separated sequence of shell patterns,
// against the directory tree rooted at base. Matches are returned
// relative to base. An empty pattern reads no directory and yields a
// single empty match.
func (cfg *Config) glob(base, pattern string) ([]string, error) {
	if cfg.ReadDir2 == nil {
		return nil, nil
	}
	parts := strings.Split(pattern, string(filepath.Separator))
	rel := []string{""}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if part == "**" && cfg.GlobStar {
			for i, r := range rel {
				if r != "" {
					rel[i] = r + string(filepath.Separator)
				}
			}
			latest := rel
			for {
				var next []string
				for _, r := range latest {
					names, err := cfg.dirNames(filepath.Join(base, r), false)
					if err != nil {
						return nil, err
					}
					for _, name := range names {
						next = append(next, filepath.Join(r, name)+string(filepath.Separator))
					}
				}
				if len(next) == 0 {
					break
				}
				rel = append(rel, next...)
				latest = next
			}
			continue
		}
		hidden := strings.HasPrefix(part, ".")
		matchMode := shpattern.Filenames
		if cfg.NoCaseGlob {
			matchMode |= shpattern.NoGlobCase
		}
		var newRel []string
		for _, r := range rel {
			names, err := cfg.dirNames(filepath.Join(base, r), hidden)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				if ok, err := shpattern.Match(part, name, matchMode); err == nil && ok {
					newRel = append(newRel, filepath.Join(r, name))
				}
			}
		}
		rel = newRel
	}
	return rel, nil
}

func (cfg *Config) dirNames(dir string, hidden bool) ([]string, error) {
	entries, err := cfg.ReadDir2(dir)
	if err != nil {
		return nil, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !hidden && strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
