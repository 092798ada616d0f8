// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/coreshell/gosh/syntax"
)

func osUserName() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

var (
	caseUpper = cases.Upper(language.Und)
	caseLower = cases.Lower(language.Und)
)

func anyOfLit(v interface{}, vals ...string) string {
	word, _ := v.(*syntax.Word)
	if word == nil || len(word.Parts) != 1 {
		return ""
	}
	lit, ok := word.Parts[0].(*syntax.Lit)
	if !ok {
		return ""
	}
	for _, val := range vals {
		if lit.Value == val {
			return val
		}
	}
	return ""
}

// UnsetParameterError is returned, wrapped in a panic recovered by the
// exported expansion functions, when a parameter expansion such as
// ${var:?msg} or `set -o nounset` rejects an unset variable.
type UnsetParameterError struct {
	Expr    *syntax.ParamExp
	Message string
}

func (u UnsetParameterError) Error() string {
	return u.Message
}

// emptyEnviron is used as a fallback when a nameref needs to be resolved
// but the Config has no Env configured.
type emptyEnviron struct{}

func (emptyEnviron) Get(string) Variable                     { return Variable{} }
func (emptyEnviron) Each(func(name string, vr Variable) bool) {}

// resolveVar follows vr's nameref chain, if any, using cfg.Env.
func (cfg *Config) resolveVar(vr Variable) Variable {
	if vr.Kind != NameRef {
		return vr
	}
	env := cfg.Env
	if env == nil {
		env = emptyEnviron{}
	}
	_, rv := vr.Resolve(env)
	return rv
}

func (cfg *Config) paramExp(pe *syntax.ParamExp) string {
	oldParam := cfg.curParam
	cfg.curParam = pe
	defer func() { cfg.curParam = oldParam }()

	name := pe.Param.Value
	index := pe.Index
	switch name {
	case "@", "*":
		index = &syntax.Word{Parts: []syntax.WordPart{
			&syntax.Lit{Value: name},
		}}
	}
	var vr Variable
	switch name {
	case "LINENO":
		// This is the only parameter expansion that the environment
		// interface cannot satisfy; the interpreter supplies a line
		// lookup via cfg.LineNumber since position offsets alone
		// don't carry line information.
		var line uint64
		if cfg.LineNumber != nil {
			line = uint64(cfg.LineNumber(cfg.curParam.Pos()))
		}
		vr = Variable{Set: true, Kind: String, Str: strconv.FormatUint(line, 10)}
	default:
		if cfg.Env != nil {
			vr = cfg.Env.Get(name)
		}
	}
	set := vr.IsSet()
	if cfg.NoUnset && !set && pe.Exp == nil && !pe.Excl && pe.Names == 0 {
		cfg.err(UnsetParameterError{
			Expr:    pe,
			Message: fmt.Sprintf("%s: unbound variable", name),
		})
	}
	rv := cfg.resolveVar(vr)
	str := rv.String()
	if index != nil {
		str = cfg.varInd(rv, index)
	}
	slicePos := func(expr syntax.ArithmExpr) int {
		n, err := Arithm(cfg, expr)
		if err != nil {
			cfg.err(err)
		}
		p := n
		if p < 0 {
			p = len(str) + p
			if p < 0 {
				p = len(str)
			}
		} else if p > len(str) {
			p = len(str)
		}
		return p
	}
	elems := []string{str}
	if anyOfLit(index, "@", "*") != "" {
		switch rv.Kind {
		case Indexed:
			elems = append([]string(nil), rv.List...)
		case Associative:
			keys := make([]string, 0, len(rv.Map))
			for k := range rv.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			vals := make([]string, len(keys))
			for i, k := range keys {
				vals[i] = rv.Map[k]
			}
			elems = vals
		default:
			if !rv.IsSet() {
				elems = nil
			}
		}
	}
	switch {
	case pe.Length:
		n := len(elems)
		if anyOfLit(index, "@", "*") == "" {
			n = utf8.RuneCountInString(str)
		}
		str = strconv.Itoa(n)
	case pe.Excl:
		var strs []string
		switch {
		case pe.Names != 0:
			strs = cfg.namesByPrefix(pe.Param.Value)
		case vr.Kind == NameRef:
			strs = append(strs, vr.Str)
		case vr.Kind == Indexed:
			for i, e := range vr.List {
				if e != "" {
					strs = append(strs, strconv.Itoa(i))
				}
			}
		case vr.Kind == Associative:
			for k := range vr.Map {
				strs = append(strs, k)
			}
		case str != "":
			var indirect Variable
			if cfg.Env != nil {
				indirect = cfg.Env.Get(str)
			}
			strs = append(strs, cfg.resolveVar(indirect).String())
		}
		sort.Strings(strs)
		str = strings.Join(strs, " ")
	case pe.Slice != nil:
		if pe.Slice.Offset != nil {
			offset := slicePos(pe.Slice.Offset)
			str = str[offset:]
		}
		if pe.Slice.Length != nil {
			length := slicePos(pe.Slice.Length)
			str = str[:length]
		}
	case pe.Repl != nil:
		orig, err := Pattern(cfg, pe.Repl.Orig)
		if err != nil {
			cfg.err(err)
		}
		with, err := Literal(cfg, pe.Repl.With)
		if err != nil {
			cfg.err(err)
		}
		n := 1
		if pe.Repl.All {
			n = -1
		}
		locs := findAllIndex(orig, str, n)
		buf := cfg.strBuilder()
		last := 0
		for _, loc := range locs {
			buf.WriteString(str[last:loc[0]])
			buf.WriteString(with)
			last = loc[1]
		}
		buf.WriteString(str[last:])
		str = buf.String()
	case pe.Exp != nil:
		arg, err := Literal(cfg, pe.Exp.Word)
		if err != nil {
			cfg.err(err)
		}
		switch op := pe.Exp.Op; op {
		case syntax.SubstColPlus:
			if str == "" {
				break
			}
			fallthrough
		case syntax.SubstPlus:
			if set {
				str = arg
			}
		case syntax.SubstMinus:
			if set {
				break
			}
			fallthrough
		case syntax.SubstColMinus:
			if str == "" {
				str = arg
			}
		case syntax.SubstQuest:
			if set {
				break
			}
			fallthrough
		case syntax.SubstColQuest:
			if str == "" {
				cfg.err(UnsetParameterError{
					Expr:    pe,
					Message: arg,
				})
			}
		case syntax.SubstAssgn:
			if set {
				break
			}
			fallthrough
		case syntax.SubstColAssgn:
			if str == "" {
				if err := cfg.envSet(name, arg); err != nil {
					cfg.err(err)
				}
				str = arg
			}
		case syntax.RemSmallPrefix, syntax.RemLargePrefix,
			syntax.RemSmallSuffix, syntax.RemLargeSuffix:
			suffix := op == syntax.RemSmallSuffix ||
				op == syntax.RemLargeSuffix
			large := op == syntax.RemLargePrefix ||
				op == syntax.RemLargeSuffix
			for i, elem := range elems {
				elems[i] = removePattern(elem, arg, suffix, large)
			}
			str = strings.Join(elems, " ")
		case syntax.UpperFirst, syntax.UpperAll,
			syntax.LowerFirst, syntax.LowerAll:

			caseFunc := unicode.ToLower
			transform := caseLower.String
			if op == syntax.UpperFirst || op == syntax.UpperAll {
				caseFunc = unicode.ToUpper
				transform = caseUpper.String
			}
			all := op == syntax.UpperAll || op == syntax.LowerAll
			// The whole-string, unconstrained case (arg == "") can use a
			// full Unicode case mapping instead of a naive per-rune one,
			// so that multi-rune mappings such as German ß -> SS apply.
			if all && arg == "" {
				for i, elem := range elems {
					elems[i] = transform(elem)
				}
				str = strings.Join(elems, " ")
				break
			}

			// empty string means '?'; nothing to do there
			expr, err := syntax.TranslatePattern(arg, false)
			if err != nil {
				return str
			}
			rx := regexp.MustCompile(expr)

			for i, elem := range elems {
				rs := []rune(elem)
				for ri, r := range rs {
					if rx.MatchString(string(r)) {
						rs[ri] = caseFunc(r)
						if !all {
							break
						}
					}
				}
				elems[i] = string(rs)
			}
			str = strings.Join(elems, " ")
		case syntax.OtherParamOps:
			switch arg {
			case "Q":
				str = strconv.Quote(str)
			case "E":
				tail := str
				var rns []rune
				for tail != "" {
					var rn rune
					rn, _, tail, _ = strconv.UnquoteChar(tail, 0)
					rns = append(rns, rn)
				}
				str = string(rns)
			case "P":
				str = expandPromptString(str)
			case "A":
				str = assignmentForm(name, rv)
			case "a":
				str = attributeFlags(rv)
			case "K":
				str = keyValueForm(rv)
			case "U":
				str = caseUpper.String(str)
			case "L":
				str = caseLower.String(str)
			default:
				panic(fmt.Sprintf("unexpected @%s param expansion", arg))
			}
		}
	}
	return str
}

func removePattern(str, pattern string, fromEnd, greedy bool) string {
	expr, err := syntax.TranslatePattern(pattern, greedy)
	if err != nil {
		return str
	}
	switch {
	case fromEnd && !greedy:
		// use .* to get the right-most (shortest) match
		expr = ".*(" + expr + ")$"
	case fromEnd:
		// simple suffix
		expr = "(" + expr + ")$"
	default:
		// simple prefix
		expr = "^(" + expr + ")"
	}
	// no need to check error as TranslatePattern returns one
	rx := regexp.MustCompile(expr)
	if loc := rx.FindStringSubmatchIndex(str); loc != nil {
		// remove the original pattern (the submatch)
		str = str[:loc[2]] + str[loc[3]:]
	}
	return str
}

func (cfg *Config) varInd(vr Variable, idx syntax.ArithmExpr) string {
	switch vr.Kind {
	case Indexed:
		switch anyOfLit(idx, "@", "*") {
		case "@":
			return strings.Join(vr.List, " ")
		case "*":
			return cfg.ifsJoin(vr.List)
		}
		n, err := Arithm(cfg, idx)
		if err != nil {
			cfg.err(err)
		}
		if n >= 0 && n < len(vr.List) {
			return vr.List[n]
		}
		return ""
	case Associative:
		if lit := anyOfLit(idx, "@", "*"); lit != "" {
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			strs := make([]string, len(keys))
			for i, k := range keys {
				strs[i] = vr.Map[k]
			}
			if lit == "*" {
				return cfg.ifsJoin(strs)
			}
			return strings.Join(strs, " ")
		}
		key, err := Literal(cfg, idx.(*syntax.Word))
		if err != nil {
			cfg.err(err)
		}
		return vr.Map[key]
	default:
		n, err := Arithm(cfg, idx)
		if err != nil {
			cfg.err(err)
		}
		if n == 0 {
			return vr.Str
		}
		return ""
	}
}

// expandPromptString processes a small, practical subset of the backslash
// escapes that bash recognizes in prompt strings (PS1 and friends), as used
// by the ${var@P} transformation.
func expandPromptString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'u':
			if u, err := osUserName(); err == nil {
				sb.WriteString(u)
			}
		case 'h', 'H':
			if h, err := os.Hostname(); err == nil {
				if s[i] == 'h' {
					if idx := strings.IndexByte(h, '.'); idx >= 0 {
						h = h[:idx]
					}
				}
				sb.WriteString(h)
			}
		case 'w', 'W':
			if wd, err := os.Getwd(); err == nil {
				if s[i] == 'W' {
					wd = wd[strings.LastIndexByte(wd, '/')+1:]
				}
				sb.WriteString(wd)
			}
		case '$':
			if os.Geteuid() == 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('$')
			}
		case 'n':
			sb.WriteByte('\n')
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// assignmentForm reproduces a variable's current value as a shell assignment
// statement, as used by the ${var@A} transformation.
func assignmentForm(name string, vr Variable) string {
	switch vr.Kind {
	case Indexed:
		parts := make([]string, len(vr.List))
		for i, v := range vr.List {
			parts[i] = fmt.Sprintf("[%d]=%s", i, strconv.Quote(v))
		}
		return fmt.Sprintf("%s=(%s)", name, strings.Join(parts, " "))
	case Associative:
		keys := make([]string, 0, len(vr.Map))
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("[%s]=%s", strconv.Quote(k), strconv.Quote(vr.Map[k]))
		}
		return fmt.Sprintf("%s=(%s)", name, strings.Join(parts, " "))
	default:
		return fmt.Sprintf("%s=%s", name, strconv.Quote(vr.Str))
	}
}

// keyValueForm prints a variable as ordered key-value pairs, as used by the
// ${var@K} transformation.
func keyValueForm(vr Variable) string {
	switch vr.Kind {
	case Indexed:
		parts := make([]string, len(vr.List))
		for i, v := range vr.List {
			parts[i] = fmt.Sprintf("[%d]=%s", i, strconv.Quote(v))
		}
		return strings.Join(parts, " ")
	case Associative:
		keys := make([]string, 0, len(vr.Map))
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("[%s]=%s", strconv.Quote(k), strconv.Quote(vr.Map[k]))
		}
		return strings.Join(parts, " ")
	default:
		return strconv.Quote(vr.Str)
	}
}

// attributeFlags reports the declare-style attribute letters set on vr, as
// used by the ${var@a} transformation.
func attributeFlags(vr Variable) string {
	var sb strings.Builder
	switch vr.Kind {
	case Indexed:
		sb.WriteByte('a')
	case Associative:
		sb.WriteByte('A')
	case NameRef:
		sb.WriteByte('n')
	}
	if vr.Exported {
		sb.WriteByte('x')
	}
	if vr.ReadOnly {
		sb.WriteByte('r')
	}
	return sb.String()
}

func (cfg *Config) namesByPrefix(prefix string) []string {
	var names []string
	if cfg.Env == nil {
		return names
	}
	cfg.Env.Each(func(name string, vr Variable) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	return names
}
