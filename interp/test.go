// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/term"

	"github.com/coreshell/gosh/syntax"
)

// testParser turns the flat, already-expanded argument list given to the
// classic test/[ builtin into the same TestExpr tree that the [[ ]]
// clause produces at parse time, so bashTest can evaluate both with a
// single code path.
type testParser struct {
	rem []string
	cur string
	err func(error)
}

func (p *testParser) next() {
	if len(p.rem) == 0 {
		p.cur = ""
		return
	}
	p.cur = p.rem[0]
	p.rem = p.rem[1:]
}

func (p *testParser) errf(format string, args ...any) {
	p.err(fmt.Errorf(format, args...))
}

func litWord(val string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: val}}}
}

// classicTest parses a POSIX test/[ expression out of the remaining
// arguments. name is used in error messages ("test" or "["); pastAndOr
// is set when parsing the contents of a "( ... )" group, which should
// not itself swallow a trailing "-a"/"-o" meant for an outer group.
func (p *testParser) classicTest(name string, pastAndOr bool) syntax.TestExpr {
	if p.cur == "" {
		return litWord("")
	}
	// POSIX mandates that a lone argument is always a string test,
	// never a unary operator, even if it looks like one ("test -f" is
	// true, since "-f" is a non-empty string).
	if len(p.rem) == 0 {
		s := p.cur
		p.next()
		return litWord(s)
	}
	left := p.testOr(name, pastAndOr)
	if !pastAndOr && p.cur != "" {
		p.errf("%s: unexpected argument %q", name, p.cur)
	}
	return left
}

func (p *testParser) testOr(name string, pastAndOr bool) syntax.TestExpr {
	left := p.testAnd(name, pastAndOr)
	for p.cur == "-o" {
		p.next()
		right := p.testAnd(name, pastAndOr)
		left = &syntax.BinaryTest{Op: syntax.OrTest, X: left, Y: right}
	}
	return left
}

func (p *testParser) testAnd(name string, pastAndOr bool) syntax.TestExpr {
	left := p.testNot(name, pastAndOr)
	for p.cur == "-a" {
		p.next()
		right := p.testNot(name, pastAndOr)
		left = &syntax.BinaryTest{Op: syntax.AndTest, X: left, Y: right}
	}
	return left
}

func (p *testParser) testNot(name string, pastAndOr bool) syntax.TestExpr {
	if p.cur == "!" {
		p.next()
		return &syntax.UnaryTest{Op: syntax.TsNot, X: p.testNot(name, pastAndOr)}
	}
	return p.testPrimary(name, pastAndOr)
}

func (p *testParser) testPrimary(name string, pastAndOr bool) syntax.TestExpr {
	if p.cur == "" {
		p.errf("%s: argument expected", name)
		return litWord("")
	}
	if p.cur == "(" {
		p.next()
		inner := p.testOr(name, true)
		if p.cur != ")" {
			p.errf("%s: missing matching )", name)
		} else {
			p.next()
		}
		return &syntax.ParenTest{X: inner}
	}
	if op := syntax.TestUnaryOp(p.cur); op != 0 {
		p.next()
		if p.cur == "" {
			p.errf("%s: argument expected", name)
			return litWord("")
		}
		arg := p.cur
		p.next()
		return &syntax.UnaryTest{Op: op, X: litWord(arg)}
	}
	left := p.cur
	p.next()
	if op := syntax.TestBinaryOp(p.cur); op != 0 {
		p.next()
		if p.cur == "" {
			p.errf("%s: argument expected", name)
			return litWord(left)
		}
		right := p.cur
		p.next()
		return &syntax.BinaryTest{Op: op, X: litWord(left), Y: litWord(right)}
	}
	return litWord(left)
}

// bashTest evaluates a TestExpr, returning a non-empty string for true
// and an empty string for false. classic selects the classic test/[
// semantics (plain string (in)equality, no pattern or regex matching)
// rather than the [[ ]] semantics, where "=="/"=" match a glob pattern.
func (r *Runner) bashTest(ctx context.Context, expr syntax.TestExpr, classic bool) string {
	switch x := expr.(type) {
	case *syntax.Word:
		return r.literal(x)
	case *syntax.ParenTest:
		return r.bashTest(ctx, x.X, classic)
	case *syntax.BinaryTest:
		x1 := r.bashTest(ctx, x.X, classic)
		y1 := r.bashTest(ctx, x.Y, classic)
		if r.binTest(ctx, x.Op, x1, y1, classic) {
			return "1"
		}
		return ""
	case *syntax.UnaryTest:
		x1 := r.bashTest(ctx, x.X, classic)
		if r.unTest(ctx, x.Op, x1) {
			return "1"
		}
		return ""
	}
	return ""
}

func (r *Runner) binTest(ctx context.Context, op syntax.BinTestOperator, x, y string, classic bool) bool {
	switch op {
	case syntax.AndTest:
		return x != "" && y != ""
	case syntax.OrTest:
		return x != "" || y != ""
	case syntax.TsAssgn, syntax.TsEqual:
		if classic {
			return x == y
		}
		return match(y, x)
	case syntax.TsNequal:
		if classic {
			return x != y
		}
		return !match(y, x)
	case syntax.TsReMatch:
		rx, err := regexp.Compile(y)
		if err != nil {
			return false
		}
		return rx.MatchString(x)
	case syntax.TsNewer:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return i1.ModTime().After(i2.ModTime())
	case syntax.TsOlder:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return i1.ModTime().Before(i2.ModTime())
	case syntax.TsDevIno:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return os.SameFile(i1, i2)
	case syntax.TsEql:
		return atoi(x) == atoi(y)
	case syntax.TsNeq:
		return atoi(x) != atoi(y)
	case syntax.TsLeq:
		return atoi(x) <= atoi(y)
	case syntax.TsGeq:
		return atoi(x) >= atoi(y)
	case syntax.TsLss:
		return atoi(x) < atoi(y)
	case syntax.TsGtr:
		return atoi(x) > atoi(y)
	case syntax.TsBefore:
		return x < y
	case syntax.TsAfter:
		return x > y
	default:
		panic(fmt.Sprintf("unhandled binary test op: %v", op))
	}
}

func statMode(info os.FileInfo, mode os.FileMode) bool {
	return info != nil && info.Mode()&mode != 0
}

func (r *Runner) unTest(ctx context.Context, op syntax.UnTestOperator, x string) bool {
	switch op {
	case syntax.TsNot:
		return x == ""
	case syntax.TsExists:
		_, err := r.stat(ctx, x)
		return err == nil
	case syntax.TsRegFile:
		info, err := r.stat(ctx, x)
		return err == nil && info.Mode().IsRegular()
	case syntax.TsDirect:
		info, err := r.stat(ctx, x)
		return err == nil && info.IsDir()
	case syntax.TsCharSp:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeCharDevice)
	case syntax.TsBlckSp:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeDevice) && !statMode(info, os.ModeCharDevice)
	case syntax.TsNmPipe:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeNamedPipe)
	case syntax.TsSocket:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeSocket)
	case syntax.TsSmbLink:
		info, err := r.lstat(ctx, x)
		return err == nil && statMode(info, os.ModeSymlink)
	case syntax.TsGIDSet:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeSetgid)
	case syntax.TsUIDSet:
		info, err := r.stat(ctx, x)
		return err == nil && statMode(info, os.ModeSetuid)
	case syntax.TsUsrOwn, syntax.TsGrpOwn:
		return r.unTestOwnOrGrp(ctx, op, x)
	case syntax.TsRead:
		return r.access(ctx, x, 4) == nil
	case syntax.TsWrite:
		return r.access(ctx, x, 2) == nil
	case syntax.TsExec:
		return r.access(ctx, x, 1) == nil
	case syntax.TsNoEmpty:
		info, err := r.stat(ctx, x)
		return err == nil && info.Size() > 0
	case syntax.TsFdTerm:
		var f any
		switch atoi(x) {
		case 0:
			f = r.stdin
		case 1:
			f = r.stdout
		case 2:
			f = r.stderr
		}
		if f, ok := f.(interface{ Fd() uintptr }); ok {
			return term.IsTerminal(int(f.Fd()))
		}
		return false
	case syntax.TsEmpStr:
		return x == ""
	case syntax.TsNempStr:
		return x != ""
	case syntax.TsOptSet:
		_, status := r.optByName(x, false)
		return status != nil && *status
	case syntax.TsVarSet:
		return r.lookupVar(x).IsSet()
	case syntax.TsRefVar:
		return false
	default:
		panic(fmt.Sprintf("unhandled unary test op: %v", op))
	}
}
