// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// keywords are words reserved by the grammar when they appear at the
// start of a command position. Only IsKeyword reads this table; the
// parser does not consult it.
var keywords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"for": true, "while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "in": true,
	"function": true, "select": true, "time": true, "coproc": true, "let": true,
	"{": true, "}": true, "[[": true, "]]": true, "!": true,
}

// IsKeyword reports whether s is a reserved shell keyword, such as "if"
// or "done". Keywords are only reserved in command position; elsewhere
// they behave as plain words.
func IsKeyword(s string) bool {
	return keywords[s]
}

// TestUnaryOp maps a test(1)-style operator string such as "-f" or "!"
// to its corresponding UnTestOperator, for callers building a TestExpr
// from a flat argument list rather than parsing shell source. It
// returns the zero Token when val is not a recognized unary test
// operator.
func TestUnaryOp(val string) UnTestOperator {
	return testUnaryOp(val)
}

// TestBinaryOp maps a test(1)-style operator string such as "=" or
// "-eq" to its corresponding BinTestOperator. It returns the zero
// Token when val is not a recognized binary test operator.
func TestBinaryOp(val string) BinTestOperator {
	return testBinaryOp(val)
}
