// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"bufio"
	"fmt"
	"io"
)

// Printer pretty-prints AST nodes. It is safe for concurrent use only to
// the extent that each call to Print locks no shared state beyond the
// Printer value itself, so a single Printer should not be shared by
// goroutines printing concurrently.
type Printer struct {
	conf PrintConfig
}

// PrinterOption is a function that applies some setting to a Printer,
// for use with NewPrinter.
type PrinterOption func(*Printer)

// Indent sets the number of spaces used for indentation. If set to 0,
// tabs are used instead.
func Indent(spaces uint) PrinterOption {
	return func(p *Printer) { p.conf.Spaces = int(spaces) }
}

// BinaryNextLine prints binary commands such as "stmt1 && stmt2" in the
// next line after "stmt1", adding an extra level of indentation to
// "stmt2".
func BinaryNextLine(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.binNextLine = enabled }
}

// SwitchCaseIndent sets whether "case" clauses are indented, as opposed
// to being on the same indentation level as the "case" and "esac"
// tokens.
func SwitchCaseIndent(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.caseIndent = enabled }
}

// SpaceRedirects sets whether redirect operators such as ">" and "<<-"
// are followed by a space.
func SpaceRedirects(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.spaceRedirects = enabled }
}

// KeepPadding will keep most nodes and tokens as aligned as they were in
// the original source code, for as long as that is possible while still
// printing valid shell code.
func KeepPadding(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.keepPadding = enabled }
}

// Minify sets whether to print programs as compactly as possible,
// removing most spaces and newlines that are not required to keep the
// same semantics.
func Minify(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.minify = enabled }
}

// FunctionNextLine will put a function's opening "{" on the next line,
// separate from the "function" keyword and its name.
func FunctionNextLine(enabled bool) PrinterOption {
	return func(p *Printer) { p.conf.funcNextLine = enabled }
}

// NewPrinter creates a Printer and applies the given options.
func NewPrinter(opts ...PrinterOption) *Printer {
	pr := &Printer{}
	for _, opt := range opts {
		opt(pr)
	}
	return pr
}

// Print pretty-prints node to w. node may be a *File, or any Command,
// WordPart, Word, Loop, ArithmExpr, or TestExpr implementation.
func (pr *Printer) Print(w io.Writer, node Node) error {
	bw, ok := w.(bufWriter)
	var bf *bufio.Writer
	if !ok {
		bf = bufio.NewWriter(w)
		bw = bf
	}
	p := &printer{bufWriter: bw}
	p.reset()
	p.c = pr.conf

	switch x := node.(type) {
	case *File:
		p.f = x
		p.comments = x.Comments
		p.stmts(x.Stmts)
		p.commentsUpTo(0)
		p.newline(0)
	case *Stmt:
		p.f = &File{}
		p.stmt(x)
	case Command:
		p.f = &File{}
		p.command(x, nil)
	case *Word:
		p.f = &File{}
		p.word(*x)
	case WordPart:
		p.f = &File{}
		p.wordPart(x)
	case Loop:
		p.f = &File{}
		p.loop(x)
	case ArithmExpr:
		p.f = &File{}
		p.arithmExpr(x, false)
	case TestExpr:
		p.f = &File{}
		p.testExpr(x)
	default:
		return fmt.Errorf("syntax: unexpected node type %T", x)
	}
	if bf != nil {
		return bf.Flush()
	}
	return nil
}
