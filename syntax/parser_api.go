// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// LangVariant describes a shell dialect to target when parsing.
type LangVariant uint8

const (
	LangAuto LangVariant = iota
	LangBash
	LangPOSIX
	LangMirBSDKorn
	LangBats
	LangZsh
)

func (l LangVariant) String() string {
	switch l {
	case LangBash:
		return "bash"
	case LangPOSIX:
		return "posix"
	case LangMirBSDKorn:
		return "mksh"
	case LangBats:
		return "bats"
	case LangZsh:
		return "zsh"
	default:
		return "auto"
	}
}

// Set implements flag.Value so that LangVariant can be used directly as a
// command-line flag.
func (l *LangVariant) Set(s string) error {
	switch s {
	case "bash", "":
		*l = LangBash
	case "posix", "sh":
		*l = LangPOSIX
	case "mksh":
		*l = LangMirBSDKorn
	case "bats":
		*l = LangBats
	case "zsh":
		*l = LangZsh
	case "auto":
		*l = LangAuto
	default:
		return fmt.Errorf("unknown shell language variant: %q", s)
	}
	return nil
}

// LangError is returned when a construct isn't supported by the
// configured language variant.
type LangError struct {
	Variant LangVariant
	Feature string
}

func (e LangError) Error() string {
	return fmt.Sprintf("%s is a feature not available in the %s shell dialect", e.Feature, e.Variant)
}

func (l LangVariant) parseMode() ParseMode {
	var mode ParseMode
	if l == LangPOSIX {
		mode |= PosixConformant
	}
	return mode
}

// Parser holds the internal state required to parse shell programs. A
// Parser instance may be reused for multiple Parse/Document/Words
// calls, but is not safe for concurrent use.
type Parser struct {
	p *parser

	lang      LangVariant
	keepComments bool
	stopAt    []byte
	recover   int

	readSizeHint int
}

// ParserOption is a configuration option accepted by NewParser.
type ParserOption func(*Parser)

// KeepComments makes the parser attach comments to the AST instead of
// discarding them.
func KeepComments(enabled bool) ParserOption {
	return func(p *Parser) { p.keepComments = enabled }
}

// Variant changes the shell dialect that the parser targets.
func Variant(l LangVariant) ParserOption {
	return func(p *Parser) { p.lang = l }
}

// StopAt configures the parser to stop, without raising an error, once
// it finds an unquoted, unescaped literal word equal to stop.
func StopAt(stop string) ParserOption {
	return func(p *Parser) { p.stopAt = []byte(stop) }
}

// RecoverErrors records n on the Parser. The parser does not read it:
// parsing still stops at the first syntax error, whatever n is.
func RecoverErrors(n int) ParserOption {
	return func(p *Parser) { p.recover = n }
}

// ReadSizeHint sets the initial capacity of the buffer that the whole
// input is read into, whatever the io.Reader is; a size of zero or less
// means 4096.
func ReadSizeHint(size int) ParserOption {
	return func(p *Parser) { p.readSizeHint = size }
}

// NewParser allocates a new Parser and applies any options to it.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{p: &parser{helperBuf: new(bytes.Buffer)}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) mode() ParseMode {
	mode := p.lang.parseMode()
	if p.keepComments {
		mode |= ParseComments
	}
	return mode
}

func (p *Parser) reset(src []byte, name string) {
	ip := p.p
	ip.reset()
	alloc := &struct {
		f File
		l [16]int
	}{}
	ip.f = &alloc.f
	ip.f.Name = name
	ip.f.Lines = alloc.l[:1]
	ip.src, ip.mode = src, p.mode()
}

// Parse reads and parses a shell program with an optional name, which
// is used in error messages. It returns the parsed program if no
// issues were encountered, and an error otherwise.
func (p *Parser) Parse(r io.Reader, name string) (*File, error) {
	src, err := readAll(r, p.readSizeHint)
	if err != nil {
		return nil, err
	}
	p.reset(src, name)
	ip := p.p
	ip.next()
	ip.f.Stmts = ip.stmts(stopAtStrings(p.stopAt)...)
	return ip.f, ip.err
}

// Stmts calls fn on each parsed top-level statement, stopping early if
// fn returns false, or if a parse error is hit.
func (p *Parser) Stmts(r io.Reader, fn func(*Stmt) bool) error {
	file, err := p.Parse(r, "")
	if file != nil {
		for _, stmt := range file.Stmts {
			if !fn(stmt) {
				break
			}
		}
	}
	return err
}

// Document parses a single word, such as the body handed to a
// parameter or arithmetic expansion when expanding shell fragments
// outside of a full program.
func (p *Parser) Document(r io.Reader) (*Word, error) {
	src, err := readAll(r, p.readSizeHint)
	if err != nil {
		return nil, err
	}
	p.reset(src, "")
	ip := p.p
	ip.next()
	w := ip.word()
	if ip.err == nil && ip.tok != _EOF {
		ip.curErr("unexpected token after word")
	}
	if ip.err != nil {
		return nil, ip.err
	}
	return &w, nil
}

// Words parses a sequence of whitespace-separated words, calling fn on
// each one until it returns false or the input is exhausted.
func (p *Parser) Words(r io.Reader, fn func(*Word) bool) error {
	src, err := readAll(r, p.readSizeHint)
	if err != nil {
		return err
	}
	p.reset(src, "")
	ip := p.p
	ip.next()
	for ip.tok != _EOF {
		w := ip.word()
		if ip.err != nil {
			return ip.err
		}
		if !fn(&w) {
			return nil
		}
	}
	return ip.err
}

// Incomplete reports whether the most recent call made through
// InteractiveSeq stopped because the input ended in the middle of an
// incomplete construct, such as an unterminated quote, heredoc, or
// compound command.
func (p *Parser) Incomplete() bool {
	return p.p.err != nil && isIncompleteErr(p.p.err)
}

func isIncompleteErr(err error) bool {
	pe, ok := err.(*ParseError)
	if !ok {
		return false
	}
	return strings.Contains(pe.Text, "reached EOF") ||
		strings.Contains(pe.Text, "reached "+_EOF.String())
}

// InteractiveSeq returns an iterator over the batches of statements
// read from r, one batch per complete, executable chunk of input. It
// is meant for interactive use: on each iteration it reads as much of
// r as is necessary to finish a complete command, and Incomplete
// reports whether more input is needed to finish the current command.
func (p *Parser) InteractiveSeq(r io.Reader) func(yield func([]*Stmt, error) bool) {
	br := bufio.NewReader(r)
	return func(yield func([]*Stmt, error) bool) {
		var buf bytes.Buffer
		for {
			line, err := br.ReadString('\n')
			buf.WriteString(line)
			if err != nil && err != io.EOF {
				yield(nil, err)
				return
			}
			atEOF := err == io.EOF
			p.reset(buf.Bytes(), "")
			ip := p.p
			ip.next()
			stmts := ip.stmts()
			if ip.err != nil {
				if isIncompleteErr(ip.err) && !atEOF {
					continue
				}
				if !yield(nil, ip.err) {
					return
				}
				buf.Reset()
				continue
			}
			buf.Reset()
			if len(stmts) > 0 {
				if !yield(stmts, nil) {
					return
				}
			}
			if atEOF {
				return
			}
		}
	}
}

// ArithmExpr parses a standalone arithmetic expression, such as the
// contents of an array subscript or a $((...)) expansion body.
func (p *Parser) ArithmExpr(r io.Reader) (ArithmExpr, error) {
	src, err := readAll(r, p.readSizeHint)
	if err != nil {
		return nil, err
	}
	p.reset(src, "")
	ip := p.p
	ip.quote = arithmExprBrack
	ip.next()
	expr := ip.arithmExpr(illegalTok, ip.pos, 0, false)
	if ip.err != nil {
		return nil, ip.err
	}
	return expr, nil
}

func stopAtStrings(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return []string{string(b)}
}

func readAll(r io.Reader, sizeHint int) ([]byte, error) {
	if sizeHint <= 0 {
		sizeHint = 4096
	}
	buf := bytes.NewBuffer(make([]byte, 0, sizeHint))
	_, err := buf.ReadFrom(r)
	return buf.Bytes(), err
}
