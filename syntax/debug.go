// Copyright (c) 2020, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"io"
	"reflect"
)

// DebugPrint prints the provided syntax tree, spanning multiple lines
// and with indentation, to help when debugging a program that works
// with the syntax tree directly.
func DebugPrint(w io.Writer, node Node) error {
	p := debugPrinter{w: w}
	if f, ok := node.(*File); ok {
		p.file = f
	}
	p.value(reflect.ValueOf(node), 0)
	p.printf("\n")
	return p.err
}

type debugPrinter struct {
	w    io.Writer
	err  error
	file *File
}

func (p *debugPrinter) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintf(p.w, format, args...); err != nil {
		p.err = err
	}
}

func (p *debugPrinter) indent(level int) {
	for i := 0; i < level; i++ {
		p.printf(".  ")
	}
}

var posType = reflect.TypeOf(Pos(0))

func (p *debugPrinter) value(v reflect.Value, level int) {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			p.printf("nil")
			return
		}
		p.printf("*")
		p.value(v.Elem(), level)
	case reflect.Interface:
		if v.IsNil() {
			p.printf("nil")
			return
		}
		p.value(v.Elem(), level)
	case reflect.Struct:
		p.printf("%s {\n", v.Type().String())
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if field.PkgPath != "" { // unexported
				continue
			}
			p.indent(level + 1)
			p.printf("%s: ", field.Name)
			if field.Type == posType {
				p.pos(v.Field(i).Interface().(Pos))
			} else {
				p.value(v.Field(i), level+1)
			}
			p.printf("\n")
		}
		p.indent(level)
		p.printf("}")
	case reflect.Slice:
		p.printf("%s (len = %d) {", v.Type().String(), v.Len())
		if v.Len() == 0 {
			p.printf("}")
			return
		}
		p.printf("\n")
		for i := 0; i < v.Len(); i++ {
			p.indent(level + 1)
			p.printf("%d: ", i)
			p.value(v.Index(i), level+1)
			p.printf("\n")
		}
		p.indent(level)
		p.printf("}")
	default:
		p.printf("%#v", v.Interface())
	}
}

func (p *debugPrinter) pos(pos Pos) {
	if p.file != nil {
		fp := p.file.Position(pos)
		p.printf("%d:%d", fp.Line, fp.Column)
		return
	}
	p.printf("%d", int(pos))
}
