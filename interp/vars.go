// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreshell/gosh/expand"
	"github.com/coreshell/gosh/syntax"
)

// overlayEnviron is a layer of variables shadowing a parent [expand.Environ].
// Runner scopes (global, function-local, command-prefix) are each one of
// these layered on top of the previous scope.
type overlayEnviron struct {
	parent expand.Environ
	values map[string]expand.Variable

	// funcScope is true when this layer was pushed for a function call,
	// so that "local" assignments land here rather than in the parent.
	funcScope bool
}

// newOverlayEnviron builds a layer on top of parent. When background is
// true, the current contents of parent are snapshotted into the new layer
// instead of being referenced live, so that a background subshell's
// mutations never become visible to the runner it was forked from (and
// vice versa).
func newOverlayEnviron(parent expand.Environ, background bool) *overlayEnviron {
	o := &overlayEnviron{parent: parent}
	if background {
		o.values = make(map[string]expand.Variable)
		parent.Each(func(name string, vr expand.Variable) bool {
			o.values[name] = vr
			return true
		})
		o.parent = nil
	}
	return o
}

func (o *overlayEnviron) Get(name string) expand.Variable {
	if vr, ok := o.values[name]; ok {
		return vr
	}
	if o.parent != nil {
		return o.parent.Get(name)
	}
	return expand.Variable{}
}

func (o *overlayEnviron) Set(name string, vr expand.Variable) error {
	if name == "" {
		return fmt.Errorf("cannot set variable with empty name")
	}
	cur := o.Get(name)
	if cur.ReadOnly && vr.Kind != expand.KeepValue {
		return fmt.Errorf("%s: readonly variable", name)
	}
	if vr.Kind == expand.KeepValue {
		// Keep the existing value, just update the attributes that were
		// explicitly supplied (e.g. "readonly foo=bar; export foo").
		cur.Exported = vr.Exported || cur.Exported
		cur.ReadOnly = vr.ReadOnly || cur.ReadOnly
		cur.Local = vr.Local
		vr = cur
	}
	if o.values == nil {
		o.values = make(map[string]expand.Variable)
	}
	o.values[name] = vr
	return nil
}

func (o *overlayEnviron) Each(fn func(name string, vr expand.Variable) bool) {
	done := make(map[string]bool, len(o.values))
	for name, vr := range o.values {
		done[name] = true
		if !fn(name, vr) {
			return
		}
	}
	if o.parent == nil {
		return
	}
	o.parent.Each(func(name string, vr expand.Variable) bool {
		if done[name] {
			return true
		}
		return fn(name, vr)
	})
}

// lookupVar returns the variable currently visible under name, following
// the overlay chain from the innermost (command, then function-local)
// scope out to the global one. No variable is computed on read: names
// such as RANDOM or SECONDS hold only what was assigned to them or
// inherited from the environment.
func (r *Runner) lookupVar(name string) expand.Variable {
	if name == "" {
		return expand.Variable{}
	}
	return r.writeEnv.Get(name)
}

// setVar assigns vr to name in the innermost scope, honoring readonly
// variables by returning an error through the runner's error channel.
func (r *Runner) setVar(name string, vr expand.Variable) {
	if name == "" {
		return
	}
	if err := r.writeEnv.Set(name, vr); err != nil {
		r.errf("%v\n", err)
		r.exit.code = 1
	}
}

// setVarString is a convenience wrapper to assign a plain string value.
func (r *Runner) setVarString(name, val string) {
	r.setVar(name, expand.Variable{Set: true, Kind: expand.String, Str: val})
}

// splitIndexedName splits a literal like "foo[3]" or "foo[x]" into its
// base name and the raw (unevaluated) index expression text. ok is false
// for a plain name with no subscript.
func splitIndexedName(name string) (base, index string, ok bool) {
	i := strings.IndexByte(name, '[')
	if i < 0 || !strings.HasSuffix(name, "]") {
		return name, "", false
	}
	return name[:i], name[i+1 : len(name)-1], true
}

// setVarWithIndex assigns vr to name, which may carry an array subscript
// either directly as an already-parsed ArithmExpr (index) or embedded in
// the literal name text (e.g. "arr[2]"). prev is the variable's value
// before this assignment, used to decide whether an existing array is
// being indexed into versus a fresh scalar being created.
func (r *Runner) setVarWithIndex(prev expand.Variable, name string, index syntax.ArithmExpr, vr expand.Variable) {
	base, rawIndex, hasRawIndex := splitIndexedName(name)
	if index == nil && !hasRawIndex {
		r.setVar(name, vr)
		return
	}
	if index == nil {
		parsed, err := syntax.NewParser().ArithmExpr(strings.NewReader(rawIndex))
		if err != nil {
			r.errf("%s: invalid array index: %v\n", name, err)
			r.exit.code = 1
			return
		}
		index = parsed
	}
	i := r.arithm(index)

	switch prev.Kind {
	case expand.Associative:
		r.errf("%s: cannot assign a scalar to an associative array index with []\n", base)
		r.exit.code = 1
		return
	default:
		list := append([]string(nil), prev.List...)
		for len(list) <= i {
			list = append(list, "")
		}
		list[i] = vr.String()
		next := prev
		next.Set = true
		next.Kind = expand.Indexed
		next.List = list
		r.setVar(base, next)
	}
}

// delVar removes name from whichever scope currently binds it.
func (r *Runner) delVar(name string) {
	if r.lookupVar(name).ReadOnly {
		r.errf("%s: readonly variable\n", name)
		r.exit.code = 1
		return
	}
	if err := r.writeEnv.Set(name, expand.Variable{}); err != nil {
		r.errf("%v\n", err)
		r.exit.code = 1
	}
}

// setFunc defines or redefines a shell function.
func (r *Runner) setFunc(name string, body *syntax.Stmt) {
	if r.Funcs == nil {
		r.Funcs = make(map[string]*syntax.Stmt)
	}
	r.Funcs[name] = body
}

// envGet is a convenience that returns a variable's string value,
// treating an unset variable as the empty string.
func (r *Runner) envGet(name string) string {
	return r.lookupVar(name).String()
}

// assignVal computes the new value to store for as, given the variable's
// previous value prev and an optional declare-style type hint
// ("", "-a", "-A", or "-n").
func (r *Runner) assignVal(prev expand.Variable, as *syntax.Assign, valType string) expand.Variable {
	if as.Array != nil {
		// foo=(a b c)
		elems := make([]string, 0, len(as.Array.Elems))
		for _, el := range as.Array.Elems {
			if el.Value == nil {
				elems = append(elems, "")
				continue
			}
			elems = append(elems, r.literal(el.Value))
		}
		if valType == "-A" || prev.Kind == expand.Associative {
			m := make(map[string]string, len(elems))
			for i, v := range elems {
				m[strconv.Itoa(i)] = v
			}
			return expand.Variable{Set: true, Kind: expand.Associative, Map: m}
		}
		return expand.Variable{Set: true, Kind: expand.Indexed, List: elems}
	}

	val := r.literal(&as.Value)
	if as.Append {
		switch prev.Kind {
		case expand.Indexed:
			next := prev
			next.Set = true
			next.List = append(append([]string(nil), prev.List...), val)
			return next
		case expand.Associative:
			// appending to an associative array without a subscript is a
			// no-op target in bash; keep the existing value.
			return prev
		default:
			return expand.Variable{Set: true, Kind: expand.String, Str: prev.String() + val}
		}
	}

	if valType == "-n" {
		return expand.Variable{Set: true, Kind: expand.NameRef, Str: val}
	}

	return expand.Variable{Set: true, Kind: expand.String, Str: val}
}
