// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// trapName normalizes a signal or pseudo-signal name as given to "trap" or
// "kill", stripping an optional "SIG" prefix and upper-casing it. It
// reports ok=false for names this build doesn't recognize at all (as
// opposed to recognizing but not being able to trap, like SIGKILL).
func trapName(arg string) (name string, ok bool) {
	name = strings.ToUpper(strings.TrimPrefix(arg, "SIG"))
	switch name {
	case "EXIT", "ERR":
		return name, true
	}
	if _, ok := namedSignals[name]; ok {
		return name, true
	}
	return "", false
}

// signalByName resolves a normalized signal name (as returned by
// [trapName], or a bare number like "9") to the [os.Signal] "kill" should
// deliver. It returns ok=false for pseudo-signals like EXIT/ERR, which
// have no OS signal to send.
func signalByName(name string) (os.Signal, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		for _, sig := range namedSignals {
			if ord, ok := signalOrdinal(sig); ok && ord == n {
				return sig, true
			}
		}
		return nil, false
	}
	sig, ok := namedSignals[name]
	return sig, ok
}

// signalName reverses [signalByName], returning the normalized name "trap"
// registered a callback under for sig.
func signalName(sig os.Signal) (string, bool) {
	for name, s := range namedSignals {
		if s == sig {
			return name, true
		}
	}
	return "", false
}

// signalNames returns every signal name "trap -l" should list, sorted the
// way bash orders them: by signal number where known, then by name.
func signalNames() []string {
	names := make([]string, 0, len(namedSignals))
	for name := range namedSignals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oki := signalOrdinal(namedSignals[names[i]])
		oj, okj := signalOrdinal(namedSignals[names[j]])
		if oki && okj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}
