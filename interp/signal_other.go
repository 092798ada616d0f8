// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build !unix

package interp

import "os"

// namedSignals maps the signal names "trap"/"kill" accept to the
// [os.Signal] values this platform actually supports. Go's os/signal
// package only lets non-unix platforms catch os.Interrupt, so that's
// all this table offers; [trapName] and [signalByName] report every
// other signal name as unknown.
var namedSignals = map[string]os.Signal{
	"INT": os.Interrupt,
}

// trappableSignals lists the signals "trap" can register a live OS
// handler for on this platform.
var trappableSignals = []os.Signal{os.Interrupt}

// signalOrdinal returns the numeric signal value "trap -l" lists next to
// a signal's name. Non-unix platforms have no stable numbering for
// os.Signal, so this always reports none.
func signalOrdinal(sig os.Signal) (int, bool) {
	return 0, false
}
