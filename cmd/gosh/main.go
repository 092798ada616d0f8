// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// gosh is a proof of concept shell built on top of [interp].
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/coreshell/gosh/history"
	"github.com/coreshell/gosh/interp"
	"github.com/coreshell/gosh/syntax"
)

var command = flag.String("c", "", "command to be executed")

func main() {
	flag.Parse()
	cfg, _ := loadConfig(configPath())
	color.NoColor = !wantColor(cfg.UI.Color, term.IsTerminal(int(os.Stderr.Fd())))

	err := runAll()
	var es interp.ExitStatus
	if errors.As(err, &es) {
		os.Exit(int(es))
	}
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// historyPath returns the file gosh persists its command history to, or
// "" if the user's home directory can't be determined.
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gosh_history")
}

func runAll() error {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	histPath := historyPath()
	h, err := history.ImportFile(histPath)
	if err != nil {
		return err
	}

	r, err := interp.New(
		interp.Interactive(true),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.History(h),
	)
	if err != nil {
		return err
	}

	if *command != "" {
		return run(ctx, r, strings.NewReader(*command), "")
	}
	if flag.NArg() == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			err := runInteractive(ctx, r, h, os.Stdin, os.Stdout, os.Stderr)
			if histPath != "" {
				if ferr := h.Flush(histPath, false, false, false); ferr != nil && err == nil {
					err = ferr
				}
			}
			return err
		}
		return run(ctx, r, os.Stdin, "")
	}
	for _, path := range flag.Args() {
		if err := runPath(ctx, r, path); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, r *interp.Runner, reader io.Reader, name string) error {
	prog, err := syntax.NewParser().Parse(reader, name)
	if err != nil {
		return err
	}
	r.Reset()
	return r.Run(ctx, prog)
}

func runPath(ctx context.Context, r *interp.Runner, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return run(ctx, r, f, path)
}

func runInteractive(ctx context.Context, r *interp.Runner, h *history.History, stdin io.Reader, stdout, stderr io.Writer) error {
	parser := syntax.NewParser()
	// buf accumulates the raw bytes the parser consumes for the
	// statements it is about to hand back, so they can be recorded
	// verbatim in history once a full (non-continued) line is ready.
	var buf bytes.Buffer
	fmt.Fprintf(stdout, "$ ")
	for stmts, err := range parser.InteractiveSeq(io.TeeReader(stdin, &buf)) {
		if err != nil {
			return err // stop at the first error
		}
		if parser.Incomplete() {
			fmt.Fprintf(stdout, "> ")
			continue
		}
		if h != nil {
			if line := strings.TrimRight(buf.String(), "\n"); line != "" {
				h.Add(history.NewItem(line))
			}
		}
		buf.Reset()
		for _, stmt := range stmts {
			err := r.Run(ctx, stmt)
			if r.Exited() {
				return err
			}
		}
		fmt.Fprintf(stdout, "$ ")
	}
	return nil
}
