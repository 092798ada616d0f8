// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coreshell/gosh/internal"
	"github.com/coreshell/gosh/syntax"
)

// Some program which should be in $PATH.
var pathProg = func() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}()

func parse(tb testing.TB, parser *syntax.Parser, src string) *syntax.File {
	if parser == nil {
		parser = syntax.NewParser()
	}
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		tb.Fatal(err)
	}
	return file
}

// concBuffer is a concurrency-safe buffer for tests that run background
// jobs writing to a shared stdout.
type concBuffer = internal.ConcBuffer

func checkBash() bool {
	out, err := exec.Command("bash", "-c", "echo -n $BASH_VERSION").Output()
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(out), "5.0")
}

func testExecHandler(ctx context.Context, args []string) error {
	switch args[0] {
	case "pid_and_hang":
		fmt.Println(os.Getpid())
		time.Sleep(time.Hour)
		return nil
	}
	return DefaultExecHandler(2 * time.Second)(ctx, args)
}

func testOpenHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if runtime.GOOS == "windows" && path == "/dev/null" {
		path = "NUL"
	}
	return DefaultOpenHandler()(ctx, path, flag, perm)
}

var hasBash50 bool

// TestMain lets the test binary re-exec itself as a shell interpreter when
// GOSH_PROG points back at it: several tests spawn the current test binary
// as a subprocess and feed it a script via argv, rather than shelling out to
// a real system shell.
func TestMain(m *testing.M) {
	if os.Getenv("GOSH_PROG") != "" {
		switch os.Getenv("GOSH_CMD") {
		case "pid_and_hang":
			fmt.Println(os.Getpid())
			time.Sleep(time.Hour)
		}
		r := strings.NewReader(os.Args[1])
		file, err := syntax.NewParser().Parse(r, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		runner, _ := New(
			StdIO(os.Stdin, os.Stdout, os.Stderr),
			OpenHandler(testOpenHandler),
			ExecHandler(testExecHandler),
		)
		ctx := context.Background()
		if err := runner.Run(ctx, file); err != nil {
			if status, ok := IsExitStatus(err); ok {
				os.Exit(int(status))
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	prog, err := os.Executable()
	if err != nil {
		panic(err)
	}
	os.Setenv("GOSH_PROG", prog)

	internal.TestMainSetup()
	hasBash50 = checkBash()
	os.Setenv("PATH_PROG", pathProg)

	os.Exit(m.Run())
}
