// Command ilsetl queries the Iowa Liquor Sales dataset and stages the
// results in PostgreSQL temporary tables.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/ilsetl/ilsetl/internal/cli"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. A panic is reported with its stack
// and mapped to ilsetl.ExitPanic.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			code = ilsetl.ExitPanic
		}
	}()

	if os.Getenv("ILSETL_TEST_PANIC") == "1" {
		panic("ILSETL_TEST_PANIC is set")
	}

	if err := cli.Execute(); err != nil {
		return ilsetl.ExitCodeForError(err)
	}
	return ilsetl.ExitSuccess
}
