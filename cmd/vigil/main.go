// Command vigil validates datasets around deployments: schema checks,
// checksum digests, golden baselines, and tamper-evident audit chains.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nhomyk/AgenticQA-sub001/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own diagnostics; an ExitError only
		// selects the exit code. Anything else is a usage error cobra
		// did not render.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
