// Command txcomplete runs transaction completion scenarios and inspects
// their delivery audit log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/txcomplete/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
