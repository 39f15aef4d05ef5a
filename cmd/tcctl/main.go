// Command tcctl is a demonstration CLI for the tc4 transactional-compound
// client: read/write/getattr/ls/rename/rm/mkdir subcommands against a real NFSv4 server,
// exercising the same pkg/tc surface a programmatic caller would use.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/tc4client/cmd/tcctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
