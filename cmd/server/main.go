/*
main.go - Application entry point

PURPOSE:
  Runs the staffing-engine command line. `staffing-engine serve` starts the
  HTTP API; the other subcommands work directly against the database.

CONFIGURATION:
  Defaults, then --config (YAML), then STAFFING_* environment variables.
  See internal/config.

EXAMPLES:
  # Run the API on a file database
  STAFFING_DB_PATH=./data/warp.db ./staffing-engine serve

  # Run with an in-memory database on another port
  STAFFING_DB_PATH=":memory:" ./staffing-engine serve --port 3000

  # Load a roster and print November
  ./staffing-engine import -f roster.json
  ./staffing-engine forecast --month 2025-11

SEE ALSO:
  - internal/commands: Subcommands and service wiring
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/staffing-engine/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
