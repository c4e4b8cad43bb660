/*
Package commands implements the staffing-engine command line.

COMMANDS:
  serve      Run the HTTP API and the month-end snapshot scheduler
  forecast   Print one month's forecast as JSON
  overtime   Print (or submit) a pay period's overtime as JSON
  import     Load a roster/activity document into the database
  version    Print build information

Every command reads the same configuration (see internal/config); the
--config flag names the YAML file.
*/
package commands

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/staffing-engine/api"
	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/internal/config"
	"github.com/warp/staffing-engine/overtime"
	"github.com/warp/staffing-engine/store/sqlite"
	"github.com/warp/staffing-engine/submission"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	var configPath string
	app := &config.Application{}

	rootCmd := &cobra.Command{
		Use:   "staffing-engine",
		Short: "Staffing forecast and overtime engine",
		Long: `staffing-engine forecasts monthly revenue, cost and margin from the
staffing roster, and allocates overtime to projects for payroll.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level, err := loaded.LogLevel()
			if err != nil {
				return err
			}
			log.SetLevel(level)
			*app = loaded
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newForecastCmd(app))
	rootCmd.AddCommand(newOvertimeCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "staffing-engine %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// =============================================================================
// ENGINE WIRING
// =============================================================================

// engine is the store plus the services built on it.
type engine struct {
	store     *sqlite.Store
	forecasts *forecast.Service
	overtime  *overtime.Service
}

func openEngine(app *config.Application) (*engine, error) {
	opts, err := app.ForecastOptions()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(app.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clock := generic.SystemClock{}
	ledger := submission.NewLedger(store.Submissions(), submission.LogSink{}, clock)

	forecasts := forecast.NewService(store, store.Overlays(), store, clock, opts)
	forecasts.Ledger = ledger

	return &engine{
		store:     store,
		forecasts: forecasts,
		overtime:  overtime.NewService(store, ledger, app.OvertimeOptions()),
	}, nil
}

func (e *engine) handler() *api.Handler {
	return api.NewHandler(e.store, e.forecasts, e.overtime)
}

func (e *engine) Close() error {
	return e.store.Close()
}
