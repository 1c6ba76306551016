package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

var rootCmd = &cobra.Command{
	Use:   "ilsetl",
	Short: "Iowa Liquor Sales to PostgreSQL staging loader",
	Long: `ilsetl queries the Iowa Liquor Sales dataset on data.iowa.gov with field
filters and stages the records in session-scoped temporary PostgreSQL tables.

Every staging column is TEXT. Moving staged rows into permanent tables is
done by your own SQL (--post-sql), inside the same transaction.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  13 - SQL execution failed
  15 - Sales API request failed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is the PostgreSQL host flag, so help gets no shorthand.
	rootCmd.PersistentFlags().Bool("help", false, "Help for ilsetl")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config-dir", ".", "Directory holding "+configFileHint)
}

const configFileHint = "ilsetl.yaml and .env"

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.InheritedFlags().GetBool("verbose")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// getConfigDir returns the --config-dir value, defaulting to the working directory.
func getConfigDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		dir, err = cmd.InheritedFlags().GetString("config-dir")
	}
	if err != nil || dir == "" {
		return "."
	}
	return dir
}

func newLogger(cmd *cobra.Command) ilsetl.Logger {
	return logging.NewConsoleLoggerTo(cmd.ErrOrStderr(), getVerboseFlag(cmd))
}
