package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/internal/archive"
	"github.com/ilsetl/ilsetl/internal/output"
	"github.com/ilsetl/ilsetl/internal/sales"
	"github.com/ilsetl/ilsetl/internal/tui"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Query the sales dataset and print the records",
	Long: `Queries the Iowa Liquor Sales dataset and prints the matching records.

Each --filter restricts one field to a list of values; filters are combined
with AND. --where passes a raw where-clause instead and ignores every --filter.
Without either, the staging.filters section of ilsetl.yaml applies.

With --archive the result set is also stored in a local archive file so it
can be staged later with 'ilsetl load --from-archive'.

Examples:
  ilsetl fetch --filter county=POLK,STORY --filter category_name="STRAIGHT BOURBON WHISKIES"
  ilsetl fetch --where "sale_dollars > 10000" --limit 20 --format csv
  ilsetl fetch --filter city=AMES --all --archive runs.db`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var fetchFlags struct {
	api     apiFlags
	query   queryFlags
	format  string
	archive string
	timeout time.Duration
}

func resetFetchFlags() {
	fetchFlags.api = apiFlags{}
	fetchFlags.query = queryFlags{}
	fetchFlags.format = ""
	fetchFlags.archive = ""
	fetchFlags.timeout = 0
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	addAPIFlags(fetchCmd, &fetchFlags.api)
	addQueryFlags(fetchCmd, &fetchFlags.query)
	fetchCmd.Flags().StringVar(&fetchFlags.format, "format", "", "Output format: table, csv, json (default table on a terminal, json otherwise)")
	fetchCmd.Flags().StringVar(&fetchFlags.archive, "archive", "", "Also store the result set in this archive file")
	fetchCmd.Flags().DurationVar(&fetchFlags.timeout, "timeout", 0, "Overall timeout (0 means none)")

	_ = fetchCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runFetch(cmd *cobra.Command, args []string) error {
	projectCfg, err := loadProjectConfig(getConfigDir(cmd))
	if err != nil {
		return err
	}

	apiCfg, err := resolveAPIConfig(fetchFlags.api, projectCfg)
	if err != nil {
		return err
	}
	filters, err := buildFilters(fetchFlags.query, projectCfg)
	if err != nil {
		return err
	}
	formatter, err := resolveFormatter(fetchFlags.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, fetchFlags.timeout)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	api, err := sales.NewFromConfig(apiCfg, logger, userAgent())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, timeout)
	defer cancel()

	records, err := fetchRecords(ctx, api, filters, fetchFlags.query)
	if err != nil {
		return err
	}

	if fetchFlags.archive != "" {
		run := archive.NewRun(api.Dataset(), sales.BuildWhereClause(filters), records)
		if err := saveRun(fetchFlags.archive, run); err != nil {
			return err
		}
		logger.Info("Archived run %s (%d records) to %s", run.ID, len(records), fetchFlags.archive)
	}

	return formatter.Format(output.FromRecords(records), cmd.OutOrStdout())
}

// queryOptions maps query flags onto sales options.
func queryOptions(flags queryFlags) []sales.QueryOption {
	var opts []sales.QueryOption
	if flags.limit > 0 {
		opts = append(opts, sales.WithLimit(flags.limit))
	}
	if flags.all {
		opts = append(opts, sales.AllPages())
	}
	return opts
}

// fetchRecords runs the query behind a spinner on interactive terminals.
func fetchRecords(ctx context.Context, api *sales.API, filters ilsetl.Filters, flags queryFlags) ([]ilsetl.Record, error) {
	var records []ilsetl.Record
	err := tui.RunWithSpinner(ctx, "Querying "+api.Dataset(), func(ctx context.Context) error {
		var err error
		records, err = api.Query(ctx, filters, queryOptions(flags)...)
		return err
	})
	return records, err
}

func resolveFormatter(name string, w io.Writer) (output.Formatter, error) {
	if name == "" {
		name = output.DefaultName(w)
	}
	return output.ByName(name)
}

func saveRun(path string, run *archive.Run) error {
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(run); err != nil {
		return fmt.Errorf("failed to archive run: %w", err)
	}
	return nil
}
