package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/internal/archive"
	"github.com/ilsetl/ilsetl/internal/config"
	"github.com/ilsetl/ilsetl/internal/db"
	"github.com/ilsetl/ilsetl/internal/output"
	"github.com/ilsetl/ilsetl/internal/sales"
	"github.com/ilsetl/ilsetl/internal/services"
	"github.com/ilsetl/ilsetl/internal/staging"
	"github.com/ilsetl/ilsetl/internal/tui"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetch records and stage them in a temporary PostgreSQL table",
	Long: `Fetches records (or reads an archived run) and stages them in a
temporary table with one TEXT column per record key.

The table lives only for this session. Use --post-sql to run SQL in the same
transaction, for example to copy the staged rows into a permanent table.
The transaction is committed at the end and rolled back on any error.

Connection (highest priority first):
  --connection, $ILSETL_CONNECTION_STRING, $DATABASE_URL
  -h/-p/-U/-d/--sslmode, $PGHOST..., $DB_HOST/$DB_NAME/$DB_USER/$DB_PW, ilsetl.yaml

Examples:
  ilsetl load --table staging_sales --filter county=POLK -d warehouse
  ilsetl load --table staging_sales --all --post-sql promote.sql
  ilsetl load --table staging_sales --from-archive runs.db --dry-run --preview 10`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var loadFlags struct {
	conn        connectionFlags
	api         apiFlags
	query       queryFlags
	table       string
	postSQL     string
	fromArchive string
	runID       string
	autocommit  bool
	dryRun      bool
	preview     int
	format      string
	timeout     time.Duration
}

func resetLoadFlags() {
	loadFlags.conn = connectionFlags{}
	loadFlags.api = apiFlags{}
	loadFlags.query = queryFlags{}
	loadFlags.table = ""
	loadFlags.postSQL = ""
	loadFlags.fromArchive = ""
	loadFlags.runID = ""
	loadFlags.autocommit = false
	loadFlags.dryRun = false
	loadFlags.preview = 0
	loadFlags.format = ""
	loadFlags.timeout = 0
}

func init() {
	rootCmd.AddCommand(loadCmd)

	addConnectionFlags(loadCmd, &loadFlags.conn)
	addAPIFlags(loadCmd, &loadFlags.api)
	addQueryFlags(loadCmd, &loadFlags.query)

	flags := loadCmd.Flags()
	flags.StringVar(&loadFlags.table, "table", "", "Temporary staging table to create (folded to lower case, like an unquoted identifier)")
	flags.StringVar(&loadFlags.postSQL, "post-sql", "", "SQL file to run after staging, before commit")
	flags.StringVar(&loadFlags.fromArchive, "from-archive", "", "Stage an archived run instead of querying the API")
	flags.StringVar(&loadFlags.runID, "run", "", "Archived run ID (default: latest)")
	flags.BoolVar(&loadFlags.autocommit, "autocommit", false, "Commit each statement on its own")
	flags.BoolVar(&loadFlags.dryRun, "dry-run", false, "Stage and run --post-sql, then roll back")
	flags.IntVar(&loadFlags.preview, "preview", 0, "Print this many staged rows before the transaction ends")
	flags.StringVar(&loadFlags.format, "format", "", "Preview format: table, csv, json")
	flags.DurationVar(&loadFlags.timeout, "timeout", 0, "Overall timeout (0 means none)")

	_ = loadCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runLoad(cmd *cobra.Command, args []string) error {
	projectCfg, err := loadProjectConfig(getConfigDir(cmd))
	if err != nil {
		return err
	}

	loadCfg, err := buildLoadConfig(cmd, projectCfg)
	if err != nil {
		return err
	}
	if err := loadCfg.Validate(); err != nil {
		return err
	}
	if loadFlags.runID != "" && loadFlags.fromArchive == "" {
		return fmt.Errorf("--run requires --from-archive: %w", ilsetl.ErrInvalidConfig)
	}

	apiCfg, err := resolveAPIConfig(loadFlags.api, projectCfg)
	if err != nil {
		return err
	}
	connConfig, err := resolveConnectionFromFlags(loadFlags.conn, projectCfg)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	logConnectionVerbose(logger, connConfig)

	api, err := sales.NewFromConfig(apiCfg, logger, userAgent())
	if err != nil {
		return err
	}

	openStager := func(ctx context.Context) (services.Stager, error) {
		connector, err := db.NewConnector(connConfig, logger)
		if err != nil {
			return nil, err
		}
		loader, err := staging.Open(ctx, connector, staging.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return loader, nil
	}
	svc := services.NewLoadService(api, openStager, logger)

	ctx, cancel := commandContext(cmd, loadCfg.Timeout)
	defer cancel()

	var records []ilsetl.Record
	if loadFlags.fromArchive != "" {
		records, err = archivedRecords(loadFlags.fromArchive, loadFlags.runID, logger)
	} else {
		err = tui.RunWithSpinner(ctx, "Querying "+api.Dataset(), func(ctx context.Context) error {
			var err error
			records, err = svc.Fetch(ctx, *loadCfg)
			return err
		})
	}
	if err != nil {
		return err
	}

	result, err := svc.Load(ctx, *loadCfg, records)
	if err != nil {
		return err
	}

	if len(result.Columns) > 0 {
		formatter, err := resolveFormatter(loadFlags.format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := formatter.Format(output.FromRows(result.Columns, result.Preview), cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	if result.Committed {
		logger.Info("✓ Staged %d rows into %s", result.Loaded, result.Table)
	}
	return nil
}

// buildLoadConfig merges load flags with the staging section of ilsetl.yaml.
func buildLoadConfig(cmd *cobra.Command, projectCfg *config.ProjectConfig) (*ilsetl.LoadConfig, error) {
	filters, err := buildFilters(loadFlags.query, projectCfg)
	if err != nil {
		return nil, err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, loadFlags.timeout)
	if err != nil {
		return nil, err
	}

	table, postSQLPath := loadFlags.table, loadFlags.postSQL
	if projectCfg != nil {
		table = firstSet(table, projectCfg.Staging.Table)
		postSQLPath = firstSet(postSQLPath, projectCfg.Staging.PostSQL)
	}

	var postSQL string
	if postSQLPath != "" {
		data, err := os.ReadFile(postSQLPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read post-load SQL %s: %w", postSQLPath, err)
		}
		postSQL = string(data)
	}

	return &ilsetl.LoadConfig{
		Table:      table,
		Filters:    filters,
		Limit:      loadFlags.query.limit,
		AllPages:   loadFlags.query.all,
		PostSQL:    postSQL,
		Autocommit: loadFlags.autocommit,
		DryRun:     loadFlags.dryRun,
		Preview:    loadFlags.preview,
		Timeout:    timeout,
	}, nil
}

// archivedRecords reads one run, or the latest when id is empty.
func archivedRecords(path, id string, logger ilsetl.Logger) ([]ilsetl.Record, error) {
	if !archive.Exists(path) {
		return nil, fmt.Errorf("archive %s does not exist: %w", path, ilsetl.ErrInvalidConfig)
	}
	store, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var run *archive.Run
	if id == "" {
		run, err = store.Latest()
	} else {
		run, err = store.Get(id)
	}
	if err != nil {
		return nil, err
	}

	logger.Verbose("Using archived run %s (%d records, fetched %s)", run.ID, len(run.Records), run.FetchedAt.Format(time.RFC3339))
	return run.Records, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
