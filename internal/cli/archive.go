package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/internal/archive"
	"github.com/ilsetl/ilsetl/internal/checksum"
	"github.com/ilsetl/ilsetl/internal/output"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// defaultArchivePath is used when --archive is not given.
const defaultArchivePath = "ilsetl-runs.db"

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect result sets stored by 'ilsetl fetch --archive'",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:               "show [run_id]",
	Short:             "Print the records of an archived run (default: latest)",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeRunIDs,
	RunE:              runArchiveShow,
}

var archiveDeleteCmd = &cobra.Command{
	Use:               "delete <run_id>",
	Short:             "Remove an archived run",
	Args:              RequireRunID,
	ValidArgsFunction: completeRunIDs,
	RunE:              runArchiveDelete,
}

var archiveFlags struct {
	path   string
	format string
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd, archiveDeleteCmd)

	archiveCmd.PersistentFlags().StringVar(&archiveFlags.path, "archive", defaultArchivePath, "Archive file")
	archiveCmd.PersistentFlags().StringVar(&archiveFlags.format, "format", "", "Output format: table, csv, json")
	_ = archiveCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

// openExistingArchive refuses to create a new file for read commands.
func openExistingArchive(path string) (*archive.Store, error) {
	if !archive.Exists(path) {
		return nil, fmt.Errorf("archive %s does not exist: %w", path, ilsetl.ErrInvalidConfig)
	}
	return archive.Open(path)
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := openExistingArchive(archiveFlags.path)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List()
	if err != nil {
		return err
	}

	header := []string{"id", "dataset", "fetched_at", "records", "checksum", "where"}
	rows := make([]ilsetl.Row, len(summaries))
	for i, s := range summaries {
		rows[i] = ilsetl.Row{s.ID, s.Dataset, s.FetchedAt.UTC().Format(time.RFC3339), strconv.Itoa(s.Count), checksum.Short(s.Checksum), s.Where}
	}

	formatter, err := resolveFormatter(archiveFlags.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return formatter.Format(output.FromRows(header, rows), cmd.OutOrStdout())
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	store, err := openExistingArchive(archiveFlags.path)
	if err != nil {
		return err
	}
	defer store.Close()

	var run *archive.Run
	if len(args) == 0 {
		run, err = store.Latest()
	} else {
		run, err = store.Get(args[0])
	}
	if err != nil {
		return err
	}

	formatter, err := resolveFormatter(archiveFlags.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return formatter.Format(output.FromRecords(run.Records), cmd.OutOrStdout())
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	store, err := openExistingArchive(archiveFlags.path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	newLogger(cmd).Info("Deleted run %s", args[0])
	return nil
}
