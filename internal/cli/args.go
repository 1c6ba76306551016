package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireRunID is a cobra.PositionalArgs that wants exactly one run ID and
// points at 'ilsetl archive list' when it is missing.
func RequireRunID(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return fmt.Errorf("missing required argument: <run_id>\n\nUsage: %s\n\nRun 'ilsetl archive list --archive <file>' to see archived run IDs.",
			cmd.UseLine())
	case len(args) > 1:
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}
