package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/internal/archive"
	"github.com/ilsetl/ilsetl/internal/output"
)

// sslModes contains valid PostgreSQL SSL modes for shell completion.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// authMethods contains the --auth values for shell completion.
var authMethods = []string{"standard", "aws", "google", "azure"}

func completeFromList(values []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, toComplete) {
			matches = append(matches, v)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeSSLModes provides shell completion for SSL mode flag values.
func completeSSLModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFromList(sslModes, toComplete)
}

// completeAuthMethods provides shell completion for --auth.
func completeAuthMethods(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFromList(authMethods, toComplete)
}

// completeFormats provides shell completion for --format.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFromList(output.Names(), toComplete)
}

// completeRunIDs offers the IDs stored in the --archive file, newest first.
// Nothing is offered when the file does not exist yet.
func completeRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || !archive.Exists(archiveFlags.path) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := archive.Open(archiveFlags.path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer store.Close()

	summaries, err := store.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID+"\t"+s.FetchedAt.UTC().Format(time.RFC3339))
	}
	return completeFromList(ids, toComplete)
}
