package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func TestRequireRunID(t *testing.T) {
	cmd := &cobra.Command{Use: "delete <run_id>"}

	t.Run("missing", func(t *testing.T) {
		err := RequireRunID(cmd, nil)
		if err == nil {
			t.Fatal("Expected error for missing run id")
		}
		if !strings.Contains(err.Error(), "ilsetl archive list") {
			t.Errorf("Expected hint about archive list, got: %v", err)
		}
		if code := ilsetl.ExitCodeForError(err); code != ilsetl.ExitUsageError {
			t.Errorf("Expected exit code %d, got %d", ilsetl.ExitUsageError, code)
		}
	})

	t.Run("exactly one", func(t *testing.T) {
		if err := RequireRunID(cmd, []string{"abc"}); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("too many", func(t *testing.T) {
		err := RequireRunID(cmd, []string{"a", "b"})
		if err == nil {
			t.Fatal("Expected error for too many args")
		}
		if code := ilsetl.ExitCodeForError(err); code != ilsetl.ExitUsageError {
			t.Errorf("Expected exit code %d, got %d", ilsetl.ExitUsageError, code)
		}
	})
}
