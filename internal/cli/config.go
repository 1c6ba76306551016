package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ilsetl.yaml",
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the resolved connection and API settings to ilsetl.yaml",
	Long: `Resolves connection and API settings exactly as 'ilsetl load' does and
writes them to ilsetl.yaml in --config-dir. The staging section of an existing
file is kept. Passwords and application tokens are never written.

Example:
  ilsetl config save -h db.example.com -d warehouse -U loader --sslmode require`,
	Args: cobra.NoArgs,
	RunE: runConfigSave,
}

var configFlags struct {
	conn connectionFlags
	api  apiFlags
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSaveCmd)

	addConnectionFlags(configSaveCmd, &configFlags.conn)
	addAPIFlags(configSaveCmd, &configFlags.api)
}

func runConfigSave(cmd *cobra.Command, args []string) error {
	dir := getConfigDir(cmd)
	projectCfg, err := loadProjectConfig(dir)
	if err != nil {
		return err
	}

	connConfig, err := resolveConnectionFromFlags(configFlags.conn, projectCfg)
	if err != nil {
		return err
	}
	apiCfg, err := resolveAPIConfig(configFlags.api, projectCfg)
	if err != nil {
		return err
	}

	path, err := saveProjectConfig(dir, connConfig, apiCfg)
	if err != nil {
		return err
	}
	newLogger(cmd).Info("✓ Configuration saved to %s", path)
	return nil
}
