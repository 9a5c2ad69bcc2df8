package cli

import (
	"github.com/BartekS5/marketsync/internal/config"
	"github.com/spf13/cobra"
)

type BackupOptions struct {
	OutputDir string
}

func NewBackupCmd(app *App) *cobra.Command {
	common := &CommonOptions{}
	opts := &BackupOptions{}

	cmd := &cobra.Command{
		Use:          "backup [dev|prod]",
		Short:        "Dump every catalog collection to JSON files",
		Long:         "Dump every catalog collection of one environment (development by default) into a timestamped directory under BACKUP_DIR.",
		Args:         positional(false, "dev", "prod"),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.Development
			if len(args) == 1 && args[0] == "prod" {
				env = config.Production
			}
			return runBackup(cmd.Context(), app, env, common, opts)
		},
	}
	common.bind(cmd)
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Base directory for backups (default BACKUP_DIR or ./backups)")
	return cmd
}
