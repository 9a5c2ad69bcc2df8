package cli

import (
	"github.com/BartekS5/marketsync/internal/config"
	"github.com/BartekS5/marketsync/internal/transfer"
	"github.com/spf13/cobra"
)

// CopyOptions are the flags of the copy and sync-schema binaries.
type CopyOptions struct {
	Strategy string
	DryRun   bool
	Confirm  string
}

func (o *CopyOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Strategy, "strategy", string(transfer.StrategyDirect), "Replace strategy: direct or staging")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "Report what would be copied without writing")
	cmd.Flags().StringVar(&o.Confirm, "confirm", "", "Skip the production prompt by passing "+ConfirmationToken)
}

func newCopyCmd(app *App, use, short string, plan Plan) *cobra.Command {
	common := &CommonOptions{}
	opts := &CopyOptions{}

	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         positional(false),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd.Context(), app, plan, common, opts)
		},
	}
	common.bind(cmd)
	opts.bind(cmd)
	return cmd
}

func NewCopyDevToProdCmd(app *App) *cobra.Command {
	return newCopyCmd(app, "copy-dev-to-prod", "Replace production collections with their development copies", Plan{
		Operation: "copy-dev-to-prod",
		Source:    config.Development,
		Target:    config.Production,
	})
}

func NewCopyProdToDevCmd(app *App) *cobra.Command {
	return newCopyCmd(app, "copy-prod-to-dev", "Replace development collections with their production copies", Plan{
		Operation: "copy-prod-to-dev",
		Source:    config.Production,
		Target:    config.Development,
	})
}

// NewSyncSchemaCmd copies only the schema collections in the direction
// named by its argument.
func NewSyncSchemaCmd(app *App) *cobra.Command {
	common := &CommonOptions{}
	opts := &CopyOptions{}

	cmd := &cobra.Command{
		Use:          "sync-schema to-dev|to-prod",
		Short:        "Copy category and attribute definitions between environments",
		Args:         positional(true, "to-dev", "to-prod"),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := Plan{
				Operation:  "sync-schema-" + args[0],
				Source:     config.Production,
				Target:     config.Development,
				SchemaOnly: true,
			}
			if args[0] == "to-prod" {
				plan.Source, plan.Target = config.Development, config.Production
			}
			return runCopy(cmd.Context(), app, plan, common, opts)
		},
	}
	common.bind(cmd)
	opts.bind(cmd)
	return cmd
}
