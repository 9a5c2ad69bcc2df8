// Package cli builds the cobra commands behind the backup and sync
// binaries.
package cli

import (
	"fmt"
	"strings"

	"github.com/BartekS5/marketsync/internal/config"
	"github.com/BartekS5/marketsync/pkg/logger"
	"github.com/BartekS5/marketsync/pkg/models"
	"github.com/spf13/cobra"
)

// CommonOptions are the flags shared by every binary.
type CommonOptions struct {
	BatchSize   int
	CatalogFile string
	LogFile     string
	Verbose     bool
}

func (o *CommonOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.BatchSize, "batch-size", "b", 0, "Documents per read/write batch (default SYNC_BATCH_SIZE or 1000)")
	cmd.Flags().StringVar(&o.CatalogFile, "catalog", "", "Path to a YAML or JSON collection catalog (default CATALOG_FILE or built-in list)")
	cmd.Flags().StringVar(&o.LogFile, "log-file", "", "Also append log lines to this file (default LOG_FILE)")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Log every batch")
}

// prepare sets up logging and loads the configuration and catalog. Flags
// override their environment counterparts.
func (o *CommonOptions) prepare(app *App) (*config.Config, *models.Catalog, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	lvl := logger.INFO
	if o.Verbose {
		lvl = logger.DEBUG
	}
	if app.LogOutput != nil {
		logger.SetOutput(app.LogOutput)
		logger.SetLevel(lvl)
	} else {
		logFile := o.LogFile
		if logFile == "" {
			logFile = cfg.LogFile
		}
		if err := logger.InitLogger(logFile, lvl); err != nil {
			logger.Warnf("Could not open log file %s: %v", logFile, err)
		}
	}

	if o.BatchSize < 0 {
		return nil, nil, fmt.Errorf("--batch-size must be positive, got %d", o.BatchSize)
	}
	if o.BatchSize > 0 {
		cfg.BatchSize = o.BatchSize
	}

	catalogFile := o.CatalogFile
	if catalogFile == "" {
		catalogFile = cfg.CatalogFile
	}
	catalog, err := config.LoadCatalog(catalogFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, catalog, nil
}

// positional accepts at most one argument from allowed. With required set
// the argument must be present. Violations print usage before the error.
func positional(required bool, allowed ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		var err error
		switch {
		case len(args) > 1 || (len(args) == 1 && len(allowed) == 0):
			err = fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
		case len(args) == 0 && required:
			err = fmt.Errorf("missing argument, expected one of: %s", strings.Join(allowed, ", "))
		case len(args) == 1 && !contains(allowed, args[0]):
			err = fmt.Errorf("invalid argument %q, expected one of: %s", args[0], strings.Join(allowed, ", "))
		}
		if err != nil {
			_ = cmd.Usage()
		}
		return err
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
