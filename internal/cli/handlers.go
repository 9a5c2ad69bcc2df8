package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BartekS5/marketsync/internal/backup"
	"github.com/BartekS5/marketsync/internal/config"
	"github.com/BartekS5/marketsync/internal/transfer"
	"github.com/BartekS5/marketsync/pkg/logger"
	"github.com/BartekS5/marketsync/pkg/models"
	"github.com/google/uuid"
)

// Plan describes one copy binary: which side feeds which, and whether the
// full catalog or only the schema collections move.
type Plan struct {
	Operation  string
	Source     config.Environment
	Target     config.Environment
	SchemaOnly bool
}

// Destructive reports whether the run overwrites production and therefore
// needs explicit confirmation.
func (p Plan) Destructive() bool {
	return p.Target == config.Production
}

func runCopy(ctx context.Context, app *App, plan Plan, common *CommonOptions, opts *CopyOptions) error {
	defer logger.Close()

	cfg, catalog, err := common.prepare(app)
	if err != nil {
		return err
	}

	srcEP, err := cfg.Endpoint(plan.Source)
	if err != nil {
		return err
	}
	dstEP, err := cfg.Endpoint(plan.Target)
	if err != nil {
		return err
	}
	if srcEP.SameDatabase(dstEP) {
		return fmt.Errorf("%w (%s)", ErrSameStore, srcEP.Database)
	}

	strategy, err := transfer.ParseStrategy(opts.Strategy)
	if err != nil {
		return err
	}

	collections := catalog.Collections
	if plan.SchemaOnly {
		collections = catalog.Schema
	}

	entry := models.AuditEntry{
		RunID:       uuid.NewString(),
		Operation:   plan.Operation,
		Source:      plan.Source.Label(),
		Target:      plan.Target.Label(),
		Collections: collections,
		Operator:    os.Getenv("USER"),
		StartedAt:   app.Now().UTC(),
	}

	if plan.Destructive() && !opts.DryRun {
		method, err := confirmOverwrite(app.Stdin, app.Stdout, opts.Confirm, srcEP, dstEP, collections)
		if errors.Is(err, ErrDeclined) {
			fmt.Fprintln(app.Stdout, "Aborted. Nothing was changed.")
			entry.Confirmation = models.ConfirmPrompt
			entry.Outcome = models.OutcomeDeclined
			recordAudit(ctx, app, cfg, entry)
			return nil
		}
		if err != nil {
			return err
		}
		entry.Confirmation = method
	}

	source, closeSource, err := app.Connect(ctx, srcEP)
	if err != nil {
		return err
	}
	defer closeSource()

	target, closeTarget, err := app.Connect(ctx, dstEP)
	if err != nil {
		return err
	}
	defer closeTarget()

	copier := transfer.NewCopier(source, target, transfer.Options{
		Collections: collections,
		BatchSize:   cfg.BatchSize,
		Strategy:    strategy,
		DryRun:      opts.DryRun,
		RunID:       entry.RunID,
	})
	summary, runErr := copier.Run(ctx)
	if summary != nil {
		transfer.Report(app.Stdout, summary)
	}

	if !opts.DryRun {
		entry.FinishedAt = app.Now().UTC()
		switch {
		case runErr != nil:
			entry.Outcome = models.OutcomeFailed
			entry.Error = runErr.Error()
		default:
			entry.Outcome = summary.Outcome()
		}
		if summary != nil {
			entry.Documents = summary.Inserted()
		}
		recordAudit(ctx, app, cfg, entry)
	}

	if runErr != nil {
		return runErr
	}
	if summary.Outcome() == models.OutcomePartial {
		logger.Warnf("Some collections were not fully copied, see the summary above")
	}
	return nil
}

// recordAudit never fails the run; a lost audit entry is logged instead.
func recordAudit(ctx context.Context, app *App, cfg *config.Config, entry models.AuditEntry) {
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = app.Now().UTC()
	}
	recorder, release := app.NewRecorder(ctx, cfg)
	defer release()
	if err := recorder.Record(ctx, entry); err != nil {
		logger.Warnf("Could not write audit entry for run %s: %v", entry.RunID, err)
	}
}

func runBackup(ctx context.Context, app *App, env config.Environment, common *CommonOptions, opts *BackupOptions) error {
	defer logger.Close()

	cfg, catalog, err := common.prepare(app)
	if err != nil {
		return err
	}

	ep, err := cfg.Endpoint(env)
	if err != nil {
		return err
	}

	baseDir := opts.OutputDir
	if baseDir == "" {
		baseDir = cfg.BackupDir
	}

	source, closeSource, err := app.Connect(ctx, ep)
	if err != nil {
		return err
	}
	defer closeSource()

	dumper := backup.NewDumper(source, backup.Options{
		Collections: catalog.Collections,
		BaseDir:     baseDir,
		Environment: string(env),
		Database:    env.Label(),
		BatchSize:   cfg.BatchSize,
		Now:         app.Now,
	})
	result, err := dumper.Run(ctx)
	if result != nil {
		backup.Report(app.Stdout, result)
	}
	if err != nil {
		return err
	}
	if n := result.Failed(); n > 0 {
		logger.Warnf("%d collections could not be backed up, see the summary above", n)
	}
	return nil
}
