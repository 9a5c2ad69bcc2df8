package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/BartekS5/marketsync/internal/audit"
	"github.com/BartekS5/marketsync/internal/config"
	"github.com/BartekS5/marketsync/internal/store"
	"github.com/BartekS5/marketsync/pkg/database"
	"github.com/BartekS5/marketsync/pkg/logger"
)

// Connector opens the store for one endpoint. The returned func closes it.
type Connector func(ctx context.Context, ep config.Endpoint) (store.Store, func(), error)

// App carries everything the commands touch outside their own flags, so the
// whole flow can run against in-memory stores.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	// LogOutput replaces the console log writers when set.
	LogOutput  io.Writer
	LoadConfig func() (*config.Config, error)
	Connect    Connector
	// NewRecorder builds the audit sinks for a run. The returned func
	// releases them.
	NewRecorder func(ctx context.Context, cfg *config.Config) (audit.Recorder, func())
	Now         func() time.Time
}

func DefaultApp() *App {
	return &App{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		LoadConfig:  config.LoadConfig,
		Connect:     connectMongo,
		NewRecorder: newRecorder,
		Now:         time.Now,
	}
}

func connectMongo(ctx context.Context, ep config.Endpoint) (store.Store, func(), error) {
	label := ep.Environment.Label()
	client, err := database.ConnectMongo(ctx, ep.URI, label)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { database.Disconnect(client, label) }
	return store.NewMongo(client.Database(ep.Database), label), closeFn, nil
}

// newRecorder always writes the JSON-lines file and adds the SQL Server
// table when AUDIT_SQL_CONNECTION_STRING is set and reachable.
func newRecorder(ctx context.Context, cfg *config.Config) (audit.Recorder, func()) {
	recorders := audit.Multi{audit.NewFileRecorder(cfg.AuditLogPath())}
	if cfg.AuditSQLConnString == "" {
		return recorders, func() {}
	}

	db, err := database.ConnectSQL(ctx, cfg.AuditSQLConnString)
	if err != nil {
		logger.Warnf("SQL audit log unavailable, using file only: %v", err)
		return recorders, func() {}
	}
	return append(recorders, audit.NewSQLRecorder(db)), func() { db.Close() }
}
