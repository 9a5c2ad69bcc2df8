package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/BartekS5/marketsync/pkg/models"
)

const createTable = `
IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
	run_id        NVARCHAR(36)  NOT NULL,
	operation     NVARCHAR(64)  NOT NULL,
	source_env    NVARCHAR(32)  NOT NULL,
	target_env    NVARCHAR(32)  NOT NULL,
	collections   NVARCHAR(MAX) NOT NULL,
	confirmation  NVARCHAR(16)  NOT NULL,
	outcome       NVARCHAR(32)  NOT NULL,
	documents     BIGINT        NOT NULL,
	operator_name NVARCHAR(128) NULL,
	error_message NVARCHAR(MAX) NULL,
	started_at    DATETIME2     NOT NULL,
	finished_at   DATETIME2     NOT NULL
)`

// SQLRecorder writes entries into a SQL Server table, creating it on first
// use.
type SQLRecorder struct {
	DB    *sql.DB
	Table string

	once    sync.Once
	initErr error
}

func NewSQLRecorder(db *sql.DB) *SQLRecorder {
	return &SQLRecorder{DB: db, Table: "sync_audit"}
}

func (r *SQLRecorder) Record(ctx context.Context, e models.AuditEntry) error {
	r.once.Do(func() {
		if _, err := r.DB.ExecContext(ctx, fmt.Sprintf(createTable, r.Table)); err != nil {
			r.initErr = fmt.Errorf("create audit table %s: %w", r.Table, err)
		}
	})
	if r.initErr != nil {
		return r.initErr
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, operation, source_env, target_env, collections, confirmation, outcome, documents, operator_name, error_message, started_at, finished_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11, @p12)`, r.Table)

	_, err := r.DB.ExecContext(ctx, query,
		e.RunID,
		e.Operation,
		e.Source,
		e.Target,
		strings.Join(e.Collections, ","),
		e.Confirmation,
		e.Outcome,
		e.Documents,
		nullable(e.Operator),
		nullable(e.Error),
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
