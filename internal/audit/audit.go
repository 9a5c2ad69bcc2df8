// Package audit records destructive sync runs so that every overwrite of a
// database, and every declined one, leaves a trace.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BartekS5/marketsync/pkg/models"
)

type Recorder interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// FileRecorder appends one JSON document per line.
type FileRecorder struct {
	Path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{Path: path}
}

func (r *FileRecorder) Record(_ context.Context, entry models.AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(r.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, entry models.AuditEntry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
