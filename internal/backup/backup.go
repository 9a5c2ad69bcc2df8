// Package backup dumps collections to pretty-printed JSON files, one file
// per collection, in a fresh directory per run.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/BartekS5/marketsync/internal/store"
	"github.com/BartekS5/marketsync/pkg/logger"
	"github.com/BartekS5/marketsync/pkg/models"
	"github.com/BartekS5/marketsync/pkg/utils"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

const MetadataFile = "_metadata.json"

type Status string

const (
	StatusWritten       Status = "written"
	StatusSkippedAbsent Status = "skipped_absent"
	StatusSkippedEmpty  Status = "skipped_empty"
	StatusFailed        Status = "failed"
)

type Options struct {
	Collections []string
	BaseDir     string
	// Environment prefixes the run directory, e.g. "dev".
	Environment string
	// Database is the label recorded in the metadata, e.g. "development".
	Database  string
	BatchSize int
	RunID     string
	Now       func() time.Time
}

type CollectionResult struct {
	Name      string
	Status    Status
	Documents int64
	File      string
	Err       error
}

type Result struct {
	Dir      string
	Metadata models.BackupMetadata
	Results  []CollectionResult
}

// Failed reports how many collections could not be written.
func (r *Result) Failed() int {
	n := 0
	for _, c := range r.Results {
		if c.Status == StatusFailed {
			n++
		}
	}
	return n
}

type Dumper struct {
	Source  store.Store
	Options Options
}

func NewDumper(source store.Store, opts Options) *Dumper {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Dumper{Source: source, Options: opts}
}

// Run writes the backup. Errors on a single collection are recorded and the
// remaining collections are still written; the returned error covers the
// run directory and the metadata file.
func (d *Dumper) Run(ctx context.Context) (*Result, error) {
	if d.Options.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", d.Options.BatchSize)
	}

	started := d.Options.Now()
	if err := os.MkdirAll(d.Options.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup base directory '%s': %w", d.Options.BaseDir, err)
	}
	// an earlier run in the same second owns the directory
	dir := filepath.Join(d.Options.BaseDir, utils.RunDirName(d.Options.Environment, started))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory '%s': %w", dir, err)
	}
	logger.Infof("Backing up %d collections from %s into %s", len(d.Options.Collections), d.Source.Label(), dir)

	result := &Result{
		Dir: dir,
		Metadata: models.BackupMetadata{
			RunID:       d.Options.RunID,
			Database:    d.Options.Database,
			Timestamp:   started.UTC().Format(time.RFC3339),
			Collections: append([]string(nil), d.Options.Collections...),
			Counts:      make(map[string]int64),
		},
	}

	for _, name := range d.Options.Collections {
		res := d.dumpCollection(ctx, dir, name)
		if res.Err != nil {
			logger.Errorf("Error backing up %s: %v", name, res.Err)
		}
		if res.Status == StatusWritten {
			result.Metadata.TotalDocuments += res.Documents
			result.Metadata.Counts[name] = res.Documents
		}
		result.Results = append(result.Results, res)
	}

	if err := writeMetadata(filepath.Join(dir, MetadataFile), result.Metadata); err != nil {
		return result, err
	}
	logger.Infof("Backup finished: %d documents in %s", result.Metadata.TotalDocuments, dir)
	return result, ctx.Err()
}

func (d *Dumper) dumpCollection(ctx context.Context, dir, name string) CollectionResult {
	res := CollectionResult{Name: name}

	exists, err := d.Source.Exists(ctx, name)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if !exists {
		logger.Infof("Skipping %s: not present in %s", name, d.Source.Label())
		res.Status = StatusSkippedAbsent
		return res
	}

	count, err := d.Source.Count(ctx, name)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if count == 0 {
		logger.Infof("Skipping %s: empty in %s", name, d.Source.Label())
		res.Status = StatusSkippedEmpty
		return res
	}

	path := filepath.Join(dir, name+".json")
	n, err := d.writeCollection(ctx, path, name)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warnf("Could not remove partial file %s: %v", path, rmErr)
		}
		res.Status, res.Err = StatusFailed, err
		return res
	}

	logger.Infof("Backed up %s: %d documents", name, n)
	res.Status, res.Documents, res.File = StatusWritten, n, path
	return res
}

// writeCollection streams the collection into path as a JSON array of
// canonical Extended JSON documents indented by two spaces. Canonical mode
// keeps every BSON type, so the file decodes back to the same bytes.
func (d *Dumper) writeCollection(ctx context.Context, path, name string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	var n int64
	var buf bytes.Buffer

	if _, err := w.WriteString("["); err != nil {
		return n, err
	}
	err = d.Source.Scan(ctx, name, d.Options.BatchSize, func(batch []bson.Raw) error {
		for _, doc := range batch {
			ext, err := bson.MarshalExtJSON(doc, true, false)
			if err != nil {
				return fmt.Errorf("encode document %d: %w", n, err)
			}
			buf.Reset()
			if err := json.Indent(&buf, ext, "  ", "  "); err != nil {
				return fmt.Errorf("indent document %d: %w", n, err)
			}
			sep := ",\n  "
			if n == 0 {
				sep = "\n  "
			}
			if _, err := w.WriteString(sep); err != nil {
				return err
			}
			if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	closing := "\n]\n"
	if n == 0 {
		closing = "]\n"
	}
	if _, err := w.WriteString(closing); err != nil {
		return n, err
	}
	if err := w.Flush(); err != nil {
		return n, err
	}
	return n, f.Close()
}

func writeMetadata(path string, meta models.BackupMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write backup metadata '%s': %w", path, err)
	}
	return nil
}

// Report prints the per-collection outcome of a backup run.
func Report(w io.Writer, r *Result) {
	fmt.Fprintf(w, "\nBackup summary (%s, run %s)\n", r.Metadata.Database, r.Metadata.RunID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range r.Results {
		var detail string
		switch c.Status {
		case StatusWritten:
			detail = fmt.Sprintf("%d documents -> %s", c.Documents, filepath.Base(c.File))
		case StatusSkippedAbsent:
			detail = "not present"
		case StatusSkippedEmpty:
			detail = "empty"
		case StatusFailed:
			detail = fmt.Sprintf("error: %v", c.Err)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Status, detail)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal documents: %d\nDirectory: %s\n", r.Metadata.TotalDocuments, r.Dir)
}
