// Package transfer replaces whole collections in a target database with the
// contents of the same collections in a source database.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/marketsync/internal/store"
	"github.com/BartekS5/marketsync/pkg/logger"
	"github.com/BartekS5/marketsync/pkg/models"
	"github.com/BartekS5/marketsync/pkg/utils"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Strategy selects how a target collection is replaced.
type Strategy string

const (
	// StrategyDirect deletes the target documents and inserts the source
	// documents in place. The target is empty between the two steps.
	StrategyDirect Strategy = "direct"
	// StrategyStaging fills a temporary collection and renames it over the
	// target once every batch has been written.
	StrategyStaging Strategy = "staging"
)

var ErrUnknownStrategy = errors.New("unknown replace strategy")

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDirect, StrategyStaging:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w %q (use %q or %q)", ErrUnknownStrategy, s, StrategyDirect, StrategyStaging)
	}
}

// maxRecordedFailures bounds how many rejected documents are kept per
// collection; the total is always counted in Rejected.
const maxRecordedFailures = 50

type Status string

const (
	StatusCopied        Status = "copied"
	StatusPartial       Status = "partial"
	StatusSkippedAbsent Status = "skipped_absent"
	StatusSkippedEmpty  Status = "skipped_empty"
	StatusFailed        Status = "failed"
	StatusDryRun        Status = "would_copy"
)

// CollectionResult is what the copier intended and believes it did for one
// collection.
type CollectionResult struct {
	Name        string
	Status      Status
	SourceCount int64
	Deleted     int64
	Inserted    int64
	Rejected    int64
	Failures    []store.DocFailure
	Err         error
	Duration    time.Duration
}

// Summary covers one run over the whole collection list.
type Summary struct {
	RunID    string
	Source   string
	Target   string
	Strategy Strategy
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Results  []CollectionResult
	// Final holds the verified target counts of collections with at least
	// one document, read back after the loop.
	Final        map[string]int64
	VerifyErrors map[string]error
}

// Inserted is the total number of documents written to the target.
func (s *Summary) Inserted() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.Inserted
	}
	return n
}

// Outcome classifies the run for the audit log.
func (s *Summary) Outcome() string {
	for _, r := range s.Results {
		if r.Status == StatusFailed || r.Status == StatusPartial {
			return models.OutcomePartial
		}
	}
	if len(s.VerifyErrors) > 0 {
		return models.OutcomePartial
	}
	return models.OutcomeCompleted
}

type Options struct {
	Collections []string
	BatchSize   int
	Strategy    Strategy
	DryRun      bool
	RunID       string
}

// Copier moves collections from Source to Target one at a time.
type Copier struct {
	Source  store.Store
	Target  store.Store
	Options Options
}

func NewCopier(source, target store.Store, opts Options) *Copier {
	if opts.Strategy == "" {
		opts.Strategy = StrategyDirect
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Copier{Source: source, Target: target, Options: opts}
}

// Run processes every collection in order. Failures are isolated to their
// collection and recorded in the summary; the returned error is reserved for
// invalid options and cancellation.
func (c *Copier) Run(ctx context.Context) (*Summary, error) {
	if c.Options.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", c.Options.BatchSize)
	}
	if _, err := ParseStrategy(string(c.Options.Strategy)); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:    c.Options.RunID,
		Source:   c.Source.Label(),
		Target:   c.Target.Label(),
		Strategy: c.Options.Strategy,
		DryRun:   c.Options.DryRun,
		Started:  time.Now(),
	}

	logger.Infof("Starting %s -> %s sync of %d collections. Strategy: %s, Batch Size: %d, DryRun: %v",
		summary.Source, summary.Target, len(c.Options.Collections), c.Options.Strategy, c.Options.BatchSize, c.Options.DryRun)

	for _, name := range c.Options.Collections {
		res := c.copyCollection(ctx, name)
		summary.Results = append(summary.Results, res)
		if res.Err != nil {
			logger.Errorf("Error processing %s: %v", name, res.Err)
		}
	}

	summary.Final, summary.VerifyErrors = c.verify(ctx)
	summary.Finished = time.Now()

	logger.Infof("Sync finished in %s. Documents written: %d", summary.Finished.Sub(summary.Started).Round(time.Millisecond), summary.Inserted())
	return summary, ctx.Err()
}

func (c *Copier) copyCollection(ctx context.Context, name string) (res CollectionResult) {
	start := time.Now()
	res = CollectionResult{Name: name}
	defer func() { res.Duration = time.Since(start) }()

	exists, err := c.Source.Exists(ctx, name)
	if err != nil {
		return fail(res, err)
	}
	if !exists {
		logger.Infof("Skipping %s: not present in %s", name, c.Source.Label())
		res.Status = StatusSkippedAbsent
		return res
	}

	count, err := c.Source.Count(ctx, name)
	if err != nil {
		return fail(res, err)
	}
	res.SourceCount = count
	if count == 0 {
		logger.Infof("Skipping %s: empty in %s", name, c.Source.Label())
		res.Status = StatusSkippedEmpty
		return res
	}

	if c.Options.DryRun {
		logger.Infof("[DRY RUN] Would replace %s in %s with %d documents", name, c.Target.Label(), count)
		res.Status = StatusDryRun
		return res
	}

	logger.Infof("Copying %s: %d documents", name, count)
	switch c.Options.Strategy {
	case StrategyStaging:
		err = c.replaceStaging(ctx, name, &res)
	default:
		err = c.replaceDirect(ctx, name, &res)
	}
	if err != nil {
		return fail(res, err)
	}

	res.Status = StatusCopied
	if res.Rejected > 0 {
		res.Status = StatusPartial
	}

	rate := 0.0
	if d := time.Since(start).Seconds(); d > 0 {
		rate = float64(res.Inserted) / d
	}
	logger.Infof("Copied %s: %d inserted, %d rejected, %d replaced. Rate: %.2f docs/sec", name, res.Inserted, res.Rejected, res.Deleted, rate)
	return res
}

func (c *Copier) replaceDirect(ctx context.Context, name string, res *CollectionResult) error {
	deleted, err := c.Target.DeleteAll(ctx, name)
	if err != nil {
		return err
	}
	res.Deleted = deleted

	return c.stream(ctx, name, name, res)
}

func (c *Copier) replaceStaging(ctx context.Context, name string, res *CollectionResult) error {
	staging := utils.StagingName(name, c.Options.RunID)

	// leftovers from an interrupted run with the same id
	if err := c.Target.Drop(ctx, staging); err != nil {
		return err
	}

	// the target is untouched on every abort path, so nothing counts as
	// written
	abort := func(err error) error {
		c.dropStaging(staging)
		res.Inserted = 0
		return err
	}

	if err := c.Target.CreateLike(ctx, staging, name); err != nil {
		return abort(err)
	}
	if err := c.stream(ctx, name, staging, res); err != nil {
		return abort(err)
	}
	if res.Inserted == 0 {
		return abort(fmt.Errorf("no documents accepted into %s, target left unchanged", staging))
	}

	previous, err := c.Target.Count(ctx, name)
	if err != nil {
		return abort(err)
	}
	if err := c.Target.Rename(ctx, staging, name); err != nil {
		return abort(err)
	}
	res.Deleted = previous
	return nil
}

// dropStaging runs with its own context so cleanup still happens after the
// run context is cancelled.
func (c *Copier) dropStaging(staging string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Target.Drop(ctx, staging); err != nil {
		logger.Warnf("Could not drop staging collection %s: %v", staging, err)
	}
}

// stream reads source collection name batch by batch and inserts each batch
// into the target collection dest.
func (c *Copier) stream(ctx context.Context, name, dest string, res *CollectionResult) error {
	offset := 0
	return c.Source.Scan(ctx, name, c.Options.BatchSize, func(batch []bson.Raw) error {
		ir, err := c.Target.InsertUnordered(ctx, dest, batch)
		res.Inserted += int64(ir.Inserted)
		for _, f := range ir.Failures {
			res.Rejected++
			f.Index += offset
			logger.Errorf("%s: document %d rejected: %s", name, f.Index, f.Message)
			if len(res.Failures) < maxRecordedFailures {
				res.Failures = append(res.Failures, f)
			}
		}
		if err != nil {
			return err
		}
		offset += len(batch)
		logger.Debugf("%s: batch done. Total inserted: %d", name, res.Inserted)
		return nil
	})
}

// verify re-reads the target counts independently of what the loop
// recorded.
func (c *Copier) verify(ctx context.Context) (map[string]int64, map[string]error) {
	final := make(map[string]int64)
	errs := make(map[string]error)
	for _, name := range c.Options.Collections {
		n, err := c.Target.Count(ctx, name)
		if err != nil {
			logger.Errorf("Error verifying %s: %v", name, err)
			errs[name] = err
			continue
		}
		if n > 0 {
			final[name] = n
		}
	}
	return final, errs
}

func fail(res CollectionResult, err error) CollectionResult {
	res.Status = StatusFailed
	res.Err = err
	return res
}
