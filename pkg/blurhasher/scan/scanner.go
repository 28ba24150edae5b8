// Package scan backfills blurhashes for files that never received an event.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// DefaultBatchSize is the page size used when ScanOptions.BatchSize is zero.
const DefaultBatchSize = 100

// FileLister pages through file IDs in ascending order. afterID is exclusive;
// an empty afterID starts from the beginning.
type FileLister interface {
	ListFileIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// Processor runs the pipeline for one file.
type Processor interface {
	Process(ctx context.Context, fileID string, force bool) (*blurhasher.Result, error)
}

// Scanner walks every file and processes them one at a time.
type Scanner struct {
	lister    FileLister
	processor Processor
	files     blurhasher.FileService
	logger    *slog.Logger
}

// Option configures a Scanner
type Option func(*Scanner)

// WithFileService lets dry runs evaluate eligibility instead of only counting
func WithFileService(files blurhasher.FileService) Option {
	return func(s *Scanner) {
		s.files = files
	}
}

// WithLogger sets the scanner logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a new Scanner instance.
func New(lister FileLister, processor Processor, options ...Option) *Scanner {
	s := &Scanner{
		lister:    lister,
		processor: processor,
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// BatchSize controls how many IDs to list at once (default: 100)
	BatchSize int

	// Force recomputes hashes that already exist
	Force bool

	// DryRun reports what would be processed without fetching or writing
	DryRun bool

	// OnProgress is called after each batch (optional)
	OnProgress func(processed, found int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// TotalFound is the number of file IDs listed
	TotalFound int64

	// TotalHashed is the number of files that received a hash, or would have in a dry run
	TotalHashed int64

	// TotalSkipped is the number of files rejected by eligibility
	TotalSkipped int64

	// TotalFailed is the number of files whose pipeline run failed
	TotalFailed int64

	// FailedIDs contains the IDs of failed files
	FailedIDs []string
}

// Scan lists files page by page and runs each one through the processor.
// A failing file is recorded and scanning continues; a listing error stops
// the scan and returns the partial result.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if s.lister == nil {
		return result, errors.New("file lister is required")
	}
	if !opts.DryRun && s.processor == nil {
		return result, errors.New("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ids, err := s.lister.ListFileIDs(ctx, afterID, opts.BatchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list files: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		result.TotalFound += int64(len(ids))

		for _, id := range ids {
			if opts.DryRun {
				s.dryRun(ctx, id, opts.Force, result)
				continue
			}
			s.process(ctx, id, opts.Force, result)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalHashed+result.TotalSkipped+result.TotalFailed, result.TotalFound)
		}

		if len(ids) < opts.BatchSize {
			break
		}
		afterID = ids[len(ids)-1]
	}

	s.logger.Info("blurhash scan finished",
		"found", result.TotalFound,
		"hashed", result.TotalHashed,
		"skipped", result.TotalSkipped,
		"failed", result.TotalFailed,
		"dry_run", opts.DryRun)

	return result, nil
}

func (s *Scanner) process(ctx context.Context, id string, force bool, result *ScanResult) {
	res, err := s.processor.Process(ctx, id, force)
	switch {
	case err != nil:
		result.TotalFailed++
		result.FailedIDs = append(result.FailedIDs, id)
		s.logger.Error("failed to process file", "file_id", id, "err", err)
	case res != nil && res.Outcome == blurhasher.OutcomeSkipped:
		result.TotalSkipped++
	default:
		result.TotalHashed++
	}
}

func (s *Scanner) dryRun(ctx context.Context, id string, force bool, result *ScanResult) {
	if s.files == nil {
		s.logger.Info("[DRY-RUN] would process", "file_id", id)
		result.TotalHashed++
		return
	}

	file, err := s.files.ReadFile(ctx, id, blurhasher.EligibilityFields())
	if err != nil && !errors.Is(err, blurhasher.ErrFileNotFound) {
		result.TotalFailed++
		result.FailedIDs = append(result.FailedIDs, id)
		s.logger.Error("failed to read file", "file_id", id, "err", err)
		return
	}

	if !blurhasher.IsEligible(file, force) {
		result.TotalSkipped++
		s.logger.Debug("[DRY-RUN] would skip", "file_id", id)
		return
	}

	result.TotalHashed++
	s.logger.Info("[DRY-RUN] would process", "file_id", id, "type", file.Type)
}
