package api

import (
	"context"
	"fmt"

	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/index"
	"github.com/starford/saga/internal/validate"
)

// Service coordinates validation runs and run-history storage.
type Service struct {
	runner   *validate.Runner
	store    index.RunStore
	defaults validate.Request
}

// NewService creates an API service. defaults supplies the include/exclude
// patterns used when a request names neither patterns nor files.
func NewService(runner *validate.Runner, store index.RunStore, defaults validate.Request) *Service {
	return &Service{runner: runner, store: store, defaults: defaults}
}

// Validate executes one validation run and records it in the run history.
func (s *Service) Validate(ctx context.Context, req validate.Request) (*validate.RunInfo, int64, error) {
	if len(req.Files) == 0 && len(req.Include) == 0 {
		req = s.defaults
	}
	info, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	// Change detection: compare each file's checksum against the one stored
	// by the previous run. Files read header-only carry no content to hash
	// and never count as changed.
	prev, err := s.store.AllChecksums()
	if err != nil {
		return nil, 0, fmt.Errorf("api: load checksums: %w", err)
	}
	type fileSum struct{ rel, sum string }
	var sums []fileSum
	changed := 0
	for _, f := range info.Files {
		if !f.HasBody {
			continue
		}
		sum := checksum.Sum([]byte(f.Content))
		if prev[f.Rel] != sum {
			changed++
		}
		sums = append(sums, fileSum{rel: f.Rel, sum: sum})
	}

	runID, err := s.store.RecordRun(index.RunRecord{
		StartedAt:  info.StartedAt,
		FinishedAt: info.FinishedAt,
		Files:      len(info.Files),
		Changed:    changed,
		Valid:      info.Result.Valid,
		Issues:     issueRows(info.Result),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("api: record run: %w", err)
	}

	for _, cs := range sums {
		if err := s.store.UpsertFile(cs.rel, cs.sum); err != nil {
			return nil, 0, fmt.Errorf("api: upsert checksum: %w", err)
		}
	}
	return info, runID, nil
}

// Runs returns the most recent validation runs.
func (s *Service) Runs(_ context.Context, limit int) ([]index.RunRow, error) {
	return s.store.ListRuns(limit)
}

// RunIssues returns every finding stored for one run.
func (s *Service) RunIssues(_ context.Context, runID int64) ([]index.IssueRow, error) {
	return s.store.RunIssues(runID)
}

func issueRows(res validate.ValidationResult) []index.IssueRow {
	rows := make([]index.IssueRow, 0, len(res.Errors)+len(res.Warnings)+len(res.Info))
	for _, group := range [][]validate.Issue{res.Errors, res.Warnings, res.Info} {
		for _, i := range group {
			rows = append(rows, index.IssueRow{
				Code:     i.Code,
				Message:  i.Message,
				Severity: string(i.Severity),
				File:     i.File,
				Line:     i.Line,
				Column:   i.Column,
			})
		}
	}
	return rows
}
