package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/saga/internal/discovery"
	"github.com/starford/saga/internal/metadata"
	"github.com/starford/saga/internal/reader"
	"github.com/starford/saga/internal/vault"
)

// Request describes one validation run. Files, when set, is an explicit
// vault-relative file list and takes precedence over the glob patterns.
type Request struct {
	Files   []string
	Include []string
	Exclude []string
}

// RunInfo is the full outcome of one run.
type RunInfo struct {
	Result     ValidationResult
	Files      []*File
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner sequences one validation run: discovery, reading, metadata
// extraction, plugin initialization, per-plugin validation, aggregation,
// and plugin teardown, emitting lifecycle events throughout. Execution is
// strictly sequential; a plugin error aborts the remaining plugins but
// teardown always runs before the error is returned.
type Runner struct {
	registry *Registry
	fs       *vault.FS
	reader   *reader.Reader
	sink     EventSink
	logger   *slog.Logger
}

// NewRunner creates a Runner. A nil sink discards events; a nil logger uses
// the default slog logger.
func NewRunner(registry *Registry, fs *vault.FS, rd *reader.Reader, sink EventSink, logger *slog.Logger) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, fs: fs, reader: rd, sink: sink, logger: logger}
}

// Run executes one validation run and returns its outcome. The returned
// error is non-nil only for pipeline failures (I/O, extractor, or plugin
// errors); validation findings are reported through RunInfo.Result.
func (r *Runner) Run(ctx context.Context, req Request) (*RunInfo, error) {
	info := &RunInfo{StartedAt: time.Now()}
	r.sink.Publish(Event{Type: EventValidationStart})

	result, err := r.run(ctx, req, info)
	info.FinishedAt = time.Now()
	if err != nil {
		r.sink.Publish(Event{Type: EventValidationError, Data: map[string]interface{}{
			"error": err.Error(),
		}})
		return nil, err
	}

	info.Result = result
	r.sink.Publish(Event{Type: EventValidationComplete, Data: map[string]interface{}{
		"valid":    result.Valid,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
		"info":     len(result.Info),
	}})
	return info, nil
}

func (r *Runner) run(ctx context.Context, req Request, info *RunInfo) (ValidationResult, error) {
	var zero ValidationResult
	plugins := r.registry.All()

	// Initialize every plugin before any work; teardown is guaranteed from
	// here on, including on the error path.
	initialized := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		if err := p.Initialize(ctx); err != nil {
			r.destroy(ctx, initialized)
			return zero, fmt.Errorf("validate: initialize %s: %w", p.Name(), err)
		}
		initialized = append(initialized, p)
	}

	results, err := r.process(ctx, req, plugins, info)
	r.destroy(ctx, initialized)
	if err != nil {
		return zero, err
	}
	return Aggregate(results), nil
}

func (r *Runner) process(ctx context.Context, req Request, plugins []Plugin, info *RunInfo) ([]*Result, error) {
	files, err := r.processFiles(req)
	if err != nil {
		return nil, err
	}
	info.Files = files
	r.sink.Publish(Event{Type: EventFilesProcessed, Data: map[string]interface{}{
		"count": len(files),
	}})

	// Shared extraction pass: every plugin's extractors run once per file,
	// merged into that file's metadata. An extractor error aborts the run.
	extractors := make(map[string]metadata.Extractor)
	for _, p := range plugins {
		if ep, ok := p.(ExtractorProvider); ok {
			for name, fn := range ep.MetadataExtractors() {
				extractors[name] = fn
			}
		}
	}
	for _, f := range files {
		m, err := r.reader.ExtractMetadata(f.Rel, extractors)
		if err != nil {
			return nil, fmt.Errorf("validate: extract metadata: %w", err)
		}
		f.Meta = m
	}
	r.sink.Publish(Event{Type: EventMetadataExtracted, Data: map[string]interface{}{
		"count": len(files),
	}})

	var results []*Result
	for _, p := range plugins {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		r.sink.Publish(Event{Type: EventValidatorStart, Data: map[string]interface{}{
			"name": p.Name(),
		}})
		res, err := p.Validate(ctx, files)
		if err != nil {
			// One plugin failure aborts the remaining plugins for this run.
			return nil, fmt.Errorf("validate: %s: %w", p.Name(), err)
		}
		results = append(results, res)
		r.sink.Publish(Event{Type: EventValidatorComplete, Data: map[string]interface{}{
			"name":     p.Name(),
			"errors":   len(res.Errors),
			"warnings": len(res.Warnings),
			"info":     len(res.Info),
		}})
	}
	return results, nil
}

// processFiles resolves the request into read files. I/O failures propagate
// and abort the run; there is no partial-result recovery at this layer.
func (r *Runner) processFiles(req Request) ([]*File, error) {
	var out []*File

	add := func(abs, rel string) error {
		fd, err := r.reader.ReadFile(rel)
		if err != nil {
			return err
		}
		f := &File{Path: abs, Rel: rel, HasBody: fd.HasBody}
		if fd.HasBody {
			body, err := fd.Body()
			if err != nil {
				return err
			}
			f.Content = body
		}
		out = append(out, f)
		return nil
	}

	if len(req.Files) > 0 {
		seen := make(map[string]struct{}, len(req.Files))
		for _, rel := range req.Files {
			abs, err := r.fs.Abs(rel)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			if err := add(abs, rel); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	found, err := discovery.Discover(r.fs, discovery.Options{
		Include: req.Include,
		Exclude: req.Exclude,
	})
	if err != nil {
		return nil, err
	}
	for _, df := range found {
		if err := add(df.Path, df.Rel); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// destroy tears down plugins in registration order, logging failures rather
// than masking a validation error already in flight.
func (r *Runner) destroy(ctx context.Context, plugins []Plugin) {
	for _, p := range plugins {
		if err := p.Destroy(ctx); err != nil {
			r.logger.Warn("plugin teardown failed",
				slog.String("plugin", p.Name()),
				slog.String("error", err.Error()))
		}
	}
}
