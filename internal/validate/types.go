// Package validate implements the validation pipeline: a registry of named
// validator plugins, an orchestrator that sequences discovery, reading,
// metadata extraction, and per-plugin validation, and the aggregation of
// plugin findings into one result.
package validate

import (
	"context"
	"fmt"

	"github.com/starford/saga/internal/metadata"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one validation finding. Findings are data, never errors: a
// failing document produces issues, not a failed run.
type Issue struct {
	// Code is namespaced as <validator>:<RULECODE>.
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

// Result holds one plugin's findings for a run.
type Result struct {
	Validator string  `json:"validator"`
	Errors    []Issue `json:"errors"`
	Warnings  []Issue `json:"warnings"`
	Info      []Issue `json:"info"`
}

// NewResult creates an empty result for the named validator.
func NewResult(validator string) *Result {
	return &Result{Validator: validator}
}

// Code namespaces a rule code with the validator name.
func (r *Result) Code(rule string) string {
	return fmt.Sprintf("%s:%s", r.Validator, rule)
}

// AddError appends an error finding.
func (r *Result) AddError(i Issue) {
	i.Severity = SeverityError
	r.Errors = append(r.Errors, i)
}

// AddWarning appends a warning finding.
func (r *Result) AddWarning(i Issue) {
	i.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, i)
}

// AddInfo appends an informational finding.
func (r *Result) AddInfo(i Issue) {
	i.Severity = SeverityInfo
	r.Info = append(r.Info, i)
}

// ValidationResult is the aggregate outcome of one run.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Info     []Issue `json:"info"`
}

// File is one processed document handed to plugins.
type File struct {
	// Path is the absolute file path.
	Path string `json:"path"`
	// Rel is the vault-relative path, slash-separated. List position in a
	// run's file slice defines narrative order for order-sensitive checks.
	Rel string `json:"rel"`
	// Content is present only under the whole-file read strategy.
	Content string `json:"-"`
	HasBody bool   `json:"has_body"`
	// Meta is the extracted metadata, including plugin-contributed values.
	Meta *metadata.Metadata `json:"metadata"`
}

// Plugin is a named validator. Per-run state must be rebuilt at the start of
// every Validate call; concurrent overlapping Validate calls on one instance
// are unsupported.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context) error
	Validate(ctx context.Context, files []*File) (*Result, error)
	Destroy(ctx context.Context) error
}

// ExtractorProvider is implemented by plugins that contribute metadata
// extractors to the shared extraction pass.
type ExtractorProvider interface {
	MetadataExtractors() map[string]metadata.Extractor
}
