package validate

// Aggregate unions per-plugin findings into one result. It is a pure merge:
// no deduplication and no cross-plugin conflict resolution. Valid is true
// exactly when no plugin reported an error.
func Aggregate(results []*Result) ValidationResult {
	agg := ValidationResult{
		Errors:   []Issue{},
		Warnings: []Issue{},
		Info:     []Issue{},
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		agg.Errors = append(agg.Errors, r.Errors...)
		agg.Warnings = append(agg.Warnings, r.Warnings...)
		agg.Info = append(agg.Info, r.Info...)
	}
	agg.Valid = len(agg.Errors) == 0
	return agg
}
