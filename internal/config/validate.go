// Package config provides configuration models and helpers for conversion runs.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"

	"tweetcsv/internal/catalog"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "output.kind",
// "input.output_columns[2]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	var p config.Pipeline
//	if err := json.NewDecoder(r).Decode(&p); err != nil { ... }
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateInput(p.Input)...)
	issues = append(issues, validateConvert(p.Convert)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "", "file":
		if s.Kind == "file" && strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a path (use \"-\" for stdin)",
			})
		}
	case "stdin":
		// No options.
	case "http":
		if strings.TrimSpace(s.HTTP.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  "http source requires a url",
			})
		}
	default:
		// Fatal: no source can be opened for an unknown kind.
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q", s.Kind),
		})
	}
	return issues
}

// validateInput validates the record kind and column declarations.
func validateInput(in Input) []Issue {
	var issues []Issue

	kind := catalog.Kind(in.Kind)
	cols, err := catalog.BuildColumns(kind, in.ExtraColumns)
	if err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.kind",
			Message:  err.Error(),
		})
		return issues
	}

	// Output columns must exist in the input column set; a column that can
	// never exist for the chosen kind is a configuration error.
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c] = struct{}{}
	}
	for i, oc := range in.OutputColumns {
		c := catalog.NormalizeColumnName(oc)
		if c == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("input.output_columns[%d]", i),
				Message:  "empty output column name",
			})
			continue
		}
		if _, ok := known[c]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("input.output_columns[%d]", i),
				Message:  fmt.Sprintf("column %q does not exist for kind %q; declare it in input.extra_columns first", c, in.Kind),
			})
		}
	}
	return issues
}

// validateConvert validates the transformation options.
func validateConvert(c Convert) []Issue {
	var issues []Issue

	switch c.References {
	case "", "ignore", "merge", "separate":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "convert.references",
			Message:  fmt.Sprintf("unknown reference-expansion mode %q (want ignore, merge, or separate)", c.References),
		})
	}

	if c.Encode.All && c.Encode.Text {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "convert.encode.text",
			Message:  "encode.text is redundant when encode.all is set",
		})
	}
	return issues
}

// validateOutput validates the sink selection and schema strategy.
func validateOutput(o Output) []Issue {
	var issues []Issue

	switch o.Schema {
	case "", "fixed", "adaptive":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.schema",
			Message:  fmt.Sprintf("unknown schema mode %q (want fixed or adaptive)", o.Schema),
		})
	}

	switch o.Kind {
	case "", "csv":
		// Path "" means stdout; nothing further to check.
	case "postgres":
		if strings.TrimSpace(o.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.db.dsn",
				Message:  "postgres sink requires a DSN",
			})
		}
		if strings.TrimSpace(o.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.db.table",
				Message:  "postgres sink requires a table name",
			})
		}
		if o.Schema == "adaptive" {
			// A table's column set cannot evolve mid-run; the header
			// contract must be fixed before the first COPY.
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.schema",
				Message:  "adaptive schema cannot be combined with the postgres sink",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  fmt.Sprintf("unknown output kind %q (want csv or postgres)", o.Kind),
		})
	}
	return issues
}

// validateRuntime validates chunking and concurrency settings.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.MaxSeenIDs < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.max_seen_ids",
			Message:  "max_seen_ids must not be negative",
		})
	}
	return issues
}
