package config

import (
	"strings"
	"testing"
)

// valid returns a pipeline that passes validation cleanly; tests mutate one
// aspect at a time.
func valid() Pipeline {
	return Pipeline{
		Job:    "test-run",
		Source: Source{Kind: "file", File: SourceFile{Path: "in.jsonl"}},
		Input:  Input{Kind: "tweets"},
		Output: Output{Kind: "csv", CSV: CSVOutput{Path: "out.csv"}},
	}
}

func severities(issues []Issue) (errs, warns int) {
	for _, iss := range issues {
		switch iss.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	return
}

func TestValidatePipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Pipeline)
		wantErrs  int
		wantWarns int
		wantPath  string
	}{
		{
			name:   "valid baseline",
			mutate: func(p *Pipeline) {},
		},
		{
			name:     "empty job",
			mutate:   func(p *Pipeline) { p.Job = "  " },
			wantErrs: 1,
			wantPath: "job",
		},
		{
			name:     "file source without path",
			mutate:   func(p *Pipeline) { p.Source.File.Path = "" },
			wantErrs: 1,
			wantPath: "source.file.path",
		},
		{
			name:     "unknown source kind is fatal",
			mutate:   func(p *Pipeline) { p.Source.Kind = "s3" },
			wantErrs: 1,
			wantPath: "source.kind",
		},
		{
			name: "http source without url",
			mutate: func(p *Pipeline) {
				p.Source = Source{Kind: "http"}
			},
			wantErrs: 1,
			wantPath: "source.http.url",
		},
		{
			name: "http source with url",
			mutate: func(p *Pipeline) {
				p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "https://archive.example/capture.jsonl.gz"}}
			},
		},
		{
			name:     "unknown input kind",
			mutate:   func(p *Pipeline) { p.Input.Kind = "polls" },
			wantErrs: 1,
			wantPath: "input.kind",
		},
		{
			name: "output column outside kind",
			mutate: func(p *Pipeline) {
				p.Input.OutputColumns = []string{"id", "no_such_column"}
			},
			wantErrs: 1,
			wantPath: "input.output_columns[1]",
		},
		{
			name: "output column declared as extra is fine",
			mutate: func(p *Pipeline) {
				p.Input.ExtraColumns = []string{"matching_rules"}
				p.Input.OutputColumns = []string{"matching_rules"}
			},
		},
		{
			name:     "unknown references mode",
			mutate:   func(p *Pipeline) { p.Convert.References = "inline" },
			wantErrs: 1,
			wantPath: "convert.references",
		},
		{
			name: "redundant text encoding warns",
			mutate: func(p *Pipeline) {
				p.Convert.Encode.All = true
				p.Convert.Encode.Text = true
			},
			wantWarns: 1,
			wantPath:  "convert.encode.text",
		},
		{
			name:     "unknown schema mode",
			mutate:   func(p *Pipeline) { p.Output.Schema = "dynamic" },
			wantErrs: 1,
			wantPath: "output.schema",
		},
		{
			name:     "unknown output kind",
			mutate:   func(p *Pipeline) { p.Output.Kind = "parquet" },
			wantErrs: 1,
			wantPath: "output.kind",
		},
		{
			name: "postgres without dsn and table",
			mutate: func(p *Pipeline) {
				p.Output.Kind = "postgres"
			},
			wantErrs: 2,
		},
		{
			name: "postgres with adaptive schema",
			mutate: func(p *Pipeline) {
				p.Output.Kind = "postgres"
				p.Output.Schema = "adaptive"
				p.Output.DB = DBConfig{DSN: "postgres://x", Table: "public.t"}
			},
			wantErrs: 1,
			wantPath: "output.schema",
		},
		{
			name: "negative runtime values",
			mutate: func(p *Pipeline) {
				p.Runtime.BatchSize = -1
				p.Runtime.Workers = -1
				p.Runtime.MaxSeenIDs = -1
			},
			wantErrs: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := valid()
			tc.mutate(&p)

			issues := ValidatePipeline(p)
			errs, warns := severities(issues)
			if errs != tc.wantErrs || warns != tc.wantWarns {
				t.Fatalf("got %d errors / %d warnings, want %d / %d: %v",
					errs, warns, tc.wantErrs, tc.wantWarns, issues)
			}
			if tc.wantPath != "" {
				found := false
				for _, iss := range issues {
					if iss.Path == tc.wantPath {
						found = true
					}
				}
				if !found {
					t.Errorf("no issue at path %q: %v", tc.wantPath, issues)
				}
			}
		})
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "output.kind", Message: "boom"}
	if got := iss.Error(); !strings.Contains(got, "output.kind") || !strings.Contains(got, "boom") {
		t.Errorf("Error() = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	var r RuntimeConfig
	if got := r.BatchSizeOrDefault(); got != DefaultBatchSize {
		t.Errorf("BatchSizeOrDefault() = %d, want %d", got, DefaultBatchSize)
	}
	if got := r.WorkersOrDefault(); got != DefaultWorkers {
		t.Errorf("WorkersOrDefault() = %d, want %d", got, DefaultWorkers)
	}
	r = RuntimeConfig{BatchSize: 7, Workers: 2}
	if r.BatchSizeOrDefault() != 7 || r.WorkersOrDefault() != 2 {
		t.Error("explicit runtime values not honored")
	}

	var d DBConfig
	if got := d.CopyBatchOrDefault(); got != DefaultCopyBatch {
		t.Errorf("CopyBatchOrDefault() = %d, want %d", got, DefaultCopyBatch)
	}

	var c Convert
	if !c.ProcessEntitiesEnabled() {
		t.Error("ProcessEntities should default to enabled")
	}
	off := false
	c.ProcessEntities = &off
	if c.ProcessEntitiesEnabled() {
		t.Error("explicit false for ProcessEntities ignored")
	}

	var e EncodeConfig
	if !e.ListsEnabled() {
		t.Error("Lists should default to enabled")
	}
	e.Lists = &off
	if e.ListsEnabled() {
		t.Error("explicit false for Lists ignored")
	}
}
