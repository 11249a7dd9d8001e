package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/saga/internal/metadata"
	"github.com/starford/saga/internal/reader"
	"github.com/starford/saga/internal/testutil"
)

// extractorPlugin is a stub that also contributes a metadata extractor.
type extractorPlugin struct {
	stubPlugin
	extractors map[string]metadata.Extractor
}

func (p *extractorPlugin) MetadataExtractors() map[string]metadata.Extractor {
	return p.extractors
}

func newTestRunner(t *testing.T, files map[string]string, sink EventSink, plugins ...Plugin) *Runner {
	t.Helper()
	_, fs := testutil.TestVault(t, files)
	reg := NewRegistry()
	for _, p := range plugins {
		reg.Register(p)
	}
	return NewRunner(reg, fs, reader.New(fs, reader.Config{}), sink, nil)
}

func TestRun_LifecycleEventOrder(t *testing.T) {
	var events []string
	sink := SinkFunc(func(e Event) { events = append(events, e.Type) })

	r := newTestRunner(t, map[string]string{"a.md": "# A\n"}, sink,
		&stubPlugin{name: "one"},
		&stubPlugin{name: "two"},
	)
	info, err := r.Run(context.Background(), Request{Include: []string{"*.md"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !info.Result.Valid {
		t.Error("expected valid result")
	}

	want := []string{
		EventValidationStart,
		EventFilesProcessed,
		EventMetadataExtracted,
		EventValidatorStart,
		EventValidatorComplete,
		EventValidatorStart,
		EventValidatorComplete,
		EventValidationComplete,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestRun_PluginErrorAbortsButTearsDown(t *testing.T) {
	boom := errors.New("plugin exploded")
	var destroyedOne, destroyedTwo, ranTwo bool
	var events []string
	sink := SinkFunc(func(e Event) { events = append(events, e.Type) })

	r := newTestRunner(t, map[string]string{"a.md": "# A\n"}, sink,
		&stubPlugin{
			name:      "one",
			destroyed: &destroyedOne,
			validate: func(context.Context, []*File) (*Result, error) {
				return nil, boom
			},
		},
		&stubPlugin{
			name:      "two",
			destroyed: &destroyedTwo,
			validate: func(context.Context, []*File) (*Result, error) {
				ranTwo = true
				return NewResult("two"), nil
			},
		},
	)
	_, err := r.Run(context.Background(), Request{Include: []string{"*.md"}})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if ranTwo {
		t.Error("a plugin failure must abort the remaining plugins")
	}
	if !destroyedOne || !destroyedTwo {
		t.Error("teardown must run for every initialized plugin on the error path")
	}
	if events[len(events)-1] != EventValidationError {
		t.Errorf("last event = %q, want %q", events[len(events)-1], EventValidationError)
	}
}

func TestRun_InitErrorSkipsValidation(t *testing.T) {
	initErr := errors.New("bad init")
	var ran bool
	r := newTestRunner(t, map[string]string{"a.md": "# A\n"}, nil,
		&stubPlugin{name: "one", initErr: initErr},
		&stubPlugin{
			name: "two",
			validate: func(context.Context, []*File) (*Result, error) {
				ran = true
				return NewResult("two"), nil
			},
		},
	)
	if _, err := r.Run(context.Background(), Request{Include: []string{"*.md"}}); !errors.Is(err, initErr) {
		t.Fatalf("expected init error, got %v", err)
	}
	if ran {
		t.Error("validation must not run after an initialization failure")
	}
}

func TestRun_SharedExtractionPass(t *testing.T) {
	calls := 0
	p := &extractorPlugin{
		stubPlugin: stubPlugin{name: "chars"},
		extractors: map[string]metadata.Extractor{
			"chars": func(content string, _ metadata.Context) (interface{}, error) {
				calls++
				return len(content), nil
			},
		},
	}
	p.validate = func(_ context.Context, files []*File) (*Result, error) {
		res := NewResult("chars")
		for _, f := range files {
			if _, ok := f.Meta.Get("chars"); !ok {
				t.Errorf("file %s missing extractor value", f.Rel)
			}
		}
		return res, nil
	}

	r := newTestRunner(t, map[string]string{"a.md": "one\n", "b.md": "two\n"}, nil, p)
	if _, err := r.Run(context.Background(), Request{Include: []string{"*.md"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("extractor ran %d times, want once per file", calls)
	}
}

func TestRun_ExplicitFileListKeepsOrder(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"ch1.md": "# One\n",
		"ch2.md": "# Two\n",
	}, nil, &stubPlugin{name: "noop"})

	info, err := r.Run(context.Background(), Request{Files: []string{"ch2.md", "ch1.md", "ch2.md"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(info.Files) != 2 {
		t.Fatalf("len(files) = %d, want 2 (deduplicated)", len(info.Files))
	}
	if info.Files[0].Rel != "ch2.md" || info.Files[1].Rel != "ch1.md" {
		t.Errorf("order = [%s %s], want caller order", info.Files[0].Rel, info.Files[1].Rel)
	}
}

func TestRun_MissingFileAbortsRun(t *testing.T) {
	r := newTestRunner(t, map[string]string{"a.md": "x"}, nil, &stubPlugin{name: "noop"})
	if _, err := r.Run(context.Background(), Request{Files: []string{"missing.md"}}); err == nil {
		t.Fatal("expected I/O failure to abort the run")
	}
}
