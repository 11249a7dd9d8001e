package linkgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/saga/internal/metadata"
	"github.com/starford/saga/internal/parser"
	"github.com/starford/saga/internal/validate"
)

// doc builds a processed file with inline links, one link per target.
func doc(rel string, targets ...string) *validate.File {
	links := make([]parser.Link, len(targets))
	for i, tgt := range targets {
		links[i] = parser.Link{
			Text:     tgt,
			Target:   tgt,
			Location: parser.Location{Line: i + 1, Column: 3},
		}
	}
	return &validate.File{
		Path:    "/vault/" + rel,
		Rel:     rel,
		HasBody: true,
		Meta:    &metadata.Metadata{Links: links, BodyAvailable: true},
	}
}

func runValidator(t *testing.T, cfg Config, files ...*validate.File) *validate.Result {
	t.Helper()
	v := New(cfg)
	if err := v.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := v.Validate(context.Background(), files)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := v.Destroy(context.Background()); err != nil {
		t.Fatal(err)
	}
	return res
}

func codes(issues []validate.Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Code]++
	}
	return out
}

func TestValidate_CycleWithOrphan(t *testing.T) {
	// README -> B -> C -> README plus unreferenced D.
	res := runValidator(t, Config{CheckOrphans: true},
		doc("README.md", "B.md"),
		doc("B.md", "C.md"),
		doc("C.md", "README.md"),
		doc("D.md"),
	)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	orphans := 0
	for _, w := range res.Warnings {
		if w.Code == "links:ORPHANED" {
			orphans++
			if w.File != "D.md" {
				t.Errorf("orphan file = %q, want D.md", w.File)
			}
		}
	}
	if orphans != 1 {
		t.Errorf("orphan warnings = %d, want exactly 1", orphans)
	}
}

func TestValidate_BrokenLinkLocation(t *testing.T) {
	a := doc("A.md", "./missing.md")
	a.Meta.Links[0].Location = parser.Location{Line: 7, Column: 12}

	res := runValidator(t, Config{}, a)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly 1", res.Errors)
	}
	e := res.Errors[0]
	if e.Code != "links:BROKEN_LINK" {
		t.Errorf("code = %q", e.Code)
	}
	if !strings.Contains(e.Message, "missing.md") {
		t.Errorf("message %q should cite the target", e.Message)
	}
	if e.File != "A.md" || e.Line != 7 || e.Column != 12 {
		t.Errorf("location = %s:%d:%d", e.File, e.Line, e.Column)
	}
}

func TestValidate_RelativeResolution(t *testing.T) {
	// sub/a.md links up to root and sideways within sub/.
	res := runValidator(t, Config{},
		doc("sub/a.md", "../top.md", "peer.md"),
		doc("sub/peer.md"),
		doc("top.md"),
	)
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", res.Errors)
	}
}

func TestValidate_ExternalAndAnchorLinksSkipped(t *testing.T) {
	res := runValidator(t, Config{},
		doc("a.md", "https://example.com/missing", "mailto:x@y.z", "#section"),
	)
	if len(res.Errors) != 0 {
		t.Errorf("external/anchor links must be skipped: %+v", res.Errors)
	}
}

func TestValidate_AnchorSuffixStripped(t *testing.T) {
	res := runValidator(t, Config{},
		doc("a.md", "b.md#part-two"),
		doc("b.md"),
	)
	if len(res.Errors) != 0 {
		t.Errorf("anchor suffix should resolve to the file: %+v", res.Errors)
	}
}

func TestValidate_BidirectionalReportedOnce(t *testing.T) {
	files := []*validate.File{
		doc("a.md", "b.md"),
		doc("b.md", "a.md"),
		doc("c.md", "a.md"),
	}
	res := runValidator(t, Config{}, files...)
	if n := codes(res.Info)["links:BIDIRECTIONAL"]; n != 1 {
		t.Errorf("bidirectional info = %d, want exactly 1", n)
	}

	// Same pair, reversed file order: still exactly one report.
	reversed := []*validate.File{files[1], files[2], files[0]}
	res = runValidator(t, Config{}, reversed...)
	if n := codes(res.Info)["links:BIDIRECTIONAL"]; n != 1 {
		t.Errorf("bidirectional info after reorder = %d, want exactly 1", n)
	}
}

func TestValidate_OrphanCheckDisabled(t *testing.T) {
	res := runValidator(t, Config{CheckOrphans: false},
		doc("README.md"),
		doc("lonely.md"),
	)
	if len(res.Warnings) != 0 {
		t.Errorf("orphan check disabled, warnings = %+v", res.Warnings)
	}
}

func TestValidate_EntryPointNeverOrphaned(t *testing.T) {
	res := runValidator(t, Config{CheckOrphans: true, EntryPoints: []string{"start.md"}},
		doc("start.md"),
	)
	if len(res.Warnings) != 0 {
		t.Errorf("entry point flagged as orphan: %+v", res.Warnings)
	}
}

func TestValidate_StateRebuiltBetweenRuns(t *testing.T) {
	v := New(Config{})
	files := []*validate.File{doc("a.md", "gone.md")}
	for i := 0; i < 2; i++ {
		res, err := v.Validate(context.Background(), files)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Errors) != 1 {
			t.Fatalf("run %d: errors = %d, want 1 (state must not leak)", i, len(res.Errors))
		}
	}
}
