package index_test

import (
	"testing"
	"time"

	"github.com/starford/saga/internal/index"
	"github.com/starford/saga/internal/testutil"
)

func TestRecordRunAndListRuns(t *testing.T) {
	db := testutil.TestDB(t)

	started := time.Now().Add(-2 * time.Second).UTC()
	id, err := db.RecordRun(index.RunRecord{
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Files:      3,
		Changed:    2,
		Valid:      false,
		Issues: []index.IssueRow{
			{Code: "links:BROKEN_LINK", Message: "missing.md not found", Severity: "error", File: "a.md", Line: 4, Column: 2},
			{Code: "links:ORPHANED", Message: "no path from an entry point", Severity: "warning", File: "b.md"},
			{Code: "links:BIDIRECTIONAL", Message: "a.md and b.md link to each other", Severity: "info"},
		},
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id == 0 {
		t.Fatal("RecordRun returned zero id")
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Files != 3 || r.Changed != 2 || r.Valid {
		t.Errorf("run row = %+v", r)
	}
	if r.Errors != 1 || r.Warnings != 1 || r.Info != 1 {
		t.Errorf("severity counts = %d/%d/%d, want 1/1/1", r.Errors, r.Warnings, r.Info)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := testutil.TestDB(t)

	now := time.Now().UTC()
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := db.RecordRun(index.RunRecord{
			StartedAt:  now,
			FinishedAt: now,
			Files:      i,
			Valid:      true,
		})
		if err != nil {
			t.Fatalf("RecordRun %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2 (limit)", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("order = %d, %d; want %d, %d", runs[0].ID, runs[1].ID, ids[2], ids[1])
	}
}

func TestRunIssues(t *testing.T) {
	db := testutil.TestDB(t)

	now := time.Now().UTC()
	issues := []index.IssueRow{
		{Code: "characters:INCONSISTENT_NAME", Message: `did you mean "Katherine"?`, Severity: "error", File: "ch2.md", Line: 12},
	}
	id, err := db.RecordRun(index.RunRecord{StartedAt: now, FinishedAt: now, Files: 2, Issues: issues})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := db.RunIssues(id)
	if err != nil {
		t.Fatalf("RunIssues: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d issues, want 1", len(got))
	}
	if got[0] != issues[0] {
		t.Errorf("issue = %+v, want %+v", got[0], issues[0])
	}

	// Unknown run id yields no rows, not an error.
	none, err := db.RunIssues(id + 99)
	if err != nil {
		t.Fatalf("RunIssues(unknown): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d issues for unknown run", len(none))
	}
}

func TestFileChecksums(t *testing.T) {
	db := testutil.TestDB(t)

	empty, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("checksums on a fresh database = %v, want none", empty)
	}

	if err := db.UpsertFile("ch1.md", "aaa"); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if err := db.UpsertFile("ch2.md", "bbb"); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if err := db.UpsertFile("ch1.md", "ccc"); err != nil {
		t.Fatalf("UpsertFile(update): %v", err)
	}

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	want := map[string]string{"ch1.md": "ccc", "ch2.md": "bbb"}
	if len(all) != len(want) {
		t.Fatalf("AllChecksums = %v, want %v", all, want)
	}
	for p, cs := range want {
		if all[p] != cs {
			t.Errorf("AllChecksums[%s] = %q, want %q", p, all[p], cs)
		}
	}
}
