package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pttgrab/internal/assembler"
)

func TestRecord_CountsOutcomes(t *testing.T) {
	r := New()

	if r.RunID == "" {
		t.Fatal("report has no run id")
	}

	r.Record(TaskResult{Label: "latest:Gossiping", State: "done", Articles: 10})
	r.Record(TaskResult{Label: "by_index:NBA", State: "failed", Error: "invalid task"})
	r.Record(TaskResult{Label: "title_search:Stock", State: "done", Articles: 3})

	if r.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", r.Succeeded)
	}

	if r.Failed != 1 {
		t.Errorf("Failed = %d, want 1", r.Failed)
	}

	if len(r.Tasks) != 3 {
		t.Errorf("Tasks = %d entries, want 3", len(r.Tasks))
	}
}

func TestSave_WritesNestedJSON(t *testing.T) {
	r := New()
	r.Record(TaskResult{
		Label:    "latest:Gossiping",
		Type:     "latest",
		Board:    "Gossiping",
		State:    "done",
		Articles: 2,
		Output:   "out/gossiping.json",
		Stats:    assembler.Stats{Fetched: 2},
	})
	r.Finish()

	path := filepath.Join(t.TempDir(), "reports", "run.json")

	if err := r.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	var loaded RunReport
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if loaded.RunID != r.RunID {
		t.Errorf("RunID = %q, want %q", loaded.RunID, r.RunID)
	}

	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Stats.Fetched != 2 {
		t.Errorf("reloaded tasks = %+v", loaded.Tasks)
	}
}

func TestSummary_ListsEveryTask(t *testing.T) {
	r := New()
	r.Record(TaskResult{Label: "latest:Gossiping", State: "done", Articles: 10, Output: "out.json"})
	r.Record(TaskResult{Label: "by_index:NBA", State: "failed", Error: "article not found"})

	s := r.Summary()

	for _, want := range []string{"latest:Gossiping", "by_index:NBA", "done", "failed"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
