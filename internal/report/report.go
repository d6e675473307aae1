// Package report collects per-task outcomes of a crawl batch into a run
// report that can be printed as a summary table and saved as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pttgrab/internal/assembler"
	"pttgrab/pkg/textutil"
)

// TaskResult is the final outcome of one task.
type TaskResult struct {
	Label    string          `json:"task"`
	Type     string          `json:"type"`
	Board    string          `json:"board"`
	State    string          `json:"state"`
	Articles int             `json:"articles"`
	Output   string          `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Stats    assembler.Stats `json:"stats"`
	Duration float64         `json:"duration_sec"`
}

// RunReport aggregates a whole batch under one run id.
type RunReport struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Tasks      []TaskResult `json:"tasks"`
}

// New starts a report for a fresh run.
func New() *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Tasks:     []TaskResult{},
	}
}

// Record adds one task outcome. A result carrying an error counts as
// failed, everything else as succeeded.
func (r *RunReport) Record(res TaskResult) {
	r.Tasks = append(r.Tasks, res)

	if res.Error != "" {
		r.Failed++
	} else {
		r.Succeeded++
	}
}

// Finish stamps the end of the run.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration reports how long the run took so far.
func (r *RunReport) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}

	return end.Sub(r.StartedAt)
}

// Save writes the report as indented JSON, creating parent directories as
// needed.
func (r *RunReport) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	return nil
}

// Summary renders the per-task outcomes as an aligned table.
func (r *RunReport) Summary() string {
	headers := []string{"TASK", "STATE", "ARTICLES", "FETCHED", "SKIPPED", "OUTPUT"}
	rows := make([][]string, 0, len(r.Tasks))

	for _, res := range r.Tasks {
		skipped := res.Stats.NotFound + res.Stats.Transient

		out := res.Output
		if res.Error != "" {
			out = textutil.TruncateWidth(res.Error, 40, "...")
		}

		rows = append(rows, []string{
			res.Label,
			res.State,
			fmt.Sprintf("%d", res.Articles),
			fmt.Sprintf("%d", res.Stats.Fetched),
			fmt.Sprintf("%d", skipped),
			out,
		})
	}

	return textutil.Table(headers, rows)
}
