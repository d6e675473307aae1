// Package runner drives a crawl batch: it walks the configured tasks in
// order through their lifecycle, isolates per-task failures so one bad
// task cannot sink the batch, and aborts everything only when the remote
// end rejects the session outright.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pttgrab/internal/assembler"
	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/locator"
	"pttgrab/internal/logger"
	"pttgrab/internal/report"
	"pttgrab/internal/sink"
	"pttgrab/internal/strategy"
)

// State tracks where a task is in its lifecycle.
type State int

const (
	StatePending State = iota
	StateResolving
	StateFetching
	StateFiltering
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolving:
		return "resolving"
	case StateFetching:
		return "fetching"
	case StateFiltering:
		return "filtering"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runner executes the tasks of one configuration over a single board
// gateway session.
type Runner struct {
	cfg  *config.Config
	gate board.Board
	loc  *locator.Locator
	asm  *assembler.Assembler
	log  *logger.Logger
}

// New wires a runner over a raw gateway. The gateway gets wrapped with the
// configured politeness delay and retry budget here, so every probe,
// search, and fetch downstream pays the delay exactly once.
func New(cfg *config.Config, raw board.Board, log *logger.Logger) *Runner {
	gate := board.NewThrottled(raw, cfg.Options.GetDelay(), cfg.Options.MaxRetries, log)

	return &Runner{
		cfg:  cfg,
		gate: gate,
		loc:  locator.New(gate, cfg.Options.SampleStep, log),
		asm:  assembler.New(gate, log),
		log:  log,
	}
}

// Run executes every task in order. Task-level failures are recorded and
// the batch moves on; authentication rejections and context cancellation
// abort the run with the error returned alongside the partial report.
func (r *Runner) Run(ctx context.Context) (*report.RunReport, error) {
	rep := report.New()

	r.log.Info(fmt.Sprintf("Starting run %s with %d tasks", rep.RunID, len(r.cfg.Tasks)))

	for i := range r.cfg.Tasks {
		res, err := r.runTask(ctx, r.cfg.Tasks[i], rep.RunID)
		rep.Record(res)

		if err != nil {
			rep.Finish()
			r.log.Error(fmt.Sprintf("Aborting run after task %s: %v", res.Label, err))

			return rep, err
		}
	}

	rep.Finish()
	r.log.Info(fmt.Sprintf("Run %s finished: %d succeeded, %d failed in %s",
		rep.RunID, rep.Succeeded, rep.Failed, rep.Duration().Round(time.Millisecond)))

	return rep, nil
}

// runTask walks one task through its lifecycle. The returned error is
// non-nil only for batch-fatal conditions.
func (r *Runner) runTask(ctx context.Context, task config.TaskConfig, runID string) (report.TaskResult, error) {
	started := time.Now()

	res := report.TaskResult{
		Label:  task.Label(),
		Type:   task.Type,
		Board:  task.Board,
		Output: task.Output,
	}

	fail := func(state State, err error) report.TaskResult {
		res.State = StateFailed.String()
		res.Error = err.Error()
		res.Duration = time.Since(started).Seconds()

		r.log.Error(fmt.Sprintf("Task %s failed while %s: %v", res.Label, state, err))

		return res
	}

	r.transition(res.Label, StatePending)

	if err := task.Validate(); err != nil {
		return fail(StatePending, err), nil
	}

	r.transition(res.Label, StateResolving)

	deps := strategy.Deps{
		Board:   r.gate,
		Locator: r.loc,
		Log:     r.log,
		MaxScan: r.cfg.Options.MaxScan,
	}

	strat, err := strategy.ForTask(task, deps)
	if err != nil {
		return fail(StateResolving, err), nil
	}

	cand, err := strat.Resolve(ctx)
	if err != nil {
		if fatal(err) {
			return fail(StateResolving, err), err
		}

		return fail(StateResolving, err), nil
	}

	r.transition(res.Label, StateFetching)

	articles, stats, err := r.asm.Assemble(ctx, task.Board, cand)
	res.Stats = stats

	if err != nil {
		if fatal(err) {
			return fail(StateFetching, err), err
		}

		return fail(StateFetching, err), nil
	}

	r.transition(res.Label, StateFiltering)

	res.Articles = len(articles)

	r.transition(res.Label, StateWriting)

	out, err := sink.Open(ctx, task.Output, sink.Options{HTTPToken: r.cfg.Options.HTTPToken})
	if err != nil {
		return fail(StateWriting, err), nil
	}

	batch := &sink.Batch{
		Board:     task.Board,
		Task:      task.Label(),
		RunID:     runID,
		FetchedAt: time.Now(),
		Articles:  articles,
	}

	werr := out.Write(ctx, batch)
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}

	if werr != nil {
		return fail(StateWriting, werr), nil
	}

	res.State = StateDone.String()
	res.Duration = time.Since(started).Seconds()

	r.log.Info(fmt.Sprintf("Task %s done: %d articles -> %s", res.Label, res.Articles, task.Output))

	return res, nil
}

func (r *Runner) transition(label string, state State) {
	r.log.Debug("Task state change", "task", label, "state", state.String())
}

// fatal reports whether an error must abort the whole batch instead of
// just the current task.
func fatal(err error) bool {
	return errors.Is(err, board.ErrAuth) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
