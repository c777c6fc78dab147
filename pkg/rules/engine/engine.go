package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"mercator-hq/tablint/pkg/rules/compiler"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Stats summarises one evaluation run.
type Stats struct {
	Records         int           `json:"records"`
	Evaluations     int           `json:"evaluations"`
	FieldViolations int           `json:"field_violations"`
	GroupViolations int           `json:"group_violations"`
	TypeMismatches  int           `json:"type_mismatches"`
	Duration        time.Duration `json:"duration"`
}

// Engine evaluates record streams against a compiled plan. An Engine holds
// no run state and may run any number of times.
type Engine struct {
	plan   *compiler.Plan
	fields []string
	config *Config
	logger *slog.Logger
}

// New creates an engine for plan. A nil config uses DefaultConfig; a nil
// logger uses slog.Default.
func New(plan *compiler.Plan, config *Config, logger *slog.Logger) (*Engine, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", ErrInvalidConfig)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		plan:   plan,
		fields: plan.Fields(),
		config: config,
		logger: logger.With("component", "engine"),
	}, nil
}

// Plan returns the compiled plan the engine evaluates.
func (e *Engine) Plan() *compiler.Plan {
	return e.plan
}

// Run consumes it once, in order, and returns the populated failure sets.
// Cancellation is checked between records. On error no state is returned.
func (e *Engine) Run(ctx context.Context, it Iterator) (*compiler.State, Stats, error) {
	start := time.Now()
	ev := e.NewEvaluator()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, ev.stats, err
		}
		if err := ev.Evaluate(it.Record()); err != nil {
			return nil, ev.stats, err
		}
	}
	if err := it.Err(); err != nil {
		return nil, ev.stats, rulesErrors.NewDataAccessError("record source", "iterate", err)
	}

	ev.stats.FieldViolations = ev.state.FieldViolations()
	ev.stats.GroupViolations = ev.state.GroupViolations()
	ev.stats.Duration = time.Since(start)

	e.logger.Debug("evaluation finished",
		"records", ev.stats.Records,
		"field_violations", ev.stats.FieldViolations,
		"group_violations", ev.stats.GroupViolations,
		"type_mismatches", ev.stats.TypeMismatches,
		"duration", ev.stats.Duration,
	)

	return ev.state, ev.stats, nil
}

// Evaluator applies a plan to records one at a time, accumulating failures
// into its own State.
type Evaluator struct {
	engine     *Engine
	state      *compiler.State
	stats      Stats
	mismatched []bool
}

// NewEvaluator returns an evaluator with empty failure sets.
func (e *Engine) NewEvaluator() *Evaluator {
	return &Evaluator{
		engine:     e,
		state:      e.plan.NewState(),
		mismatched: make([]bool, len(e.plan.Bindings)),
	}
}

// State returns the evaluator's accumulators.
func (ev *Evaluator) State() *compiler.State {
	return ev.state
}

// Stats returns counters for the records evaluated so far.
func (ev *Evaluator) Stats() Stats {
	s := ev.stats
	s.FieldViolations = ev.state.FieldViolations()
	s.GroupViolations = ev.state.GroupViolations()
	return s
}

// Evaluate applies every field binding to rec, then every group. A field
// missing from rec is skipped for that field's bindings. Group verdicts read
// the member failure sets, so they see this record's field outcomes.
func (ev *Evaluator) Evaluate(rec Record) error {
	if !comparableID(rec.ID) {
		return rulesErrors.NewDataAccessError("record source", "read identifier",
			fmt.Errorf("record identifier %v (%T) is not a comparable value", rec.ID, rec.ID))
	}

	plan := ev.engine.plan
	ev.stats.Records++

	for _, field := range ev.engine.fields {
		value, ok := rec.Values[field]
		if !ok {
			continue
		}
		for _, bi := range plan.BindingsFor(field) {
			if err := ev.apply(plan.Bindings[bi], rec.ID, value); err != nil {
				return err
			}
		}
	}

	for _, group := range plan.Groups {
		if ev.groupFailed(group, rec.ID) {
			ev.state.AddGroupFailure(group.Index, rec.ID)
		}
	}

	return nil
}

func (ev *Evaluator) apply(b *compiler.FieldBinding, id, value any) error {
	ev.stats.Evaluations++

	violated, err := b.Rule.Predicate.Evaluate(value)
	if err != nil {
		var tm *rulesErrors.TypeMismatchError
		if !errors.As(err, &tm) {
			return fmt.Errorf("field %q rule %q record %v: %w", b.Field, b.DisplayName, id, err)
		}
		tm.Field = b.Field
		tm.Rule = b.DisplayName
		return ev.mismatch(b, id, tm)
	}

	if violated {
		ev.state.AddFieldFailure(b.Index, id)
	}
	return nil
}

func (ev *Evaluator) mismatch(b *compiler.FieldBinding, id any, tm *rulesErrors.TypeMismatchError) error {
	ev.stats.TypeMismatches++

	if ev.engine.config.OnTypeMismatch == MismatchFail {
		return tm
	}

	logger := ev.engine.logger
	level := slog.LevelDebug
	if !ev.mismatched[b.Index] {
		ev.mismatched[b.Index] = true
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "skipping non-numeric value",
		"field", b.Field,
		"rule", b.DisplayName,
		"record_id", id,
		"value", tm.Value,
	)
	return nil
}

func (ev *Evaluator) groupFailed(group *compiler.GroupBinding, id any) bool {
	switch group.Combinator {
	case compiler.CombinatorAny:
		for _, m := range group.Members {
			if ev.state.FieldFailed(m, id) {
				return true
			}
		}
		return false
	default:
		for _, m := range group.Members {
			if !ev.state.FieldFailed(m, id) {
				return false
			}
		}
		return true
	}
}

func comparableID(id any) bool {
	switch id.(type) {
	case nil:
		return false
	case int64, int, string, float64, int32:
		return true
	}
	return reflect.TypeOf(id).Comparable()
}
