package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tablint/pkg/config"
	"mercator-hq/tablint/pkg/history"
	"mercator-hq/tablint/pkg/rules/compiler"
	"mercator-hq/tablint/pkg/rules/document"
	"mercator-hq/tablint/pkg/rules/engine"
	"mercator-hq/tablint/pkg/rules/report"
	"mercator-hq/tablint/pkg/sink"
	"mercator-hq/tablint/pkg/source"
	"mercator-hq/tablint/pkg/telemetry/logging"
	"mercator-hq/tablint/pkg/telemetry/metrics"
	"mercator-hq/tablint/pkg/telemetry/tracing"
)

// Job describes one lint run. Empty fields fall back to the configuration.
type Job struct {
	// Name labels the job in batch output and logs.
	Name string `yaml:"name" json:"name,omitempty"`

	RulesPath  string `yaml:"rules" json:"rules"`
	SourceURI  string `yaml:"source" json:"source"`
	IDField    string `yaml:"id_field" json:"id_field,omitempty"`
	OutputDir  string `yaml:"output_dir" json:"output_dir,omitempty"`
	OutputFile string `yaml:"output_file" json:"output_file,omitempty"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string             `json:"run_id"`
	Job        Job                `json:"job"`
	Source     string             `json:"source"`
	IDField    string             `json:"id_field"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Stats      engine.Stats       `json:"stats"`
	Location   string             `json:"location"`
	Warnings   []compiler.Warning `json:"-"`
	Report     *report.Report     `json:"-"`
}

// HasViolations reports whether any field or group failed.
func (r *Result) HasViolations() bool {
	return r.Stats.FieldViolations > 0 || r.Stats.GroupViolations > 0
}

// SourceOpener opens a record source by URI.
type SourceOpener func(ctx context.Context, uri string) (source.Source, error)

// Runner executes lint jobs. It is safe for concurrent use; every run
// builds its own plan and state.
type Runner struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	history history.Store
	sink    sink.Sink
	s3Opts  []sink.S3Option
	open    SourceOpener
	now     func() time.Time
	newID   func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records every run in collector and rewrites its textfile.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = collector }
}

// WithTracer traces every run, one span per stage.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithHistory saves every run, successful or not, to store.
func WithHistory(store history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithSink writes every report to s instead of the configured sink.
func WithSink(s sink.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithS3Options passes options to the S3 sink when one is configured.
func WithS3Options(opts ...sink.S3Option) Option {
	return func(r *Runner) { r.s3Opts = append(r.s3Opts, opts...) }
}

// WithSourceOpener replaces source.Open.
func WithSourceOpener(open SourceOpener) Option {
	return func(r *Runner) { r.open = open }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner. A nil cfg uses config.NewDefault; a nil logger
// discards logs.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	r := &Runner{
		cfg:    cfg,
		logger: logger,
		tracer: tracing.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	r.open = func(ctx context.Context, uri string) (source.Source, error) {
		return source.Open(ctx, uri, source.Options{
			MaxConns: cfg.Source.MaxConns,
			Logger:   r.logger.Slog(),
		})
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check parses and compiles the rule document at path.
func (r *Runner) Check(path string) (*compiler.Plan, error) {
	parser := document.NewParser()
	if r.cfg.Run.MaxRulesSize > 0 {
		parser = parser.WithMaxFileSize(r.cfg.Run.MaxRulesSize)
	}

	doc, err := parser.Parse(path)
	if err != nil {
		return nil, err
	}

	opts := compiler.DefaultOptions()
	if r.cfg.Run.MatchTimeout > 0 {
		opts.MatchTimeout = r.cfg.Run.MatchTimeout
	}
	return compiler.Compile(doc, opts)
}

// Run executes job: parse and compile the rules, stream the source through
// the engine, format the report and write it to the sink. Every run is
// recorded in history and metrics when those are configured.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	job = r.Resolve(job)
	started := r.now()
	runID := r.newID()

	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithRulesPath(ctx, job.RulesPath)
	ctx = logging.WithSource(ctx, source.Redact(job.SourceURI))
	log := r.logger.WithContext(ctx)
	if job.Name != "" {
		log = log.With("job", job.Name)
	}

	ctx, span := r.tracer.Start(ctx, tracing.SpanRun,
		trace.WithAttributes(tracing.RunAttributes(runID, job.Name, job.RulesPath, source.Redact(job.SourceURI))...))
	defer span.End()

	res, err := r.run(ctx, log, job, runID, started)
	finished := r.now()

	if err != nil {
		tracing.RecordError(span, err)
	} else {
		tracing.SetStatsAttributes(span, res.Stats.Records, res.Stats.FieldViolations, res.Stats.GroupViolations, res.Stats.TypeMismatches)
		span.SetAttributes(attribute.String(tracing.AttrReportLocation, res.Location))
	}

	r.record(ctx, log, job, runID, started, finished, res, err)

	if err != nil {
		log.Error("run failed", "error", err, "duration", finished.Sub(started))
		return nil, err
	}

	res.FinishedAt = finished
	log.Info("run completed",
		"records", res.Stats.Records,
		"field_violations", res.Stats.FieldViolations,
		"group_violations", res.Stats.GroupViolations,
		"type_mismatches", res.Stats.TypeMismatches,
		"location", res.Location,
		"duration", finished.Sub(started),
	)
	return res, nil
}

// Resolve fills the empty fields of job from the configuration.
func (r *Runner) Resolve(job Job) Job {
	if job.RulesPath == "" {
		job.RulesPath = r.cfg.Run.RulesPath
	}
	if job.SourceURI == "" {
		job.SourceURI = r.cfg.Source.URI
	}
	if job.IDField == "" {
		job.IDField = r.cfg.Run.IDField
	}
	if job.OutputDir == "" {
		job.OutputDir = r.cfg.Run.OutputDir
	}
	if job.OutputFile == "" {
		job.OutputFile = r.cfg.Run.OutputFile
	}
	return job
}

func (r *Runner) run(ctx context.Context, log *logging.Logger, job Job, runID string, started time.Time) (*Result, error) {
	if job.RulesPath == "" {
		return nil, errors.New("no rule document given")
	}
	if job.SourceURI == "" {
		return nil, errors.New("no record source given")
	}

	var plan *compiler.Plan
	err := r.stage(ctx, tracing.SpanCompile, func(ctx context.Context, span trace.Span) error {
		var err error
		if plan, err = r.Check(job.RulesPath); err != nil {
			return err
		}
		tracing.SetPlanAttributes(span, plan.Registry.Len(), len(plan.Bindings), len(plan.Groups), len(plan.Warnings))
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		log.Warn("rule document warning", "warning", w.String())
	}

	policy, err := engine.ParseMismatchPolicy(r.cfg.Run.OnTypeMismatch)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(plan, engine.DefaultConfig().WithOnTypeMismatch(policy), log.Slog())
	if err != nil {
		return nil, err
	}

	var src source.Source
	err = r.stage(ctx, tracing.SpanOpen, func(ctx context.Context, _ trace.Span) error {
		var err error
		src, err = r.open(ctx, job.SourceURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	idField := resolveIDField(job.IDField, src)
	log.Debug("evaluating", "fields", len(plan.Fields()), "bindings", len(plan.Bindings), "groups", len(plan.Groups), "id_field", idField)

	var state *compiler.State
	var stats engine.Stats
	err = r.stage(ctx, tracing.SpanEvaluate, func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.String(tracing.AttrIDField, idField))
		it, err := src.Records(ctx, plan.Fields(), idField)
		if err != nil {
			return err
		}
		defer it.Close()

		if state, stats, err = eng.Run(ctx, it); err != nil {
			return err
		}
		tracing.SetStatsAttributes(span, stats.Records, stats.FieldViolations, stats.GroupViolations, stats.TypeMismatches)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rep := report.Format(state, started)
	var location string
	err = r.stage(ctx, tracing.SpanWrite, func(ctx context.Context, span trace.Span) error {
		data, err := rep.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		out, err := r.sinkFor(ctx, job)
		if err != nil {
			return err
		}
		if location, err = out.Write(ctx, job.OutputFile, data); err != nil {
			return err
		}
		span.SetAttributes(attribute.String(tracing.AttrReportLocation, location))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:     runID,
		Job:       job,
		Source:    src.Name(),
		IDField:   idField,
		StartedAt: started,
		Stats:     stats,
		Location:  location,
		Warnings:  plan.Warnings,
		Report:    rep,
	}, nil
}

// stage runs fn inside a child span named name.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context, trace.Span) error) error {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx, span)
	tracing.RecordError(span, err)
	return err
}

// Probe opens the job's source and starts reading it. Sources with a
// header or schema check the identifier column here. It returns the
// identifier column used.
func (r *Runner) Probe(ctx context.Context, job Job) (string, error) {
	job = r.Resolve(job)
	if job.SourceURI == "" {
		return "", errors.New("no record source given")
	}

	src, err := r.open(ctx, job.SourceURI)
	if err != nil {
		return "", err
	}
	defer src.Close()

	idField := resolveIDField(job.IDField, src)
	it, err := src.Records(ctx, nil, idField)
	if err != nil {
		return "", err
	}
	return idField, it.Close()
}

// resolveIDField picks the identifier column: the job or configuration
// value, then the source's natural identifier, then OBJECTID.
func resolveIDField(configured string, src source.Source) string {
	if configured != "" {
		return configured
	}
	if d, ok := src.(source.IDDefaulter); ok {
		return d.DefaultIDField()
	}
	return config.DefaultIDField
}

func (r *Runner) sinkFor(ctx context.Context, job Job) (sink.Sink, error) {
	if r.sink != nil {
		return r.sink, nil
	}
	return sink.New(ctx, &r.cfg.Sink, job.OutputDir, r.s3Opts...)
}

// record saves the run to history and metrics. Failures here are logged;
// they never fail the run.
func (r *Runner) record(ctx context.Context, log *logging.Logger, job Job, runID string, started, finished time.Time, res *Result, runErr error) {
	status := history.StatusSuccess
	if runErr != nil {
		status = history.StatusError
	}

	if r.history != nil {
		run := &history.Run{
			ID:         runID,
			StartedAt:  started,
			FinishedAt: finished,
			RulesPath:  job.RulesPath,
			Source:     source.Redact(job.SourceURI),
			Status:     status,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		} else {
			run.Source = res.Source
			run.Records = res.Stats.Records
			run.FieldViolations = res.Stats.FieldViolations
			run.GroupViolations = res.Stats.GroupViolations
			run.TypeMismatches = res.Stats.TypeMismatches
			if data, err := res.Report.MarshalJSON(); err == nil {
				run.Report = data
			}
		}
		// The run's own context may already be cancelled.
		if err := r.history.Save(context.WithoutCancel(ctx), run); err != nil {
			log.Warn("failed to save run history", "error", err)
		}
	}

	if r.metrics != nil {
		sample := metrics.Sample{
			Status:     status,
			Duration:   finished.Sub(started),
			FinishedAt: finished,
		}
		if res != nil {
			sample.Records = res.Stats.Records
			sample.TypeMismatches = res.Stats.TypeMismatches
			sample.Report = res.Report
		}
		r.metrics.RecordRun(sample)
		if err := r.metrics.WriteTextfile(); err != nil {
			log.Warn("failed to write metrics", "error", err)
		}
	}
}
