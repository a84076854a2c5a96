package engine

import (
	"context"
	"fmt"

	"github.com/roach88/imputer/internal/logging"
	"github.com/roach88/imputer/internal/meta"
	"github.com/roach88/imputer/internal/step"
	"github.com/roach88/imputer/internal/store"
	"github.com/roach88/imputer/internal/table"
	"github.com/roach88/imputer/internal/transform"
)

// DefaultMaxSteps is the default maximum number of steps per batch.
const DefaultMaxSteps = 1000

// Recorder persists the records of one batch. It must keep all of them or
// none. *store.Store implements it.
type Recorder interface {
	SaveTransforms(ctx context.Context, recs []store.Record) error
}

// NamedStep is a step with the name it was declared under.
type NamedStep struct {
	Name string
	Step step.Step
}

// Result is one fitted step of a batch.
type Result struct {
	Name        string
	Step        step.Step
	Transform   *transform.FillNA
	TransformID string
	Seq         int64
}

// Batch is the outcome of one FitAll call, results in declaration order.
type Batch struct {
	FitToken string
	Table    string
	Results  []Result
}

// Lookup returns the result of the named step.
func (b *Batch) Lookup(name string) (Result, bool) {
	for _, r := range b.Results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

// Engine fits batches of steps.
//
// Thread-safety: FitAll may be called from several goroutines; the clock
// and token generator are safe for concurrent use, and so is *store.Store.
type Engine struct {
	recorder Recorder
	clock    Sequencer
	tokens   TokenGenerator
	maxSteps int
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithRecorder persists every fitted transform.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock replaces the default clock starting at 0.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTokenGenerator replaces the default UUIDv7 fit tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithMaxSteps sets the maximum number of steps per batch.
//
// Default: 1000 steps (DefaultMaxSteps)
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// New creates an Engine. Without options it does not persist anything,
// stamps seqs from 1 and generates UUIDv7 fit tokens.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:    NewClock(),
		tokens:   UUIDv7Generator{},
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resume creates an Engine that persists into s, with its clock resumed
// from the highest stored seq.
func Resume(ctx context.Context, s *store.Store, opts ...Option) (*Engine, error) {
	seq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume engine: %w", err)
	}
	base := []Option{WithRecorder(s), WithClock(NewClockAt(seq))}
	return New(append(base, opts...)...), nil
}

// Clock returns the engine's sequencer.
func (e *Engine) Clock() Sequencer {
	return e.clock
}

// FitAll fits every step against tbl, in declaration order.
//
// Step names must be non-empty and unique. A failing step aborts the batch
// with a *BatchError wrapping the step's error; nothing is persisted then.
func (e *Engine) FitAll(ctx context.Context, tbl table.Table, md *meta.Metadata, steps []NamedStep) (*Batch, error) {
	if err := e.checkBatch(steps); err != nil {
		return nil, err
	}

	batch := &Batch{
		FitToken: e.tokens.Generate(),
		Table:    tbl.Name(),
		Results:  make([]Result, 0, len(steps)),
	}

	log := logging.WithFitToken(batch.FitToken)
	log.Info("fit batch starting",
		"table", batch.Table,
		"steps", len(steps),
	)

	for _, ns := range steps {
		if err := ctx.Err(); err != nil {
			return nil, newStepError(batch.FitToken, ns.Name, err)
		}

		log.Debug("fitting step",
			"step", ns.Name,
			"definition", ns.Step.String(),
		)

		tr, err := ns.Step.Fit(ctx, tbl, md)
		if err != nil {
			log.Error("step fit failed",
				"step", ns.Name,
				"definition", ns.Step.String(),
				"error", err,
			)
			return nil, newStepError(batch.FitToken, ns.Name, err)
		}

		id, err := tr.ID()
		if err != nil {
			return nil, newStepError(batch.FitToken, ns.Name, err)
		}

		batch.Results = append(batch.Results, Result{
			Name:        ns.Name,
			Step:        ns.Step,
			Transform:   tr,
			TransformID: id,
			Seq:         e.clock.Next(),
		})

		log.Info("step fitted",
			"step", ns.Name,
			"columns", tr.Len(),
			"transform_id", id,
		)
	}

	if err := e.persist(ctx, batch); err != nil {
		return nil, err
	}
	if e.recorder != nil {
		log.Debug("fit batch persisted", "records", len(batch.Results))
	}

	return batch, nil
}

func (e *Engine) checkBatch(steps []NamedStep) error {
	if len(steps) > e.maxSteps {
		return newQuotaError(len(steps), e.maxSteps)
	}

	seen := make(map[string]bool, len(steps))
	for i, ns := range steps {
		if ns.Name == "" {
			return &BatchError{
				Code:    ErrCodeInvalidBatch,
				Message: fmt.Sprintf("step %d has no name", i),
			}
		}
		if seen[ns.Name] {
			return &BatchError{
				Code:     ErrCodeInvalidBatch,
				Message:  "duplicate step name",
				StepName: ns.Name,
			}
		}
		seen[ns.Name] = true
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, batch *Batch) error {
	if e.recorder == nil {
		return nil
	}

	recs := make([]store.Record, len(batch.Results))
	for i, r := range batch.Results {
		recs[i] = store.Record{
			FitToken:    batch.FitToken,
			StepName:    r.Name,
			Step:        r.Step.String(),
			SourceTable: batch.Table,
			TransformID: r.TransformID,
			Transform:   r.Transform,
			Seq:         r.Seq,
		}
	}

	if err := e.recorder.SaveTransforms(ctx, recs); err != nil {
		return &BatchError{
			Code:     ErrCodePersistFailed,
			Message:  "save transforms",
			FitToken: batch.FitToken,
			Err:      err,
		}
	}
	return nil
}
