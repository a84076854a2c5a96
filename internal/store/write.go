package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/imputer/internal/ir"
	"github.com/roach88/imputer/internal/transform"
)

// Record is one fitted transform as stored.
type Record struct {
	FitToken      string
	StepName      string
	Step          string // Step.String() of the fitted step
	SourceTable   string
	TransformID   string
	Transform     *transform.FillNA
	Seq           int64
	EngineVersion string
	IRVersion     string
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveTransforms inserts fitted transform records in one transaction. If
// any insert fails, none of the records are kept.
//
// Uses ON CONFLICT DO NOTHING for idempotency - saving the same
// (fit_token, step_name) twice keeps the first record. TransformID is
// computed from the transform when empty; the version fields default to
// the running build.
func (s *Store) SaveTransforms(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save transforms: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range recs {
		if err := insertRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("save transforms: step %s: %w", rec.StepName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save transforms: %w", err)
	}
	return nil
}

func insertRecord(ctx context.Context, ex execer, rec Record) error {
	data, err := marshalTransform(rec.Transform)
	if err != nil {
		return err
	}

	if rec.TransformID == "" {
		rec.TransformID, err = rec.Transform.ID()
		if err != nil {
			return err
		}
	}
	if rec.EngineVersion == "" {
		rec.EngineVersion = ir.EngineVersion
	}
	if rec.IRVersion == "" {
		rec.IRVersion = ir.FormatVersion
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO fitted_transforms
		(fit_token, step_name, step, source_table, transform_id, transform, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.FitToken,
		rec.StepName,
		rec.Step,
		rec.SourceTable,
		rec.TransformID,
		data,
		rec.Seq,
		rec.EngineVersion,
		rec.IRVersion,
	)
	return err
}
