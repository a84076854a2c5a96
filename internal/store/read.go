package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned when no stored record matches.
var ErrRecordNotFound = errors.New("record not found")

const recordColumns = `fit_token, step_name, step, source_table, transform_id, transform, seq, engine_version, ir_version`

// ReadTransform returns the earliest record whose transform has the given
// content ID.
func (s *Store) ReadTransform(ctx context.Context, transformID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM fitted_transforms
		WHERE transform_id = ?
		ORDER BY seq ASC, step_name COLLATE BINARY ASC
		LIMIT 1
	`, transformID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: transform %s", ErrRecordNotFound, transformID)
	}
	return rec, err
}

// ReadFit returns every record of one fit, in seq order.
// Returns an empty slice (not nil) if the fit token is unknown.
func (s *Store) ReadFit(ctx context.Context, fitToken string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM fitted_transforms
		WHERE fit_token = ?
		ORDER BY seq ASC, step_name COLLATE BINARY ASC
	`, fitToken)
}

// ListTransforms returns every stored record, in seq order.
func (s *Store) ListTransforms(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM fitted_transforms
		ORDER BY seq ASC, step_name COLLATE BINARY ASC
	`)
}

// MaxSeq returns the highest stored seq, 0 for an empty store. Engines
// resume their clock from it so records stay ordered across runs.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM fitted_transforms`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read max seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transforms: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transforms: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var data string
	err := row.Scan(
		&rec.FitToken,
		&rec.StepName,
		&rec.Step,
		&rec.SourceTable,
		&rec.TransformID,
		&data,
		&rec.Seq,
		&rec.EngineVersion,
		&rec.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan transform: %w", err)
	}

	rec.Transform, err = unmarshalTransform(data)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
