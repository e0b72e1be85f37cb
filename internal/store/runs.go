package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// NewRun builds a Run from a completed analysis.
func NewRun(sourceFile string, fields alignment.Fields, a *alignment.Analysis) *Run {
	return &Run{
		SourceFile:  sourceFile,
		BatchHash:   HashRecords(a.Records),
		Fields:      fields,
		RowsRead:    a.RowsRead,
		RowsKept:    a.RowsKept,
		Resolutions: a.Resolutions,
		Entities:    a.Result.Entities,
		Result:      a.Result,
	}
}

// SaveRun inserts a run and returns its ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) (int64, error) {
	if r.Result == nil {
		return 0, fmt.Errorf("run result cannot be nil")
	}
	if r.BatchHash == "" {
		return 0, fmt.Errorf("run batch hash cannot be empty")
	}

	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return 0, fmt.Errorf("encoding fields: %w", err)
	}
	entities := r.Entities
	if entities == nil {
		entities = r.Result.Entities
	}
	if entities == nil {
		entities = []string{}
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return 0, fmt.Errorf("encoding entities: %w", err)
	}
	resultJSON, err := json.Marshal(r.Result)
	if err != nil {
		return 0, fmt.Errorf("encoding result: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (source_file, batch_hash, fields, rows_read, rows_kept, resolution_count, entity_count, entities, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SourceFile, r.BatchHash, string(fieldsJSON), r.RowsRead, r.RowsKept, r.Resolutions,
		len(entities), string(entitiesJSON), string(resultJSON), now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	r.ID = id
	r.Entities = entities
	r.CreatedAt = now
	return id, nil
}

// GetRun retrieves a run with its full result. Returns nil if not found.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_file, batch_hash, fields, rows_read, rows_kept, resolution_count, entities, result, created_at
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %d: %w", id, err)
	}
	return r, nil
}

// FindByHash returns the newest run with the given batch hash, or nil.
func (s *SQLiteStore) FindByHash(ctx context.Context, hash string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_file, batch_hash, fields, rows_read, rows_kept, resolution_count, entities, result, created_at
		 FROM runs WHERE batch_hash = ? ORDER BY id DESC LIMIT 1`, hash)
	r, err := scanRun(row, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding run by hash: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first, without their results.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := `SELECT id, source_file, batch_hash, fields, rows_read, rows_kept, resolution_count, entities, '', created_at
			  FROM runs`
	args := []interface{}{}
	if opts.SourceFile != "" {
		query += " WHERE source_file = ?"
		args = append(args, opts.SourceFile)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run. Deleting a missing run is an error.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc rowScanner, withResult bool) (*Run, error) {
	r := &Run{}
	var fieldsJSON, entitiesJSON, resultJSON string
	if err := sc.Scan(&r.ID, &r.SourceFile, &r.BatchHash, &fieldsJSON, &r.RowsRead, &r.RowsKept,
		&r.Resolutions, &entitiesJSON, &resultJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &r.Entities); err != nil {
		return nil, fmt.Errorf("decoding entities: %w", err)
	}
	if withResult {
		var res alignment.Result
		if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		r.Result = &res
	}
	return r, nil
}
