package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const runColumns = `id, input_dir, output_dir, outcome, started_at, completed_at, error`

// CreateRun records the start of a weave run.
func (s *SQLiteStore) CreateRun(inputDir, outputDir string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		InputDir:  inputDir,
		OutputDir: outputDir,
		Outcome:   OutcomeRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("input", inputDir))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, input_dir, output_dir, outcome, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.OutputDir, run.Outcome, run.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the final outcome of a run.
func (s *SQLiteStore) CompleteRun(id, outcome, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET outcome = ?, completed_at = ?, error = ? WHERE id = ?`,
		outcome, time.Now().UTC().UnixNano(), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		started   int64
		completed sql.NullInt64
		errMsg    sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.Outcome, &started, &completed, &errMsg); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, started).UTC()
	if completed.Valid {
		t := time.Unix(0, completed.Int64).UTC()
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}

// RecordProperties stores the property mapping of a run in one transaction.
func (s *SQLiteStore) RecordProperties(runID string, props []WovenProperty) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx(), `
		INSERT INTO woven_properties
			(run_id, type_name, table_name, property, column_name, kind, value_kind, go_type, ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range props {
		if _, err := stmt.ExecContext(ctx(), runID, p.Type, p.Table, p.Property, p.Column, p.Kind, p.ValueKind, p.GoType, i); err != nil {
			return fmt.Errorf("failed to record %s.%s: %w", p.Type, p.Property, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit properties: %w", err)
	}
	s.logger.Debug("recorded properties", slog.String("run", runID), slog.Int("count", len(props)))
	return nil
}

// ListProperties returns the recorded properties of a run in the order they
// were recorded.
func (s *SQLiteStore) ListProperties(runID string) ([]WovenProperty, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(), `
		SELECT run_id, type_name, table_name, property, column_name, kind, value_kind, go_type
		FROM woven_properties WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []WovenProperty
	for rows.Next() {
		var p WovenProperty
		if err := rows.Scan(&p.RunID, &p.Type, &p.Table, &p.Property, &p.Column, &p.Kind, &p.ValueKind, &p.GoType); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
