package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// CreateRun starts a run for a quote.
func (s *SQLiteStore) CreateRun(ctx context.Context, quoteID string) (*core.QuoteRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &core.QuoteRun{
		ID:        generateID(),
		QuoteID:   quoteID,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", "id", run.ID, "quote", quoteID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quote_runs (id, quote_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.QuoteID, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun records the final status and total of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status core.RunStatus, total float64, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE quote_runs SET status = ?, total = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), total, formatTime(time.Now()), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.QuoteRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, quote_id, status, total, started_at, completed_at, error FROM quote_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. An empty quoteID
// lists runs of every quote.
func (s *SQLiteStore) ListRuns(ctx context.Context, quoteID string, limit int) ([]*core.QuoteRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quote_id, status, total, started_at, completed_at, error
		 FROM quote_runs
		 WHERE ? = '' OR quote_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		quoteID, quoteID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.QuoteRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// SaveLineResult records one line of a run. Saving the same instance twice
// replaces the earlier result.
func (s *SQLiteStore) SaveLineResult(ctx context.Context, result *core.LineResult) error {
	if s.db == nil {
		return errNotOpened
	}

	var outputs sql.NullString
	if len(result.Outputs) > 0 {
		data, err := json.Marshal(result.Outputs)
		if err != nil {
			return fmt.Errorf("failed to encode outputs: %w", err)
		}
		outputs = sql.NullString{String: string(data), Valid: true}
	}
	var errVal sql.NullString
	if result.Error != "" {
		errVal = sql.NullString{String: result.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO line_results (run_id, instance_id, module_id, position, value, outputs, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.InstanceID, result.ModuleID, result.Position, result.Value, outputs, errVal,
	)
	if err != nil {
		return fmt.Errorf("failed to save line result: %w", err)
	}
	return nil
}

// GetLineResults returns the lines of a run in quote order.
func (s *SQLiteStore) GetLineResults(ctx context.Context, runID string) ([]*core.LineResult, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, instance_id, module_id, position, value, outputs, error
		 FROM line_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get line results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*core.LineResult
	for rows.Next() {
		var (
			lr      core.LineResult
			outputs sql.NullString
			errVal  sql.NullString
		)
		if err := rows.Scan(&lr.RunID, &lr.InstanceID, &lr.ModuleID, &lr.Position, &lr.Value, &outputs, &errVal); err != nil {
			return nil, fmt.Errorf("failed to scan line result: %w", err)
		}
		if outputs.Valid {
			if err := json.Unmarshal([]byte(outputs.String), &lr.Outputs); err != nil {
				return nil, fmt.Errorf("failed to decode outputs of %s: %w", lr.InstanceID, err)
			}
		}
		lr.Error = errVal.String
		results = append(results, &lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get line results: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.QuoteRun, error) {
	var (
		run         core.QuoteRun
		status      string
		startedAt   string
		completedAt sql.NullString
		errVal      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.QuoteID, &status, &run.Total, &startedAt, &completedAt, &errVal); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	run.Error = errVal.String

	t, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}
