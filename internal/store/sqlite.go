package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/urban-performance/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration(sqliteDialect))
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) BeginRun(ctx context.Context, projectID, name string) (string, error) {
	gen := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: begin run %s: begin tx", projectID)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, status, progress, generation, error, bounds, partial_results, updated_at)
		VALUES (?, ?, ?, 0, ?, '', NULL, NULL, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN projects.name ELSE excluded.name END,
			status = excluded.status, progress = 0, generation = excluded.generation,
			error = '', bounds = NULL, partial_results = NULL, updated_at = excluded.updated_at`,
		projectID, name, string(model.StatusProcessing), gen, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: begin run %s", projectID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+ResultsTable+` WHERE project_id = ?`, projectID); err != nil {
		return "", eris.Wrapf(err, "sqlite: begin run %s: clear rows", projectID)
	}
	if err := tx.Commit(); err != nil {
		return "", eris.Wrapf(err, "sqlite: begin run %s: commit tx", projectID)
	}
	return gen, nil
}

func (s *SQLiteStore) CheckGeneration(ctx context.Context, projectID, generation string) error {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT generation FROM projects WHERE id = ?`, projectID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "sqlite: check generation %s", projectID)
	}
	if current != generation {
		return ErrSuperseded
	}
	return nil
}

func (s *SQLiteStore) guarded(ctx context.Context, action, projectID, generation, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s %s", action, projectID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n > 0 {
		return nil
	}
	return s.CheckGeneration(ctx, projectID, generation)
}

func (s *SQLiteStore) SetProgress(ctx context.Context, projectID, generation string, progress int) error {
	return s.guarded(ctx, "set progress", projectID, generation,
		`UPDATE projects SET progress = MAX(progress, ?), updated_at = ? WHERE id = ? AND generation = ?`,
		progress, time.Now().UTC(), projectID, generation)
}

func (s *SQLiteStore) SavePartialResults(ctx context.Context, projectID, generation string, blob []byte) error {
	return s.guarded(ctx, "save partial results", projectID, generation,
		`UPDATE projects SET partial_results = ?, updated_at = ? WHERE id = ? AND generation = ?`,
		blob, time.Now().UTC(), projectID, generation)
}

func (s *SQLiteStore) PartialResults(ctx context.Context, projectID, generation string) ([]byte, error) {
	var current string
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT generation, partial_results FROM projects WHERE id = ?`, projectID,
	).Scan(&current, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: load partial results %s", projectID)
	}
	if current != generation {
		return nil, ErrSuperseded
	}
	if len(blob) == 0 {
		return nil, eris.Errorf("sqlite: project %s has no partial results", projectID)
	}
	return blob, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, projectID, generation string, bounds model.Bounds) error {
	boundsJSON, err := json.Marshal(bounds)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal bounds")
	}
	return s.guarded(ctx, "complete", projectID, generation,
		`UPDATE projects SET status = ?, progress = 100, bounds = ?, updated_at = ? WHERE id = ? AND generation = ?`,
		string(model.StatusReady), string(boundsJSON), time.Now().UTC(), projectID, generation)
}

func (s *SQLiteStore) Fail(ctx context.Context, projectID, generation, reason string) error {
	return s.guarded(ctx, "fail", projectID, generation,
		`UPDATE projects SET status = ?, error = ?, updated_at = ? WHERE id = ? AND generation = ?`,
		string(model.StatusError), reason, time.Now().UTC(), projectID, generation)
}

func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	var status string
	var boundsJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, progress, generation, error, bounds, updated_at FROM projects WHERE id = ?`,
		projectID,
	).Scan(&p.ID, &p.Name, &status, &p.Progress, &p.Generation, &p.Error, &boundsJSON, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get project %s", projectID)
	}
	p.Status = model.ProjectStatus(status)
	if boundsJSON.Valid && boundsJSON.String != "" {
		if err := json.Unmarshal([]byte(boundsJSON.String), &p.Bounds); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal bounds %s", projectID)
		}
	}
	return &p, nil
}

func upsertRowSQL() string {
	cols := model.ResultColumns()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	sets := make([]string, len(model.IndicatorColumns))
	for i, c := range model.IndicatorColumns {
		q := quoteIdent(c)
		sets[i] = fmt.Sprintf("%s = excluded.%s", q, q)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		ResultsTable, quotedColumns(cols), marks, quotedColumns(model.ConflictColumns()), strings.Join(sets, ", "))
}

func (s *SQLiteStore) UpsertRows(ctx context.Context, rows []model.IndicatorRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsertRowSQL())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var total int64
	for i := range rows {
		res, err := stmt.ExecContext(ctx, rows[i].Values()...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert %s", rows[i].Scenario)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert: commit tx")
	}
	return total, nil
}

func (s *SQLiteStore) Bounds(ctx context.Context, projectID string) (model.Bounds, error) {
	var count int64
	vals := make([]sql.NullFloat64, 2*len(model.IndicatorColumns))
	targets := make([]any, 0, 1+len(vals))
	targets = append(targets, &count)
	for i := range vals {
		targets = append(targets, &vals[i])
	}
	if err := s.db.QueryRowContext(ctx, boundsSelect("?"), projectID).Scan(targets...); err != nil {
		return nil, eris.Wrapf(err, "sqlite: bounds %s", projectID)
	}
	ptrs := make([]*float64, len(vals))
	for i := range vals {
		if vals[i].Valid {
			ptrs[i] = &vals[i].Float64
		}
	}
	return boundsFromScan(count, ptrs), nil
}

func (s *SQLiteStore) CountRows(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+ResultsTable+` WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count rows %s", projectID)
	}
	return n, nil
}

func (s *SQLiteStore) EachRow(ctx context.Context, projectID string, fn func(model.IndicatorRow) error) error {
	rows, err := s.db.QueryContext(ctx, rowsSelect("?"), projectID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: query rows %s", projectID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var r model.IndicatorRow
		if err := rows.Scan(rowTargets(&r)...); err != nil {
			return eris.Wrap(err, "sqlite: scan row")
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func (s *SQLiteStore) DeleteRows(ctx context.Context, projectID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+ResultsTable+` WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete rows %s", projectID)
	}
	return res.RowsAffected()
}

// Open returns the store selected by driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		s, err := NewPostgres(ctx, dsn, poolCfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}
