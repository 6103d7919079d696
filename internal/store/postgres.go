package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/db"
	"github.com/sells-group/urban-performance/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the writes every chunk and progress tick issues.
var preparedStatements = map[string]string{
	"set_progress":     setProgressSQL,
	"check_generation": checkGenerationSQL,
}

const (
	setProgressSQL     = `UPDATE projects SET progress = GREATEST(progress, $3), updated_at = now() WHERE id = $1 AND generation = $2`
	checkGenerationSQL = `SELECT generation FROM projects WHERE id = $1`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Close leaves the pool open.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migration(postgresDialect))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) BeginRun(ctx context.Context, projectID, name string) (string, error) {
	gen := uuid.New().String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: begin run %s: begin tx", projectID)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO projects (id, name, status, progress, generation, error, bounds, partial_results, updated_at)
		VALUES ($1, $2, $3, 0, $4, '', NULL, NULL, now())
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name = '' THEN projects.name ELSE EXCLUDED.name END,
			status = EXCLUDED.status, progress = 0, generation = EXCLUDED.generation,
			error = '', bounds = NULL, partial_results = NULL, updated_at = now()`,
		projectID, name, string(model.StatusProcessing), gen,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: begin run %s", projectID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+ResultsTable+` WHERE project_id = $1`, projectID); err != nil {
		return "", eris.Wrapf(err, "postgres: begin run %s: clear rows", projectID)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrapf(err, "postgres: begin run %s: commit tx", projectID)
	}
	return gen, nil
}

func (s *PostgresStore) CheckGeneration(ctx context.Context, projectID, generation string) error {
	var current string
	err := s.pool.QueryRow(ctx, checkGenerationSQL, projectID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "postgres: check generation %s", projectID)
	}
	if current != generation {
		return ErrSuperseded
	}
	return nil
}

// guarded runs a generation-conditioned update and maps zero affected rows
// to ErrSuperseded or ErrNotFound.
func (s *PostgresStore) guarded(ctx context.Context, action, projectID, generation, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s %s", action, projectID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.CheckGeneration(ctx, projectID, generation)
}

func (s *PostgresStore) SetProgress(ctx context.Context, projectID, generation string, progress int) error {
	return s.guarded(ctx, "set progress", projectID, generation, setProgressSQL, projectID, generation, progress)
}

func (s *PostgresStore) SavePartialResults(ctx context.Context, projectID, generation string, blob []byte) error {
	return s.guarded(ctx, "save partial results", projectID, generation,
		`UPDATE projects SET partial_results = $3, updated_at = now() WHERE id = $1 AND generation = $2`,
		projectID, generation, blob)
}

func (s *PostgresStore) PartialResults(ctx context.Context, projectID, generation string) ([]byte, error) {
	var current string
	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT generation, partial_results FROM projects WHERE id = $1`, projectID,
	).Scan(&current, &blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: load partial results %s", projectID)
	}
	if current != generation {
		return nil, ErrSuperseded
	}
	if len(blob) == 0 {
		return nil, eris.Errorf("postgres: project %s has no partial results", projectID)
	}
	return blob, nil
}

func (s *PostgresStore) Complete(ctx context.Context, projectID, generation string, bounds model.Bounds) error {
	boundsJSON, err := json.Marshal(bounds)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal bounds")
	}
	return s.guarded(ctx, "complete", projectID, generation,
		`UPDATE projects SET status = $3, progress = 100, bounds = $4, updated_at = now() WHERE id = $1 AND generation = $2`,
		projectID, generation, string(model.StatusReady), boundsJSON)
}

func (s *PostgresStore) Fail(ctx context.Context, projectID, generation, reason string) error {
	return s.guarded(ctx, "fail", projectID, generation,
		`UPDATE projects SET status = $3, error = $4, updated_at = now() WHERE id = $1 AND generation = $2`,
		projectID, generation, string(model.StatusError), reason)
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	var status string
	var boundsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, status, progress, generation, error, bounds, updated_at FROM projects WHERE id = $1`,
		projectID,
	).Scan(&p.ID, &p.Name, &status, &p.Progress, &p.Generation, &p.Error, &boundsJSON, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get project %s", projectID)
	}
	p.Status = model.ProjectStatus(status)
	if len(boundsJSON) > 0 {
		if err := json.Unmarshal(boundsJSON, &p.Bounds); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal bounds %s", projectID)
		}
	}
	return &p, nil
}

func (s *PostgresStore) UpsertRows(ctx context.Context, rows []model.IndicatorRow) (int64, error) {
	values := make([][]any, len(rows))
	for i := range rows {
		values[i] = rows[i].Values()
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:         ResultsTable,
		Columns:       model.ResultColumns(),
		ConflictKeys:  model.ConflictColumns(),
		SkipUnchanged: true,
	}, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert rows")
	}
	return n, nil
}

func (s *PostgresStore) Bounds(ctx context.Context, projectID string) (model.Bounds, error) {
	var count int64
	vals := make([]*float64, 2*len(model.IndicatorColumns))
	targets := make([]any, 0, 1+len(vals))
	targets = append(targets, &count)
	for i := range vals {
		targets = append(targets, &vals[i])
	}
	if err := s.pool.QueryRow(ctx, boundsSelect("$1"), projectID).Scan(targets...); err != nil {
		return nil, eris.Wrapf(err, "postgres: bounds %s", projectID)
	}
	return boundsFromScan(count, vals), nil
}

func (s *PostgresStore) CountRows(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+ResultsTable+` WHERE project_id = $1`, projectID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count rows %s", projectID)
	}
	return n, nil
}

func (s *PostgresStore) EachRow(ctx context.Context, projectID string, fn func(model.IndicatorRow) error) error {
	rows, err := s.pool.Query(ctx, rowsSelect("$1"), projectID)
	if err != nil {
		return eris.Wrapf(err, "postgres: query rows %s", projectID)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.IndicatorRow
		if err := rows.Scan(rowTargets(&r)...); err != nil {
			return eris.Wrap(err, "postgres: scan row")
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "postgres: iterate rows")
}

func (s *PostgresStore) DeleteRows(ctx context.Context, projectID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+ResultsTable+` WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete rows %s", projectID)
	}
	return tag.RowsAffected(), nil
}
