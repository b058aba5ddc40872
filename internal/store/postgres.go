package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routeopt/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir, in name order, that is not yet
// recorded in schema_migrations. Each file runs in its own transaction.
func (p *Postgres) MigrateDir(ctx context.Context, dir string) error {
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version text PRIMARY KEY,
        applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		version := strings.TrimSuffix(filepath.Base(f), ".sql")
		var seen int
		if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM schema_migrations WHERE version=$1`, version).Scan(&seen); err != nil {
			return err
		}
		if seen > 0 {
			continue
		}
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := p.applyMigration(ctx, version, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", version, err)
		}
	}
	return nil
}

func (p *Postgres) applyMigration(ctx context.Context, version, body string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) SaveRoute(ctx context.Context, rec model.RouteRecord) (model.RouteRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	js, err := json.Marshal(rec.Route)
	if err != nil {
		return rec, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO routes (id, tenant_id, plan_date, strategy, package_count, total_distance_km, total_duration_min, result, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE SET result=$8`,
		rec.ID, rec.TenantID, nullIfEmpty(rec.PlanDate), string(rec.Route.StrategyUsed), rec.Route.PackageCount,
		rec.Route.TotalDistanceKm, rec.Route.TotalDurationMinutes, string(js), rec.CreatedAt)
	return rec, err
}

func (p *Postgres) GetRoute(ctx context.Context, tenantID, routeID string) (model.RouteRecord, error) {
	if _, err := uuid.Parse(routeID); err != nil {
		return model.RouteRecord{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id, plan_date, result, created_at FROM routes WHERE tenant_id=$1 AND id=$2`, tenantID, routeID)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRoutes(ctx context.Context, tenantID, cursor string, limit int) ([]model.RouteRecord, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id::text, tenant_id, plan_date, result, created_at FROM routes WHERE tenant_id=$1`
	args := []any{tenantID}
	if cursor != "" {
		at, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q += ` AND (created_at, id) < ($2, $3::uuid)`
		args = append(args, at, id)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.RouteRecord{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (model.RouteRecord, error) {
	var r model.RouteRecord
	var planDate sql.NullString
	var js []byte
	if err := row.Scan(&r.ID, &r.TenantID, &planDate, &js, &r.CreatedAt); err != nil {
		return r, err
	}
	r.PlanDate = planDate.String
	r.CreatedAt = r.CreatedAt.UTC()
	if err := json.Unmarshal(js, &r.Route); err != nil {
		return r, fmt.Errorf("decode route %s: %w", r.ID, err)
	}
	return r, nil
}

func (p *Postgres) SavePlanMetrics(ctx context.Context, tenantID string, m model.PlanMetrics) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO plan_metrics (id, tenant_id, route_id, plan_date, strategy, iterations, improvements, penalty_rounds, initial_cost, best_cost, violation, duration_ms)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		m.ID, tenantID, nullIfEmpty(m.RouteID), nullIfEmpty(m.PlanDate), string(m.Strategy),
		m.Iterations, m.Improvements, m.PenaltyRounds, m.InitialCost, m.BestCost, m.Violation, m.DurationMs)
	return err
}

func (p *Postgres) ListPlanMetrics(ctx context.Context, tenantID, planDate string) ([]model.PlanMetrics, error) {
	base := `SELECT id::text, route_id::text, plan_date, strategy, iterations, improvements, penalty_rounds, initial_cost, best_cost, violation, duration_ms, created_at FROM plan_metrics WHERE tenant_id=$1`
	args := []any{tenantID}
	if planDate != "" {
		base += ` AND plan_date=$2`
		args = append(args, planDate)
	}
	base += ` ORDER BY created_at`
	rows, err := p.db.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PlanMetrics{}
	for rows.Next() {
		var m model.PlanMetrics
		var routeID, date sql.NullString
		var strategy string
		if err := rows.Scan(&m.ID, &routeID, &date, &strategy, &m.Iterations, &m.Improvements, &m.PenaltyRounds,
			&m.InitialCost, &m.BestCost, &m.Violation, &m.DurationMs, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.RouteID, m.PlanDate, m.Strategy = routeID.String, date.String, model.Strategy(strategy)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizerSettings(ctx context.Context, tenantID string) (model.OptimizerSettings, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE tenant_id=$1`, tenantID)
	var js []byte
	var s model.OptimizerSettings
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, nil
		}
		return s, err
	}
	if err := json.Unmarshal(js, &s); err != nil {
		return s, err
	}
	return s, nil
}

func (p *Postgres) SaveOptimizerSettings(ctx context.Context, tenantID string, s model.OptimizerSettings) error {
	js, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, string(js))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
