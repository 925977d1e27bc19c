package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// Default connection pool settings.
const (
	defaultMaxOpenConns    = 16
	defaultMaxIdleConns    = 4
	defaultConnMaxIdleTime = 5 * time.Minute
)

// userRow mirrors the users table for sqlx scanning.
type userRow struct {
	ID             int64         `db:"id"`
	Name           string        `db:"name"`
	Gender         string        `db:"gender"`
	Age            int           `db:"age"`
	ProfileImage   string        `db:"profile_image"`
	MembershipTier string        `db:"membership_tier"`
	TotalPoint     int64         `db:"total_point"`
	DailyRank      sql.NullInt64 `db:"daily_rank"`
	RivalID        sql.NullInt64 `db:"rival_id"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

func (r userRow) toModel() model.User {
	u := model.User{
		ID:             r.ID,
		Name:           r.Name,
		Gender:         r.Gender,
		Age:            r.Age,
		ProfileImage:   r.ProfileImage,
		MembershipTier: r.MembershipTier,
		TotalPoint:     r.TotalPoint,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.DailyRank.Valid {
		rank := int(r.DailyRank.Int64)
		u.DailyRank = &rank
	}
	if r.RivalID.Valid {
		rival := r.RivalID.Int64
		u.RivalID = &rival
	}
	return u
}

const userColumns = `id, name, gender, age, profile_image, membership_tier,
	total_point, daily_rank, rival_id, created_at, updated_at`

// PostgresStore implements Store on top of sqlx.
type PostgresStore struct {
	db *sqlx.DB

	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	skipMigrations  bool
}

// NewPostgresStore opens a connection pool, verifies it, and runs the
// embedded schema migrations unless disabled via options.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	s := &PostgresStore{
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxIdleTime: defaultConnMaxIdleTime,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxIdleTime(s.connMaxIdleTime)
	s.db = db

	if !s.skipMigrations {
		if err := runMigrations(db.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection. Used by tests with a
// mocked driver; no migrations are run.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

func observe(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}

// CreateUser inserts a new user with a zero point total.
func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) (int64, error) {
	defer observe(time.Now())

	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (name, gender, age, profile_image, membership_tier, total_point)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id
	`, u.Name, u.Gender, u.Age, u.ProfileImage, u.MembershipTier).Scan(&id)
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// FindByID returns a single user or ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (model.User, error) {
	defer observe(time.Now())

	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.User{}, fmt.Errorf("select user %d: %w", id, err)
	}
	return row.toModel(), nil
}

// FindByIDs returns users matching ids with a single WHERE IN query. This is
// the batched lookup the top-rankings path depends on; it never degrades to
// per-id round trips.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	defer observe(time.Now())

	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	query, args, err := sqlx.In(`
		SELECT `+userColumns+`
		FROM users
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("build batched query: %w", err)
	}
	query = s.db.Rebind(query)

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("select users by ids: %w", err)
	}

	users := make([]model.User, len(rows))
	for i, r := range rows {
		users[i] = r.toModel()
	}
	return users, nil
}

// ListByFilter returns the filtered population pre-sorted for ranking.
func (s *PostgresStore) ListByFilter(ctx context.Context, f model.Filter) ([]model.User, error) {
	defer observe(time.Now())

	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR gender = $1)
		  AND ($2 = 0 OR (age >= $2 AND age < $2 + 10))
		ORDER BY total_point DESC, id ASC
	`, f.Gender, f.AgeBucket)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("select filtered ranking: %w", err)
	}

	users := make([]model.User, len(rows))
	for i, r := range rows {
		users[i] = r.toModel()
	}
	return users, nil
}

// ListScoresDesc returns the whole population as id->points pairs in rank
// order.
func (s *PostgresStore) ListScoresDesc(ctx context.Context) ([]model.Member, error) {
	defer observe(time.Now())

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, total_point
		FROM users
		ORDER BY total_point DESC, id ASC
	`)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("select scores: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Points); err != nil {
			metrics.RecordStoreError()
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return members, nil
}

// UpdateRanks writes contiguous daily ranks 1..N in a single transaction so
// a failed pass never leaves a partially-ranked population.
func (s *PostgresStore) UpdateRanks(ctx context.Context, orderedIDs []int64) error {
	defer observe(time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("begin rank transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `UPDATE users SET daily_rank = $1 WHERE id = $2`)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("prepare rank update: %w", err)
	}
	defer stmt.Close()

	for i, id := range orderedIDs {
		if _, err := stmt.ExecContext(ctx, i+1, id); err != nil {
			metrics.RecordStoreError()
			return fmt.Errorf("update rank for user %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("commit rank transaction: %w", err)
	}
	return nil
}

// AddPoints atomically adds delta to a user's total, clamped at zero, and
// returns the new total.
func (s *PostgresStore) AddPoints(ctx context.Context, id int64, delta int64) (int64, error) {
	defer observe(time.Now())

	var total int64
	err := s.db.QueryRowxContext(ctx, `
		UPDATE users
		SET total_point = GREATEST(total_point + $1, 0), updated_at = now()
		WHERE id = $2
		RETURNING total_point
	`, delta, id).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("add points for user %d: %w", id, err)
	}
	return total, nil
}

// SetRival assigns or clears the rival association.
func (s *PostgresStore) SetRival(ctx context.Context, id int64, rivalID *int64) error {
	defer observe(time.Now())

	var rival sql.NullInt64
	if rivalID != nil {
		rival = sql.NullInt64{Int64: *rivalID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET rival_id = $1 WHERE id = $2`, rival, id)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("set rival for user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetAllPoints zeroes every user's point total.
func (s *PostgresStore) ResetAllPoints(ctx context.Context) error {
	defer observe(time.Now())

	if _, err := s.db.ExecContext(ctx, `UPDATE users SET total_point = 0, updated_at = now()`); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("reset points: %w", err)
	}
	return nil
}

// CountUsers returns the population size.
func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	defer observe(time.Now())

	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
