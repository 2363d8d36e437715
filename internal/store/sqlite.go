// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
	"bondval/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to open database: %v", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to initialize schema: %v", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS valuations (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		label TEXT,
		kind TEXT NOT NULL,
		face_value REAL NOT NULL,
		coupon_rate REAL NOT NULL,
		yield_rate REAL NOT NULL,
		spread REAL NOT NULL,
		coupon_period_days INTEGER NOT NULL,
		maturity_days INTEGER NOT NULL,
		days_per_year INTEGER NOT NULL,
		dirty_price REAL NOT NULL,
		accrued_interest REAL NOT NULL,
		clean_price REAL NOT NULL,
		macaulay_duration REAL NOT NULL,
		modified_duration REAL NOT NULL,
		convexity REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_valuations_created_at ON valuations(created_at);
	CREATE INDEX IF NOT EXISTS idx_valuations_kind ON valuations(kind);
	CREATE INDEX IF NOT EXISTS idx_valuations_label ON valuations(label);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const insertValuation = `
	INSERT INTO valuations (
		id, created_at, label, kind,
		face_value, coupon_rate, yield_rate, spread, coupon_period_days, maturity_days, days_per_year,
		dirty_price, accrued_interest, clean_price, macaulay_duration, modified_duration, convexity
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectValuation = `
	SELECT id, created_at, label, kind,
		face_value, coupon_rate, yield_rate, spread, coupon_period_days, maturity_days, days_per_year,
		dirty_price, accrued_interest, clean_price, macaulay_duration, modified_duration, convexity
	FROM valuations
`

func valuationArgs(v *models.Valuation) []interface{} {
	t, m := v.Terms, v.Measures
	return []interface{}{
		v.ID, v.CreatedAt.UTC(), v.Label, string(v.Kind),
		t.FaceValue, t.CouponRate, t.YieldRate, t.Spread, t.CouponPeriodDays, t.MaturityDays, t.DaysPerYear,
		m.DirtyPrice, m.AccruedInterest, m.CleanPrice, m.MacaulayDuration, m.ModifiedDuration, m.Convexity,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanValuation(row rowScanner) (models.Valuation, error) {
	var v models.Valuation
	var label sql.NullString
	var kind string
	t, m := &v.Terms, &v.Measures

	err := row.Scan(&v.ID, &v.CreatedAt, &label, &kind,
		&t.FaceValue, &t.CouponRate, &t.YieldRate, &t.Spread, &t.CouponPeriodDays, &t.MaturityDays, &t.DaysPerYear,
		&m.DirtyPrice, &m.AccruedInterest, &m.CleanPrice, &m.MacaulayDuration, &m.ModifiedDuration, &m.Convexity)
	if err != nil {
		return v, err
	}
	v.Label = label.String
	v.Kind = bond.Kind(kind)
	return v, nil
}

// SaveValuation saves a single valuation. An empty ID or zero timestamp is filled in.
func (s *SQLiteStore) SaveValuation(ctx context.Context, v *models.Valuation) error {
	fillDefaults(v)

	if _, err := s.db.ExecContext(ctx, insertValuation, valuationArgs(v)...); err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to save valuation: %v", err)
	}
	return nil
}

// SaveValuations saves a batch of valuations in one transaction.
func (s *SQLiteStore) SaveValuations(ctx context.Context, vs []models.Valuation) error {
	if len(vs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertValuation)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for i := range vs {
		fillDefaults(&vs[i])
		if _, err := stmt.ExecContext(ctx, valuationArgs(&vs[i])...); err != nil {
			return apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to insert valuation %s: %v", vs[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to commit transaction: %v", err)
	}
	return nil
}

func fillDefaults(v *models.Valuation) {
	if v.ID == "" {
		v.ID = models.NewValuationID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
}

// GetValuation retrieves a valuation by ID.
func (s *SQLiteStore) GetValuation(ctx context.Context, id string) (*models.Valuation, error) {
	row := s.db.QueryRowContext(ctx, selectValuation+" WHERE id = ?", id)
	v, err := scanValuation(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDataError("valuation", id, "not found", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to get valuation: %v", err)
	}
	return &v, nil
}

// whereClause builds the filter conditions. Timestamps are stored in UTC and
// compared as text, so bounds are converted to UTC too.
func whereClause(filter ValuationFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Until.UTC())
	}
	return query, args
}

// GetValuations retrieves valuations matching the filter, newest first.
func (s *SQLiteStore) GetValuations(ctx context.Context, filter ValuationFilter) ([]models.Valuation, error) {
	where, args := whereClause(filter)
	query := selectValuation + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to query valuations: %v", err)
	}
	defer rows.Close()

	var out []models.Valuation
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to scan valuation: %v", err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuations: %w", err)
	}
	return out, nil
}

// DeleteValuations removes valuations matching the filter and reports how many went.
// Limit is ignored.
func (s *SQLiteStore) DeleteValuations(ctx context.Context, filter ValuationFilter) (int64, error) {
	where, args := whereClause(filter)
	res, err := s.db.ExecContext(ctx, "DELETE FROM valuations"+where, args...)
	if err != nil {
		return 0, apperrors.Wrapf(apperrors.ErrDatabaseError, "failed to delete valuations: %v", err)
	}
	return res.RowsAffected()
}
