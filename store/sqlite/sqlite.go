/*
Package sqlite provides the durable TxStore implementation.

PURPOSE:
  Implements economy.TxStore on SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the transactions table
  - No DELETE statements on the transactions table
  The profiles table is the single mutable record per user and is
  written only through SaveProfile (upsert).

KEY TABLES:
  transactions: immutable ledger of all coin movements
  profiles:     per-user running totals

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/coins.db")   // or ":memory:"
  if err != nil { ... }
  defer store.Close()
  mgr := economy.NewManager(store)

SEE ALSO:
  - economy/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/alpharise/coin-engine/economy"
)

// Store implements economy.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		reason TEXT,
		category TEXT NOT NULL,
		question_id TEXT,
		rating INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Recency queries per user (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_user_created
		ON transactions(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_created
		ON transactions(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_category
		ON transactions(category);

	-- Profiles (one mutable row per user)
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		subscription TEXT NOT NULL,
		current_balance INTEGER NOT NULL DEFAULT 0,
		total_earned INTEGER NOT NULL DEFAULT 0,
		total_spent INTEGER NOT NULL DEFAULT 0,
		monthly_allocation INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		badges_json TEXT,
		last_activity TEXT,
		monthly_earnings INTEGER NOT NULL DEFAULT 0,
		discount_earned TEXT NOT NULL DEFAULT '0',
		last_allocation TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION LOG (append-only)
// =============================================================================

// AppendTransaction adds a transaction to the ledger.
func (s *Store) AppendTransaction(ctx context.Context, tx economy.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTx(ctx, s.db, tx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendTx(ctx context.Context, db execer, tx economy.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, user_id, tx_type, amount, reason, category, question_id, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Amount,
		tx.Reason,
		tx.Category,
		nullString(tx.QuestionID),
		tx.Rating,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// TransactionsByUser returns a user's transactions, most recent first.
func (s *Store) TransactionsByUser(ctx context.Context, userID string, limit int) ([]economy.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryTransactions(ctx, query, args...)
}

// TransactionsByUserSince returns transactions at or after since,
// most recent first.
func (s *Store) TransactionsByUserSince(ctx context.Context, userID string, since time.Time) ([]economy.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC, rowid DESC
	`
	return s.queryTransactions(ctx, query, userID, since.UTC().Format(time.RFC3339Nano))
}

// RecentTransactions returns the newest transactions across all users.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]economy.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryTransactions(ctx, query, args...)
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]economy.Transaction, error) {
	return queryTransactions(ctx, s.db, query, args...)
}

func queryTransactions(ctx context.Context, db rowQuerier, query string, args ...any) ([]economy.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []economy.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (economy.Transaction, error) {
	var (
		tx         economy.Transaction
		reason     sql.NullString
		questionID sql.NullString
		createdAt  string
	)

	err := rows.Scan(
		&tx.ID, &tx.UserID, &tx.Type, &tx.Amount,
		&reason, &tx.Category, &questionID, &tx.Rating, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Reason = reason.String
	tx.QuestionID = questionID.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return tx, nil
}

// =============================================================================
// PROFILES
// =============================================================================

// GetProfile returns a user's ledger entry, or economy.ErrUserNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (*economy.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProfile(ctx, s.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, db querier, userID string) (*economy.Profile, error) {
	query := `
		SELECT user_id, username, subscription, current_balance, total_earned, total_spent,
		       monthly_allocation, streak, level, badges_json, last_activity,
		       monthly_earnings, discount_earned, last_allocation, created_at
		FROM profiles
		WHERE user_id = ?
	`

	var (
		p              economy.Profile
		badgesJSON     sql.NullString
		lastActivity   sql.NullString
		discountStr    string
		lastAllocation sql.NullString
		createdAt      string
	)

	err := db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &p.Subscription, &p.CurrentBalance, &p.TotalEarned,
		&p.TotalSpent, &p.MonthlyAllocation, &p.Streak, &p.Level, &badgesJSON,
		&lastActivity, &p.MonthlyEarnings, &discountStr, &lastAllocation, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", economy.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if badgesJSON.Valid && badgesJSON.String != "" {
		if err := json.Unmarshal([]byte(badgesJSON.String), &p.Badges); err != nil {
			return nil, fmt.Errorf("failed to parse badges %q: %w", badgesJSON.String, err)
		}
	}
	p.LastActivity = parseNullTime(lastActivity)
	p.LastAllocation = parseNullTime(lastAllocation)
	p.DiscountEarned, err = decimal.NewFromString(discountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse discount %q: %w", discountStr, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

// SaveProfile inserts or replaces a profile.
func (s *Store) SaveProfile(ctx context.Context, p economy.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProfile(ctx, s.db, p)
}

func saveProfile(ctx context.Context, db execer, p economy.Profile) error {
	badgesJSON, _ := json.Marshal(p.Badges)

	query := `
		INSERT INTO profiles
		(user_id, username, subscription, current_balance, total_earned, total_spent,
		 monthly_allocation, streak, level, badges_json, last_activity,
		 monthly_earnings, discount_earned, last_allocation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			subscription = excluded.subscription,
			current_balance = excluded.current_balance,
			total_earned = excluded.total_earned,
			total_spent = excluded.total_spent,
			monthly_allocation = excluded.monthly_allocation,
			streak = excluded.streak,
			level = excluded.level,
			badges_json = excluded.badges_json,
			last_activity = excluded.last_activity,
			monthly_earnings = excluded.monthly_earnings,
			discount_earned = excluded.discount_earned,
			last_allocation = excluded.last_allocation
	`

	_, err := db.ExecContext(ctx, query,
		p.UserID, p.Username, p.Subscription, p.CurrentBalance, p.TotalEarned,
		p.TotalSpent, p.MonthlyAllocation, p.Streak, p.Level, string(badgesJSON),
		formatNullTime(p.LastActivity), p.MonthlyEarnings, p.DiscountEarned.String(),
		formatNullTime(p.LastAllocation), p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ListProfiles returns every profile.
func (s *Store) ListProfiles(ctx context.Context) ([]economy.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM profiles ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]economy.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := getProfile(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// =============================================================================
// TRANSACTIONAL STORE (economy.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store economy.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx economy.Transaction) error {
	return appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) SaveProfile(ctx context.Context, p economy.Profile) error {
	return saveProfile(ctx, ts.tx, p)
}

func (ts *txStore) GetProfile(ctx context.Context, userID string) (*economy.Profile, error) {
	return getProfile(ctx, ts.tx, userID)
}

// Reads inside a transaction go through the sql.Tx, never back through
// the parent's mutex (which WithTx already holds).

func (ts *txStore) TransactionsByUser(ctx context.Context, userID string, limit int) ([]economy.Transaction, error) {
	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return queryTransactions(ctx, ts.tx, query, args...)
}

func (ts *txStore) TransactionsByUserSince(ctx context.Context, userID string, since time.Time) ([]economy.Transaction, error) {
	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC, rowid DESC
	`
	return queryTransactions(ctx, ts.tx, query, userID, since.UTC().Format(time.RFC3339Nano))
}

func (ts *txStore) RecentTransactions(ctx context.Context, limit int) ([]economy.Transaction, error) {
	query := `
		SELECT id, user_id, tx_type, amount, reason, category, question_id, rating, created_at
		FROM transactions
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return queryTransactions(ctx, ts.tx, query, args...)
}

func (ts *txStore) ListProfiles(ctx context.Context) ([]economy.Profile, error) {
	rows, err := ts.tx.QueryContext(ctx, "SELECT user_id FROM profiles ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]economy.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := getProfile(ctx, ts.tx, id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatNullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}
