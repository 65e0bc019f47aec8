// Package memory provides an in-memory TxStore for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alpharise/coin-engine/economy"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu       sync.RWMutex
	byUser   map[string][]economy.Transaction // chronological per user
	all      []economy.Transaction            // chronological, global
	profiles map[string]economy.Profile
}

func New() *Store {
	return &Store{
		byUser:   make(map[string][]economy.Transaction),
		profiles: make(map[string]economy.Profile),
	}
}

// AppendTransaction adds a single transaction. Append-only.
func (m *Store) AppendTransaction(_ context.Context, tx economy.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(tx)
	return nil
}

func (m *Store) appendLocked(tx economy.Transaction) {
	m.byUser[tx.UserID] = append(m.byUser[tx.UserID], tx)
	m.all = append(m.all, tx)
}

func (m *Store) TransactionsByUser(_ context.Context, userID string, limit int) ([]economy.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.byUser[userID], limit), nil
}

func (m *Store) TransactionsByUserSince(_ context.Context, userID string, since time.Time) ([]economy.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var kept []economy.Transaction
	for _, tx := range m.byUser[userID] {
		if !tx.CreatedAt.Before(since) {
			kept = append(kept, tx)
		}
	}
	return newestFirst(kept, 0), nil
}

func (m *Store) RecentTransactions(_ context.Context, limit int) ([]economy.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.all, limit), nil
}

func (m *Store) GetProfile(_ context.Context, userID string) (*economy.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProfileLocked(userID)
}

func (m *Store) getProfileLocked(userID string) (*economy.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", economy.ErrUserNotFound, userID)
	}
	cp := p
	cp.Badges = append([]string(nil), p.Badges...)
	return &cp, nil
}

func (m *Store) SaveProfile(_ context.Context, p economy.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveProfileLocked(p)
	return nil
}

func (m *Store) saveProfileLocked(p economy.Profile) {
	p.Badges = append([]string(nil), p.Badges...)
	m.profiles[p.UserID] = p
}

func (m *Store) ListProfiles(_ context.Context) ([]economy.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]economy.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

// newestFirst copies txs in reverse chronological order, honoring limit.
func newestFirst(txs []economy.Transaction, limit int) []economy.Transaction {
	n := len(txs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]economy.Transaction, 0, n)
	for i := len(txs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, txs[i])
	}
	return out
}

// =============================================================================
// TRANSACTIONAL VIEW - snapshot + rollback on error
// =============================================================================

// WithTx executes fn atomically. The memory store simulates a database
// transaction with a snapshot restored on error.
func (m *Store) WithTx(_ context.Context, fn func(economy.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	byUser   map[string][]economy.Transaction
	all      []economy.Transaction
	profiles map[string]economy.Profile
}

func (m *Store) snapshot() memorySnapshot {
	byUser := make(map[string][]economy.Transaction, len(m.byUser))
	for k, v := range m.byUser {
		byUser[k] = append([]economy.Transaction(nil), v...)
	}
	profiles := make(map[string]economy.Profile, len(m.profiles))
	for k, v := range m.profiles {
		profiles[k] = v
	}
	return memorySnapshot{
		byUser:   byUser,
		all:      append([]economy.Transaction(nil), m.all...),
		profiles: profiles,
	}
}

func (m *Store) restore(s memorySnapshot) {
	m.byUser = s.byUser
	m.all = s.all
	m.profiles = s.profiles
}

// txView routes writes to the parent while its lock is already held.
type txView struct {
	parent *Store
}

func (tv *txView) AppendTransaction(_ context.Context, tx economy.Transaction) error {
	tv.parent.appendLocked(tx)
	return nil
}

func (tv *txView) TransactionsByUser(_ context.Context, userID string, limit int) ([]economy.Transaction, error) {
	return newestFirst(tv.parent.byUser[userID], limit), nil
}

func (tv *txView) TransactionsByUserSince(_ context.Context, userID string, since time.Time) ([]economy.Transaction, error) {
	var kept []economy.Transaction
	for _, tx := range tv.parent.byUser[userID] {
		if !tx.CreatedAt.Before(since) {
			kept = append(kept, tx)
		}
	}
	return newestFirst(kept, 0), nil
}

func (tv *txView) RecentTransactions(_ context.Context, limit int) ([]economy.Transaction, error) {
	return newestFirst(tv.parent.all, limit), nil
}

func (tv *txView) GetProfile(_ context.Context, userID string) (*economy.Profile, error) {
	return tv.parent.getProfileLocked(userID)
}

func (tv *txView) SaveProfile(_ context.Context, p economy.Profile) error {
	tv.parent.saveProfileLocked(p)
	return nil
}

func (tv *txView) ListProfiles(_ context.Context) ([]economy.Profile, error) {
	out := make([]economy.Profile, 0, len(tv.parent.profiles))
	for _, p := range tv.parent.profiles {
		out = append(out, p)
	}
	return out, nil
}
