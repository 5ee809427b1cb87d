package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

// accountsDocument is the persisted shape of the account table.
type accountsDocument struct {
	Accounts []*domain.Account `json:"accounts"`
}

// AccountStore is a thread-safe store for accounts, keyed by account_id,
// with a display-name registry (normalized name → account_id) kept in step
// with every mutation. Each mutation writes the full table through to the
// snapshotter before returning.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	names    map[string]string
	snap     Snapshotter
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountStore creates a store and loads any persisted accounts. A
// missing or unreadable document yields an empty store. snap may be nil for
// a purely in-memory store.
func NewAccountStore(snap Snapshotter, logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AccountStore{
		accounts: make(map[string]*domain.Account),
		names:    make(map[string]string),
		snap:     snap,
		logger:   logger.With("component", "account-store"),
		now:      time.Now,
	}
	s.load()
	return s
}

func (s *AccountStore) load() {
	if s.snap == nil {
		return
	}
	var doc accountsDocument
	found, err := s.snap.Load(&doc)
	if err != nil {
		s.logger.Warn("account table unreadable, starting empty", slog.String("error", err.Error()))
		return
	}
	if !found {
		return
	}

	sort.SliceStable(doc.Accounts, func(i, j int) bool {
		return doc.Accounts[i].CreatedAt.Before(doc.Accounts[j].CreatedAt)
	})
	for _, a := range doc.Accounts {
		if a == nil || a.AccountID == "" {
			continue
		}
		if a.Holdings == nil {
			a.Holdings = make(map[string]decimal.Decimal)
		}
		key := domain.NormalizeName(a.DisplayName)
		if owner, taken := s.names[key]; key == "" || (taken && owner != a.AccountID) {
			renamed := s.freeDefaultNameLocked(a.AccountID)
			s.logger.Warn("duplicate display name in account table, reassigned",
				slog.String("account_id", a.AccountID),
				slog.String("display_name", a.DisplayName),
				slog.String("assigned", renamed),
			)
			a.DisplayName = renamed
			key = domain.NormalizeName(renamed)
		}
		s.accounts[a.AccountID] = a
		s.names[key] = a.AccountID
	}
	s.logger.Info("account table loaded", slog.Int("accounts", len(s.accounts)))
}

// Get returns a copy of the account. It returns domain.ErrAccountNotFound
// if the account does not exist.
func (s *AccountStore) Get(id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// Exists returns true if an account with the given ID exists.
func (s *AccountStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[id]
	return ok
}

// Len returns the number of accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// List returns copies of every account ordered by creation time, then ID.
// The order is stable across calls.
func (s *AccountStore) List() []*domain.Account {
	s.mu.RLock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

// OwnerOf returns the account that owns a display name, if any.
func (s *AccountStore) OwnerOf(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[domain.NormalizeName(name)]
	return id, ok
}

// GetOrCreate returns the account, creating it with default balances when
// absent. When hasName is set the account ends up with that display name:
// a new account is created with it, an existing one is renamed if it
// differs. It returns domain.ErrNameConflict if another account owns the
// name; nothing is created or renamed in that case.
func (s *AccountStore) GetOrCreate(id, name string, hasName bool) (*domain.Account, bool, error) {
	if hasName {
		if err := domain.ValidateDisplayName(name); err != nil {
			return nil, false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[id]; ok {
		if !hasName || a.DisplayName == name {
			return a.Clone(), false, nil
		}
		if err := s.renameLocked(a, name); err != nil {
			return nil, false, err
		}
		s.persistLocked()
		return a.Clone(), false, nil
	}

	if hasName {
		if owner, taken := s.names[domain.NormalizeName(name)]; taken && owner != id {
			return nil, false, domain.ErrNameConflict
		}
	} else {
		name = s.freeDefaultNameLocked(id)
	}

	a := domain.NewAccount(id, name, s.now())
	s.accounts[id] = a
	s.names[domain.NormalizeName(name)] = id
	s.persistLocked()

	s.logger.Info("account created",
		slog.String("account_id", id),
		slog.String("display_name", name),
	)
	return a.Clone(), true, nil
}

// Rename changes the account's display name. It returns
// domain.ErrAccountNotFound or domain.ErrNameConflict; on conflict neither
// account changes.
func (s *AccountStore) Rename(id, name string) (*domain.Account, error) {
	if err := domain.ValidateDisplayName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if a.DisplayName == name {
		return a.Clone(), nil
	}
	if err := s.renameLocked(a, name); err != nil {
		return nil, err
	}
	s.persistLocked()
	return a.Clone(), nil
}

// renameLocked swaps the registry entry and the record in one step.
// Caller must hold s.mu.
func (s *AccountStore) renameLocked(a *domain.Account, name string) error {
	newKey := domain.NormalizeName(name)
	if owner, taken := s.names[newKey]; taken && owner != a.AccountID {
		return domain.ErrNameConflict
	}
	oldKey := domain.NormalizeName(a.DisplayName)
	if s.names[oldKey] == a.AccountID {
		delete(s.names, oldKey)
	}
	s.names[newKey] = a.AccountID
	a.DisplayName = name
	a.UpdatedAt = s.now()
	return nil
}

// Update applies fn to a copy of the account and, if fn succeeds, stores
// the copy with a recomputed fingerprint. If fn returns an error the stored
// account is left untouched and the error is returned. fn must not change
// the display name.
func (s *AccountStore) Update(id string, fn func(a *domain.Account) error) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.DisplayName = current.DisplayName
	next.Fingerprint = domain.Fingerprint(next)
	next.UpdatedAt = s.now()

	s.accounts[id] = next
	s.persistLocked()
	return next.Clone(), nil
}

// Reset restores default cash and clears holdings. With regenerateName the
// display name is replaced by a fresh default name.
func (s *AccountStore) Reset(id string, regenerateName bool) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	next := a.Clone()
	next.ResetBalances()
	next.Fingerprint = domain.Fingerprint(next)
	next.UpdatedAt = s.now()

	if regenerateName {
		delete(s.names, domain.NormalizeName(a.DisplayName))
		next.DisplayName = s.freeDefaultNameLocked(id)
		s.names[domain.NormalizeName(next.DisplayName)] = id
	}

	s.accounts[id] = next
	s.persistLocked()
	return next.Clone(), nil
}

// Delete removes the account and releases its display name.
func (s *AccountStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	key := domain.NormalizeName(a.DisplayName)
	if s.names[key] == id {
		delete(s.names, key)
	}
	delete(s.accounts, id)
	s.persistLocked()
	return nil
}

// freeDefaultNameLocked picks the first derived default name not owned by
// another account. Caller must hold s.mu.
func (s *AccountStore) freeDefaultNameLocked(id string) string {
	for attempt := 0; ; attempt++ {
		name := domain.DefaultDisplayName(id, attempt)
		if owner, taken := s.names[domain.NormalizeName(name)]; !taken || owner == id {
			return name
		}
	}
}

// persistLocked writes the whole account table. A failed write is logged;
// the in-memory table stays authoritative and the next mutation rewrites
// the full document. Caller must hold s.mu.
func (s *AccountStore) persistLocked() {
	if s.snap == nil {
		return
	}
	doc := accountsDocument{Accounts: make([]*domain.Account, 0, len(s.accounts))}
	for _, a := range s.accounts {
		doc.Accounts = append(doc.Accounts, a)
	}
	sort.Slice(doc.Accounts, func(i, j int) bool {
		return doc.Accounts[i].AccountID < doc.Accounts[j].AccountID
	})
	if err := s.snap.Save(doc); err != nil {
		s.logger.Error("persist account table failed", slog.String("error", err.Error()))
	}
}
