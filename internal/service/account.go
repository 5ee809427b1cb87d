package service

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
	"github.com/efreitasn/papertrader/internal/store"
)

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// MissingNamePolicy decides what happens when an existing account is
// accessed without a display name.
type MissingNamePolicy string

const (
	// MissingNameDelete deletes the account and reports an invalid session,
	// forcing the caller to register again.
	MissingNameDelete MissingNamePolicy = "delete"
	// MissingNameKeep returns the account unchanged.
	MissingNameKeep MissingNamePolicy = "keep"
)

// AccountService handles account lifecycle and read operations.
type AccountService struct {
	accounts *store.AccountStore
	ledger   *store.Ledger
	book     *engine.OrderBook
	trader   *engine.Trader
	policy   MissingNamePolicy
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	accounts *store.AccountStore,
	ledger *store.Ledger,
	book *engine.OrderBook,
	trader *engine.Trader,
	policy MissingNamePolicy,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = MissingNameDelete
	}
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		book:     book,
		trader:   trader,
		policy:   policy,
		logger:   logger.With("component", "account-service"),
	}
}

func validateAccountID(id string) error {
	if !accountIDRegex.MatchString(id) {
		return &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	return nil
}

// GetOrCreate returns the account, creating it on first access. rawName
// is the caller's display name; nil, blank, "null" and "undefined" mean
// no name. An existing account is renamed when the name differs. Under the
// delete policy, an existing account accessed without a name is deleted
// and domain.ErrInvalidSession is returned.
func (s *AccountService) GetOrCreate(ctx context.Context, accountID string, rawName *string) (*domain.Account, bool, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, false, err
	}
	name, hasName := domain.ParseDisplayName(rawName)

	if !hasName && s.policy == MissingNameDelete && s.accounts.Exists(accountID) {
		if err := s.trader.DeleteAccount(ctx, accountID); err != nil {
			return nil, false, err
		}
		s.logger.Warn("account accessed without display name, session invalidated",
			slog.String("account_id", accountID),
		)
		return nil, false, domain.ErrInvalidSession
	}
	return s.accounts.GetOrCreate(accountID, name, hasName)
}

// Get returns the account.
func (s *AccountService) Get(accountID string) (*domain.Account, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	return s.accounts.Get(accountID)
}

// Rename changes the account's display name.
func (s *AccountService) Rename(accountID string, rawName *string) (*domain.Account, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	name, ok := domain.ParseDisplayName(rawName)
	if !ok {
		return nil, &domain.ValidationError{Message: "display_name is required"}
	}
	return s.accounts.Rename(accountID, name)
}

// Reset restores default balances and purges the account's pending orders.
func (s *AccountService) Reset(ctx context.Context, accountID string, regenerateName bool) (*domain.Account, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	return s.trader.ResetAccount(ctx, accountID, regenerateName)
}

// ListLimitOrders returns the account's pending orders in placement order.
func (s *AccountService) ListLimitOrders(accountID string) ([]domain.LimitOrder, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	orders := s.book.ListByOwner(accountID)
	if orders == nil {
		orders = []domain.LimitOrder{}
	}
	return orders, nil
}

// ListTransactions returns up to limit of the account's transactions,
// newest first. limit <= 0 returns all of them.
func (s *AccountService) ListTransactions(accountID string, limit int) ([]domain.Transaction, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.ledger.ListByAccount(accountID, limit), nil
}
