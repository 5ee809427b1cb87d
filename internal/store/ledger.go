package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/papertrader/internal/domain"
)

// LedgerSink durably records transactions.
type LedgerSink interface {
	Load(ctx context.Context) ([]domain.Transaction, error)
	Append(ctx context.Context, tx domain.Transaction) error
}

// Ledger is the append-only transaction log. Records are never rewritten
// or removed; their order is the order in which Append completed.
type Ledger struct {
	mu        sync.RWMutex
	records   []domain.Transaction
	byAccount map[string][]int // account_id → indexes into records
	sink      LedgerSink
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedger creates a ledger and replays the sink's records. A sink that
// fails to load yields an empty ledger. sink may be nil.
func NewLedger(ctx context.Context, sink LedgerSink, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		byAccount: make(map[string][]int),
		sink:      sink,
		logger:    logger.With("component", "ledger"),
		now:       time.Now,
	}
	if sink != nil {
		records, err := sink.Load(ctx)
		if err != nil {
			l.logger.Warn("transaction log unreadable, starting empty", slog.String("error", err.Error()))
		}
		for _, tx := range records {
			l.index(tx)
		}
	}
	return l
}

func (l *Ledger) index(tx domain.Transaction) {
	l.records = append(l.records, tx)
	l.byAccount[tx.AccountID] = append(l.byAccount[tx.AccountID], len(l.records)-1)
}

// Append assigns an ID and timestamp when missing, records tx, and writes
// it through to the sink. A sink failure is logged; the record stays in
// the in-memory log.
func (l *Ledger) Append(ctx context.Context, tx domain.Transaction) domain.Transaction {
	if tx.TransactionID == "" {
		tx.TransactionID = uuid.New().String()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.index(tx)
	if l.sink != nil {
		if err := l.sink.Append(ctx, tx); err != nil {
			l.logger.Error("persist transaction failed",
				slog.String("transaction_id", tx.TransactionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return tx
}

// ListByAccount returns the account's transactions newest first. limit <= 0
// returns all of them.
func (l *Ledger) ListByAccount(accountID string, limit int) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byAccount[accountID]
	n := len(idx)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Transaction, 0, n)
	for i := len(idx) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.records[idx[i]])
	}
	return out
}

// All returns every transaction in append order.
func (l *Ledger) All() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Transaction, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// transactionsDocument is the persisted shape of the JSON transaction log.
type transactionsDocument struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// JSONLedgerSink stores the whole transaction log as one JSON document,
// rewritten on every append.
type JSONLedgerSink struct {
	mu      sync.Mutex
	snap    Snapshotter
	records []domain.Transaction
}

// NewJSONLedgerSink returns a sink writing through snap.
func NewJSONLedgerSink(snap Snapshotter) *JSONLedgerSink {
	return &JSONLedgerSink{snap: snap}
}

// Load reads the stored log.
func (s *JSONLedgerSink) Load(_ context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc transactionsDocument
	if _, err := s.snap.Load(&doc); err != nil {
		return nil, err
	}
	s.records = doc.Transactions
	out := make([]domain.Transaction, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Append adds tx and rewrites the document.
func (s *JSONLedgerSink) Append(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, tx)
	return s.snap.Save(transactionsDocument{Transactions: s.records})
}
