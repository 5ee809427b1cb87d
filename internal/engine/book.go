package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

// limitOrdersDocument is the persisted shape of the pending set.
type limitOrdersDocument struct {
	Orders []*domain.LimitOrder `json:"orders"`
}

// seqLess orders the pending set by insertion sequence.
func seqLess(a, b *domain.LimitOrder) bool {
	return a.Seq < b.Seq
}

// OrderBook holds the pending limit orders in a B-tree keyed by insertion
// sequence, with a secondary index for O(log n) removal by order ID. Every
// mutation writes the whole set through to the snapshotter.
type OrderBook struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[*domain.LimitOrder]
	index   map[string]*domain.LimitOrder // order_id → order
	nextSeq uint64
	snap    store.Snapshotter
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrderBook creates a pending set and restores any persisted orders.
// snap may be nil for a purely in-memory book.
func NewOrderBook(snap store.Snapshotter, metrics *Metrics, logger *slog.Logger) *OrderBook {
	const degree = 32
	if logger == nil {
		logger = slog.Default()
	}
	b := &OrderBook{
		tree:    btree.NewG[*domain.LimitOrder](degree, seqLess),
		index:   make(map[string]*domain.LimitOrder),
		nextSeq: 1,
		snap:    snap,
		metrics: metrics,
		logger:  logger.With("component", "order-book"),
		now:     time.Now,
	}
	b.load()
	return b
}

func (b *OrderBook) load() {
	if b.snap == nil {
		return
	}
	var doc limitOrdersDocument
	found, err := b.snap.Load(&doc)
	if err != nil {
		b.logger.Warn("pending orders unreadable, starting empty", slog.String("error", err.Error()))
		return
	}
	if !found {
		return
	}

	// The document is written in insertion order; an out-of-order or
	// missing sequence is renumbered past the previous order.
	for _, o := range doc.Orders {
		if o == nil || o.OrderID == "" {
			continue
		}
		if _, dup := b.index[o.OrderID]; dup {
			continue
		}
		if o.Seq < b.nextSeq {
			o.Seq = b.nextSeq
		}
		b.nextSeq = o.Seq + 1
		b.tree.ReplaceOrInsert(o)
		b.index[o.OrderID] = o
	}
	b.metrics.SetPendingOrders(len(b.index))
	b.logger.Info("pending orders restored", slog.Int("orders", len(b.index)))
}

// Add inserts a copy of o at the end of the insertion order, assigning its
// ID, creation time and sequence. It returns the stored copy.
func (b *OrderBook) Add(o domain.LimitOrder) domain.LimitOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.OrderID == "" {
		o.OrderID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = b.now()
	}
	o.Seq = b.nextSeq
	b.nextSeq++

	stored := o
	b.tree.ReplaceOrInsert(&stored)
	b.index[o.OrderID] = &stored
	b.persistLocked()
	return o
}

// Remove deletes an order by ID. It returns false if the order is not
// pending, so exactly one caller wins a removal race.
func (b *OrderBook) Remove(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.index[orderID]
	if !ok {
		return false
	}
	delete(b.index, orderID)
	b.tree.Delete(o)
	b.persistLocked()
	return true
}

// RemoveByOwner deletes every order owned by ownerID and returns them in
// insertion order.
func (b *OrderBook) RemoveByOwner(ownerID string) []domain.LimitOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []*domain.LimitOrder
	b.tree.Ascend(func(o *domain.LimitOrder) bool {
		if o.OwnerID == ownerID {
			removed = append(removed, o)
		}
		return true
	})
	if len(removed) == 0 {
		return nil
	}

	out := make([]domain.LimitOrder, 0, len(removed))
	for _, o := range removed {
		b.tree.Delete(o)
		delete(b.index, o.OrderID)
		out = append(out, *o)
	}
	b.persistLocked()
	return out
}

// Pending returns a snapshot of the pending set, newest first.
func (b *OrderBook) Pending() []domain.LimitOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.LimitOrder, 0, b.tree.Len())
	b.tree.Descend(func(o *domain.LimitOrder) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// ListByOwner returns the owner's pending orders in insertion order.
func (b *OrderBook) ListByOwner(ownerID string) []domain.LimitOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []domain.LimitOrder
	b.tree.Ascend(func(o *domain.LimitOrder) bool {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
		return true
	})
	return out
}

// Contains reports whether the order is still pending.
func (b *OrderBook) Contains(orderID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.index[orderID]
	return ok
}

// Len returns the number of pending orders.
func (b *OrderBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Len()
}

// persistLocked writes the pending set in insertion order. Caller must hold
// b.mu.
func (b *OrderBook) persistLocked() {
	b.metrics.SetPendingOrders(b.tree.Len())
	if b.snap == nil {
		return
	}
	doc := limitOrdersDocument{Orders: make([]*domain.LimitOrder, 0, b.tree.Len())}
	b.tree.Ascend(func(o *domain.LimitOrder) bool {
		doc.Orders = append(doc.Orders, o)
		return true
	})
	if err := b.snap.Save(doc); err != nil {
		b.logger.Error("persist pending orders failed", slog.String("error", err.Error()))
	}
}
