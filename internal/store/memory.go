package store

import (
	"context"
	"sync"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// holdingLess orders holdings by symbol, which is the enumeration order
// of ListHoldings for the in-memory store.
func holdingLess(a, b domain.Holding) bool {
	return a.Symbol < b.Symbol
}

type accountRow struct {
	account  domain.Account
	holdings *btree.BTreeG[domain.Holding]
}

// memLedger is the unsynchronized ledger state. Index i holds account id i+1.
type memLedger struct {
	rows []*accountRow
}

// clone returns a copy that can be mutated without affecting l. Holding
// trees are cloned lazily (copy-on-write).
func (l *memLedger) clone() *memLedger {
	rows := make([]*accountRow, len(l.rows))
	for i, r := range l.rows {
		rows[i] = &accountRow{
			account:  r.account,
			holdings: r.holdings.Clone(),
		}
	}
	return &memLedger{rows: rows}
}

func (l *memLedger) row(id int64) (*accountRow, error) {
	if id < 1 || id > int64(len(l.rows)) {
		return nil, domain.ErrAccountNotFound
	}
	return l.rows[id-1], nil
}

func (l *memLedger) AccountCount(_ context.Context) (int, error) {
	return len(l.rows), nil
}

func (l *memLedger) Account(_ context.Context, id int64) (*domain.Account, error) {
	r, err := l.row(id)
	if err != nil {
		return nil, err
	}
	a := r.account
	return &a, nil
}

func (l *memLedger) CreateAccount(_ context.Context, a domain.NewAccount) (int64, error) {
	id := int64(len(l.rows)) + 1
	const degree = 8
	l.rows = append(l.rows, &accountRow{
		account: domain.Account{
			ID:        id,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			UserName:  a.UserName,
			Password:  a.Password,
			Cash:      a.InitialBalance,
		},
		holdings: btree.NewG[domain.Holding](degree, holdingLess),
	})
	return id, nil
}

func (l *memLedger) CashBalance(_ context.Context, id int64) (decimal.Decimal, error) {
	r, err := l.row(id)
	if err != nil {
		return decimal.Zero, err
	}
	return r.account.Cash, nil
}

func (l *memLedger) SetCashBalance(_ context.Context, id int64, cash decimal.Decimal) error {
	r, err := l.row(id)
	if err != nil {
		return err
	}
	r.account.Cash = cash
	return nil
}

func (l *memLedger) HasHolding(_ context.Context, id int64, symbol string) (bool, error) {
	r, err := l.row(id)
	if err != nil {
		return false, err
	}
	return r.holdings.Has(domain.Holding{Symbol: symbol}), nil
}

func (l *memLedger) HoldingQuantity(_ context.Context, id int64, symbol string) (decimal.Decimal, error) {
	r, err := l.row(id)
	if err != nil {
		return decimal.Zero, err
	}
	h, ok := r.holdings.Get(domain.Holding{Symbol: symbol})
	if !ok {
		return decimal.Zero, domain.ErrHoldingNotFound
	}
	return h.Quantity, nil
}

func (l *memLedger) SetHoldingQuantity(_ context.Context, id int64, symbol string, qty decimal.Decimal) error {
	r, err := l.row(id)
	if err != nil {
		return err
	}
	key := domain.Holding{Symbol: symbol}
	if !r.holdings.Has(key) {
		return domain.ErrHoldingNotFound
	}
	if qty.IsZero() {
		r.holdings.Delete(key)
		return nil
	}
	r.holdings.ReplaceOrInsert(domain.Holding{Symbol: symbol, Quantity: qty})
	return nil
}

func (l *memLedger) CreateHolding(_ context.Context, id int64, symbol string, qty decimal.Decimal) error {
	r, err := l.row(id)
	if err != nil {
		return err
	}
	if r.holdings.Has(domain.Holding{Symbol: symbol}) {
		return domain.ErrHoldingExists
	}
	r.holdings.ReplaceOrInsert(domain.Holding{Symbol: symbol, Quantity: qty})
	return nil
}

func (l *memLedger) ListHoldings(_ context.Context, id int64) ([]domain.Holding, error) {
	r, err := l.row(id)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Holding, 0, r.holdings.Len())
	r.holdings.Ascend(func(h domain.Holding) bool {
		result = append(result, h)
		return true
	})
	return result, nil
}

// MemoryStore is a thread-safe in-memory Store. Holdings are kept in a
// B-tree per account so listings come back in symbol order.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memLedger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memLedger{},
	}
}

func (s *MemoryStore) AccountCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccountCount(ctx)
}

func (s *MemoryStore) Account(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Account(ctx, id)
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a domain.NewAccount) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateAccount(ctx, a)
}

func (s *MemoryStore) CashBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CashBalance(ctx, id)
}

func (s *MemoryStore) SetCashBalance(ctx context.Context, id int64, cash decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetCashBalance(ctx, id, cash)
}

func (s *MemoryStore) HasHolding(ctx context.Context, id int64, symbol string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HasHolding(ctx, id, symbol)
}

func (s *MemoryStore) HoldingQuantity(ctx context.Context, id int64, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HoldingQuantity(ctx, id, symbol)
}

func (s *MemoryStore) SetHoldingQuantity(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetHoldingQuantity(ctx, id, symbol, qty)
}

func (s *MemoryStore) CreateHolding(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateHolding(ctx, id, symbol, qty)
}

func (s *MemoryStore) ListHoldings(ctx context.Context, id int64) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListHoldings(ctx, id)
}

// Atomic runs fn against a copy of the ledger under the write lock and
// swaps the copy in only if fn succeeds.
func (s *MemoryStore) Atomic(_ context.Context, fn func(Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
