package store

import (
	"context"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/shopspring/decimal"
)

// Ledger is the set of account and holding operations the trading
// commands consume. Every method fails with a wrapped store error on
// underlying I/O failure. Methods that take an account id return
// domain.ErrAccountNotFound for ids outside 1..AccountCount.
type Ledger interface {
	AccountCount(ctx context.Context) (int, error)
	Account(ctx context.Context, id int64) (*domain.Account, error)
	CreateAccount(ctx context.Context, a domain.NewAccount) (int64, error)

	CashBalance(ctx context.Context, id int64) (decimal.Decimal, error)
	SetCashBalance(ctx context.Context, id int64, cash decimal.Decimal) error

	HasHolding(ctx context.Context, id int64, symbol string) (bool, error)
	HoldingQuantity(ctx context.Context, id int64, symbol string) (decimal.Decimal, error)
	// SetHoldingQuantity updates an existing holding. Setting zero deletes it.
	SetHoldingQuantity(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error
	// CreateHolding returns domain.ErrHoldingExists if (id, symbol) is already held.
	CreateHolding(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error
	ListHoldings(ctx context.Context, id int64) ([]domain.Holding, error)
}

// Store is a Ledger that can run a group of operations atomically.
type Store interface {
	Ledger

	// Atomic runs fn against a Ledger view whose changes are committed only
	// if fn returns nil. Atomic calls are serialized, so a read-check-write
	// inside fn cannot interleave with another command's.
	Atomic(ctx context.Context, fn func(Ledger) error) error

	Close() error
}

// Seed creates accounts when the ledger is empty. It returns the number
// of accounts created.
func Seed(ctx context.Context, s Store, accounts []domain.NewAccount) (int, error) {
	created := 0
	err := s.Atomic(ctx, func(l Ledger) error {
		n, err := l.AccountCount(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, a := range accounts {
			if _, err := l.CreateAccount(ctx, a); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
