package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/store"
	"github.com/shopspring/decimal"
)

// BuyRequest represents the input for a buy.
type BuyRequest struct {
	Symbol    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	AccountID int64
}

// SellRequest represents the input for a sell.
type SellRequest struct {
	Symbol    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	AccountID int64
}

// AccountSnapshot is a consistent view of one account and its holdings.
type AccountSnapshot struct {
	Account  domain.Account
	Holdings []domain.Holding
}

// TradingService applies buy and sell commands to the ledger and answers
// balance and holdings queries. Every mutation runs inside store.Atomic,
// so cash and holdings never go negative and a rejected command leaves
// the ledger untouched.
type TradingService struct {
	store store.Store
}

// NewTradingService creates a new TradingService.
func NewTradingService(store store.Store) *TradingService {
	return &TradingService{
		store: store,
	}
}

func validateTrade(symbol string, quantity, price decimal.Decimal) error {
	if !domain.ValidSymbol(symbol) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("symbol must match ^[A-Za-z0-9.]{1,16}$, got %q", symbol),
		}
	}
	if !quantity.IsPositive() {
		return &domain.ValidationError{Message: "quantity must be > 0"}
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be > 0"}
	}
	return nil
}

// checkAccount resolves id against 1..AccountCount.
func checkAccount(ctx context.Context, l store.Ledger, id int64) error {
	n, err := l.AccountCount(ctx)
	if err != nil {
		return err
	}
	if id < 1 || id > int64(n) {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Buy debits quantity × price from the account and adds quantity to its
// holding in symbol, creating the holding on first purchase.
func (s *TradingService) Buy(ctx context.Context, req BuyRequest) error {
	if err := validateTrade(req.Symbol, req.Quantity, req.Price); err != nil {
		return err
	}

	return s.store.Atomic(ctx, func(l store.Ledger) error {
		if err := checkAccount(ctx, l, req.AccountID); err != nil {
			return err
		}

		cost := req.Quantity.Mul(req.Price)
		cash, err := l.CashBalance(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(cash) {
			return domain.ErrInsufficientBalance
		}
		if err := l.SetCashBalance(ctx, req.AccountID, cash.Sub(cost)); err != nil {
			return err
		}

		held, err := l.HasHolding(ctx, req.AccountID, req.Symbol)
		if err != nil {
			return err
		}
		if !held {
			return l.CreateHolding(ctx, req.AccountID, req.Symbol, req.Quantity)
		}
		qty, err := l.HoldingQuantity(ctx, req.AccountID, req.Symbol)
		if err != nil {
			return err
		}
		return l.SetHoldingQuantity(ctx, req.AccountID, req.Symbol, qty.Add(req.Quantity))
	})
}

// Sell removes quantity from the account's holding in symbol and credits
// quantity × price. A holding that reaches zero is deleted.
func (s *TradingService) Sell(ctx context.Context, req SellRequest) error {
	if err := validateTrade(req.Symbol, req.Quantity, req.Price); err != nil {
		return err
	}

	return s.store.Atomic(ctx, func(l store.Ledger) error {
		if err := checkAccount(ctx, l, req.AccountID); err != nil {
			return err
		}

		held, err := l.HasHolding(ctx, req.AccountID, req.Symbol)
		if err != nil {
			return err
		}
		if !held {
			return domain.ErrInsufficientHoldings
		}
		qty, err := l.HoldingQuantity(ctx, req.AccountID, req.Symbol)
		if err != nil {
			return err
		}
		if qty.LessThan(req.Quantity) {
			return domain.ErrInsufficientHoldings
		}
		if err := l.SetHoldingQuantity(ctx, req.AccountID, req.Symbol, qty.Sub(req.Quantity)); err != nil {
			return err
		}

		cash, err := l.CashBalance(ctx, req.AccountID)
		if err != nil {
			return err
		}
		return l.SetCashBalance(ctx, req.AccountID, cash.Add(req.Quantity.Mul(req.Price)))
	})
}

// Balance returns the account's cash balance.
func (s *TradingService) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if err := checkAccount(ctx, s.store, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.store.CashBalance(ctx, accountID)
}

// Holdings returns every holding of the account in the store's natural
// enumeration order.
func (s *TradingService) Holdings(ctx context.Context, accountID int64) ([]domain.Holding, error) {
	if err := checkAccount(ctx, s.store, accountID); err != nil {
		return nil, err
	}
	return s.store.ListHoldings(ctx, accountID)
}

// Snapshot reads an account and its holdings in one atomic unit.
func (s *TradingService) Snapshot(ctx context.Context, accountID int64) (*AccountSnapshot, error) {
	var snap AccountSnapshot
	err := s.store.Atomic(ctx, func(l store.Ledger) error {
		if err := checkAccount(ctx, l, accountID); err != nil {
			return err
		}
		a, err := l.Account(ctx, accountID)
		if err != nil {
			return err
		}
		holdings, err := l.ListHoldings(ctx, accountID)
		if err != nil {
			return err
		}
		snap.Account = *a
		snap.Holdings = holdings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
