package service

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/store"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestTradingService returns a service over an in-memory store seeded
// with the three demo accounts (1000.00 each).
func newTestTradingService(t *testing.T) (*TradingService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	if _, err := store.Seed(context.Background(), s, domain.DemoAccounts()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewTradingService(s), s
}

func TestBuy_Success_NewHolding(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("2"), Price: dec("10"), AccountID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("980")) {
		t.Errorf("cash = %s, want 980", cash)
	}
	qty, _ := s.HoldingQuantity(ctx, 1, "AAPL")
	if !qty.Equal(dec("2")) {
		t.Errorf("AAPL quantity = %s, want 2", qty)
	}
}

func TestBuy_Success_IncrementsExistingHolding(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	_ = svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("2"), Price: dec("10"), AccountID: 1})
	if err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("1.5"), Price: dec("20"), AccountID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qty, _ := s.HoldingQuantity(ctx, 1, "AAPL")
	if !qty.Equal(dec("3.5")) {
		t.Errorf("AAPL quantity = %s, want 3.5", qty)
	}
	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("950")) {
		t.Errorf("cash = %s, want 950", cash)
	}
}

func TestBuy_ExactBalanceAllowed(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	if err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("10"), Price: dec("100"), AccountID: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cash, _ := s.CashBalance(ctx, 2)
	if !cash.IsZero() {
		t.Errorf("cash = %s, want 0", cash)
	}
}

func TestBuy_InsufficientBalance(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("101"), Price: dec("10"), AccountID: 1})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("got error %v, want ErrInsufficientBalance", err)
	}

	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("1000")) {
		t.Errorf("cash mutated to %s", cash)
	}
	held, _ := s.HasHolding(ctx, 1, "AAPL")
	if held {
		t.Error("holding created despite rejection")
	}
}

func TestBuy_AccountNotFound(t *testing.T) {
	svc, _ := newTestTradingService(t)

	for _, id := range []int64{0, -1, 4, 999} {
		err := svc.Buy(context.Background(), BuyRequest{Symbol: "AAPL", Quantity: dec("1"), Price: dec("10"), AccountID: id})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("account %d: got error %v, want ErrAccountNotFound", id, err)
		}
	}
}

func TestBuy_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  BuyRequest
	}{
		{"zero quantity", BuyRequest{Symbol: "AAPL", Quantity: decimal.Zero, Price: dec("10"), AccountID: 1}},
		{"negative price", BuyRequest{Symbol: "AAPL", Quantity: dec("1"), Price: dec("-1"), AccountID: 1}},
		{"bad symbol", BuyRequest{Symbol: "AA PL", Quantity: dec("1"), Price: dec("1"), AccountID: 1}},
		{"validation before account check", BuyRequest{Symbol: "AAPL", Quantity: dec("-1"), Price: dec("1"), AccountID: 999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestTradingService(t)
			err := svc.Buy(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected *ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestSell_Success(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()
	_ = svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("5"), Price: dec("10"), AccountID: 1})

	if err := svc.Sell(ctx, SellRequest{Symbol: "AAPL", Price: dec("12"), Quantity: dec("2"), AccountID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qty, _ := s.HoldingQuantity(ctx, 1, "AAPL")
	if !qty.Equal(dec("3")) {
		t.Errorf("AAPL quantity = %s, want 3", qty)
	}
	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("974")) {
		t.Errorf("cash = %s, want 974", cash)
	}
}

func TestSell_AllSharesDeletesHolding(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()
	_ = svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("2"), Price: dec("10"), AccountID: 1})

	if err := svc.Sell(ctx, SellRequest{Symbol: "AAPL", Price: dec("10"), Quantity: dec("2"), AccountID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	held, _ := s.HasHolding(ctx, 1, "AAPL")
	if held {
		t.Error("zero holding should be deleted")
	}
	holdings, _ := svc.Holdings(ctx, 1)
	if len(holdings) != 0 {
		t.Errorf("Holdings = %v, want empty", holdings)
	}
}

func TestSell_NoHolding(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	err := svc.Sell(ctx, SellRequest{Symbol: "AAPL", Price: dec("10"), Quantity: dec("1"), AccountID: 1})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("got error %v, want ErrInsufficientHoldings", err)
	}
	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("1000")) {
		t.Errorf("cash mutated to %s", cash)
	}
}

func TestSell_InsufficientQuantity(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()
	_ = svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("2"), Price: dec("10"), AccountID: 1})

	// sell AAPL 10 100 1: price=10, quantity=100.
	err := svc.Sell(ctx, SellRequest{Symbol: "AAPL", Price: dec("10"), Quantity: dec("100"), AccountID: 1})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("got error %v, want ErrInsufficientHoldings", err)
	}

	qty, _ := s.HoldingQuantity(ctx, 1, "AAPL")
	if !qty.Equal(dec("2")) {
		t.Errorf("AAPL quantity mutated to %s", qty)
	}
	cash, _ := s.CashBalance(ctx, 1)
	if !cash.Equal(dec("980")) {
		t.Errorf("cash mutated to %s", cash)
	}
}

func TestSell_AccountNotFound(t *testing.T) {
	svc, _ := newTestTradingService(t)
	err := svc.Sell(context.Background(), SellRequest{Symbol: "AAPL", Price: dec("10"), Quantity: dec("1"), AccountID: 4})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("got error %v, want ErrAccountNotFound", err)
	}
}

func TestBalance(t *testing.T) {
	svc, _ := newTestTradingService(t)
	ctx := context.Background()

	cash, err := svc.Balance(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cash.Equal(dec("1000")) {
		t.Errorf("balance = %s, want 1000", cash)
	}

	if _, err := svc.Balance(ctx, 4); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("got error %v, want ErrAccountNotFound", err)
	}
}

func TestHoldings_Empty(t *testing.T) {
	svc, _ := newTestTradingService(t)
	holdings, err := svc.Holdings(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 0 {
		t.Errorf("Holdings = %v, want empty", holdings)
	}
}

func TestSnapshot(t *testing.T) {
	svc, _ := newTestTradingService(t)
	ctx := context.Background()
	_ = svc.Buy(ctx, BuyRequest{Symbol: "GOOG", Quantity: dec("1"), Price: dec("100"), AccountID: 2})

	snap, err := svc.Snapshot(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Account.ID != 2 || snap.Account.UserName != "alan" {
		t.Errorf("account = %+v", snap.Account)
	}
	if !snap.Account.Cash.Equal(dec("900")) {
		t.Errorf("cash = %s, want 900", snap.Account.Cash)
	}
	if len(snap.Holdings) != 1 || snap.Holdings[0].Symbol != "GOOG" {
		t.Errorf("holdings = %v", snap.Holdings)
	}

	if _, err := svc.Snapshot(ctx, 99); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("got error %v, want ErrAccountNotFound", err)
	}
}
