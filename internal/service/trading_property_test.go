package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/store"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var propSymbols = []string{"AAPL", "GOOG", "MSFT"}

// genAmount draws a positive two-decimal amount in [0.01, max].
func genAmount(maxCents int64, label string) *rapid.Generator[decimal.Decimal] {
	return rapid.Custom(func(t *rapid.T) decimal.Decimal {
		return decimal.New(rapid.Int64Range(1, maxCents).Draw(t, label), -2)
	})
}

func assertLedgerInvariants(t *rapid.T, s store.Store) {
	ctx := context.Background()
	n, _ := s.AccountCount(ctx)
	for id := int64(1); id <= int64(n); id++ {
		cash, err := s.CashBalance(ctx, id)
		if err != nil {
			t.Fatalf("CashBalance(%d): %v", id, err)
		}
		if cash.IsNegative() {
			t.Fatalf("account %d cash went negative: %s", id, cash)
		}
		holdings, err := s.ListHoldings(ctx, id)
		if err != nil {
			t.Fatalf("ListHoldings(%d): %v", id, err)
		}
		for _, h := range holdings {
			if !h.Quantity.IsPositive() {
				t.Fatalf("account %d holds non-positive %s: %s", id, h.Symbol, h.Quantity)
			}
		}
	}
}

func TestProperty_LedgerNeverGoesNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.NewMemoryStore()
		ctx := context.Background()
		_, _ = store.Seed(ctx, s, domain.DemoAccounts())
		svc := NewTradingService(s)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			symbol := rapid.SampledFrom(propSymbols).Draw(t, "symbol")
			account := rapid.Int64Range(0, 4).Draw(t, "account")
			qty := genAmount(5_000, "qty").Draw(t, "quantity")
			price := genAmount(50_000, "price").Draw(t, "price")

			var err error
			if rapid.Bool().Draw(t, "buy") {
				err = svc.Buy(ctx, BuyRequest{Symbol: symbol, Quantity: qty, Price: price, AccountID: account})
			} else {
				err = svc.Sell(ctx, SellRequest{Symbol: symbol, Price: price, Quantity: qty, AccountID: account})
			}
			if err != nil &&
				!errors.Is(err, domain.ErrAccountNotFound) &&
				!errors.Is(err, domain.ErrInsufficientBalance) &&
				!errors.Is(err, domain.ErrInsufficientHoldings) {
				t.Fatalf("unexpected error: %v", err)
			}
			assertLedgerInvariants(t, s)
		}
	})
}

func TestProperty_BuySellRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.NewMemoryStore()
		ctx := context.Background()
		_, _ = store.Seed(ctx, s, domain.DemoAccounts())
		svc := NewTradingService(s)

		account := rapid.Int64Range(1, 3).Draw(t, "account")
		symbol := rapid.SampledFrom(propSymbols).Draw(t, "symbol")
		qty := genAmount(1_000, "qty").Draw(t, "quantity")
		price := genAmount(10_000, "price").Draw(t, "price")

		before, _ := svc.Balance(ctx, account)

		err := svc.Buy(ctx, BuyRequest{Symbol: symbol, Quantity: qty, Price: price, AccountID: account})
		if errors.Is(err, domain.ErrInsufficientBalance) {
			t.Skip("cost exceeds balance")
		}
		if err != nil {
			t.Fatalf("buy: %v", err)
		}
		if err := svc.Sell(ctx, SellRequest{Symbol: symbol, Price: price, Quantity: qty, AccountID: account}); err != nil {
			t.Fatalf("sell: %v", err)
		}

		after, _ := svc.Balance(ctx, account)
		if domain.FormatAmount(after) != domain.FormatAmount(before) {
			t.Fatalf("round trip changed balance: %s → %s", before, after)
		}
		held, _ := s.HasHolding(ctx, account, symbol)
		if held {
			t.Fatal("round trip left a holding behind")
		}
	})
}

func TestProperty_RejectedCommandsDoNotMutate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.NewMemoryStore()
		ctx := context.Background()
		_, _ = store.Seed(ctx, s, domain.DemoAccounts())
		svc := NewTradingService(s)

		account := rapid.Int64Range(1, 3).Draw(t, "account")
		// Always more than the 1000.00 starting balance.
		qty := decimal.NewFromInt(rapid.Int64Range(11, 100).Draw(t, "quantity"))
		price := decimal.NewFromInt(100)

		err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: qty, Price: price, AccountID: account})
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}
		err = svc.Sell(ctx, SellRequest{Symbol: "AAPL", Price: price, Quantity: qty, AccountID: account})
		if !errors.Is(err, domain.ErrInsufficientHoldings) {
			t.Fatalf("got %v, want ErrInsufficientHoldings", err)
		}

		cash, _ := s.CashBalance(ctx, account)
		if !cash.Equal(decimal.NewFromInt(1000)) {
			t.Fatalf("cash mutated to %s", cash)
		}
	})
}

func TestConcurrentBuys_NeverOverspend(t *testing.T) {
	svc, s := newTestTradingService(t)
	ctx := context.Background()

	// 50 concurrent buys of 100.00 against a 1000.00 balance: exactly 10 succeed.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Buy(ctx, BuyRequest{Symbol: "AAPL", Quantity: dec("1"), Price: dec("100"), AccountID: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("succeeded = %d, want 10", succeeded)
	}
	cash, _ := s.CashBalance(ctx, 1)
	if !cash.IsZero() {
		t.Errorf("cash = %s, want 0", cash)
	}
	qty, _ := s.HoldingQuantity(ctx, 1, "AAPL")
	if !qty.Equal(dec("10")) {
		t.Errorf("AAPL quantity = %s, want 10", qty)
	}
}
