package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/service"
)

// defaultAccountID is used by list and balance when no id is given.
const defaultAccountID = 1

// EmptyHoldings is the list payload for an account with no holdings.
const EmptyHoldings = "no stocks owned"

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{
			Message: fmt.Sprintf("account id must be an integer, got %q", s),
		}
	}
	return id, nil
}

// optionalAccountID parses the single optional account id argument of
// list and balance.
func optionalAccountID(args string) (int64, error) {
	if args == "" {
		return defaultAccountID, nil
	}
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, &domain.ValidationError{Message: "expected at most one argument: accountId"}
	}
	return parseAccountID(fields[0])
}

// tradeArgs holds the four positional arguments of buy and sell.
type tradeArgs struct {
	symbol    string
	first     string
	second    string
	accountID int64
}

func parseTradeArgs(args, usage string) (tradeArgs, error) {
	fields := strings.Fields(args)
	if len(fields) != 4 {
		return tradeArgs{}, &domain.ValidationError{
			Message: fmt.Sprintf("expected 4 arguments: %s", usage),
		}
	}
	id, err := parseAccountID(fields[3])
	if err != nil {
		return tradeArgs{}, err
	}
	return tradeArgs{symbol: fields[0], first: fields[1], second: fields[2], accountID: id}, nil
}

// buy <symbol> <quantity> <price> <accountId>
func (e *Engine) buy(ctx context.Context, req request) Response {
	a, err := parseTradeArgs(req.args, "symbol quantity price accountId")
	if err != nil {
		return fail(req, "buy", err)
	}
	qty, err := domain.ParsePositive("quantity", a.first)
	if err != nil {
		return fail(req, "buy", err)
	}
	price, err := domain.ParsePositive("price", a.second)
	if err != nil {
		return fail(req, "buy", err)
	}

	err = e.trading.Buy(ctx, service.BuyRequest{
		Symbol:    a.symbol,
		Quantity:  qty,
		Price:     price,
		AccountID: a.accountID,
	})
	if err != nil {
		return fail(req, "buy", err)
	}
	return reply(StatusOK)
}

// sell <symbol> <price> <quantity> <accountId>
//
// Price comes before quantity, the reverse of buy. Existing clients
// depend on this order.
func (e *Engine) sell(ctx context.Context, req request) Response {
	a, err := parseTradeArgs(req.args, "symbol price quantity accountId")
	if err != nil {
		return fail(req, "sell", err)
	}
	price, err := domain.ParsePositive("price", a.first)
	if err != nil {
		return fail(req, "sell", err)
	}
	qty, err := domain.ParsePositive("quantity", a.second)
	if err != nil {
		return fail(req, "sell", err)
	}

	err = e.trading.Sell(ctx, service.SellRequest{
		Symbol:    a.symbol,
		Price:     price,
		Quantity:  qty,
		AccountID: a.accountID,
	})
	if err != nil {
		return fail(req, "sell", err)
	}
	return reply(StatusOK)
}

// list [accountId]
func (e *Engine) list(ctx context.Context, req request) Response {
	id, err := optionalAccountID(req.args)
	if err != nil {
		return fail(req, "list", err)
	}
	holdings, err := e.trading.Holdings(ctx, id)
	if err != nil {
		return fail(req, "list", err)
	}
	if len(holdings) == 0 {
		return reply(StatusOK, EmptyHoldings)
	}

	body := make([]string, len(holdings))
	for i, h := range holdings {
		body[i] = h.Symbol + " : " + domain.FormatAmount(h.Quantity)
	}
	return reply(StatusOK, body...)
}

// balance [accountId]
func (e *Engine) balance(ctx context.Context, req request) Response {
	id, err := optionalAccountID(req.args)
	if err != nil {
		return fail(req, "balance", err)
	}
	cash, err := e.trading.Balance(ctx, id)
	if err != nil {
		return fail(req, "balance", err)
	}
	return reply(StatusOK, domain.FormatAmount(cash))
}

func (e *Engine) shutdown(_ context.Context, req request) Response {
	if req.args != "" {
		return fail(req, "shutdown", &domain.ValidationError{Message: "shutdown takes no arguments"})
	}
	resp := reply(StatusOK)
	resp.Shutdown = true
	return resp
}

func (e *Engine) quit(_ context.Context, req request) Response {
	if req.args != "" {
		return fail(req, "quit", &domain.ValidationError{Message: "quit takes no arguments"})
	}
	resp := reply(StatusOK)
	resp.CloseSession = true
	return resp
}
