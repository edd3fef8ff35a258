package protocol

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/service"
)

// request carries one parsed command invocation to its handler.
type request struct {
	args string // "" when absent
	log  *slog.Logger
}

type command struct {
	name string
	run  func(e *Engine, ctx context.Context, req request) Response
}

// commands is matched in order; the first entry whose name is a
// case-insensitive prefix of the command token wins.
var commands = []command{
	{"buy", (*Engine).buy},
	{"sell", (*Engine).sell},
	{"list", (*Engine).list},
	{"balance", (*Engine).balance},
	{"shutdown", (*Engine).shutdown},
	{"quit", (*Engine).quit},
}

func lookup(token string) (command, bool) {
	for _, c := range commands {
		if len(token) >= len(c.name) && strings.EqualFold(token[:len(c.name)], c.name) {
			return c, true
		}
	}
	return command{}, false
}

// Engine dispatches command lines to their handlers.
type Engine struct {
	trading *service.TradingService
}

// NewEngine creates a new Engine.
func NewEngine(trading *service.TradingService) *Engine {
	return &Engine{
		trading: trading,
	}
}

// Handle parses one command line and returns exactly one response. log
// receives the command name and any store failure.
func (e *Engine) Handle(ctx context.Context, line string, log *slog.Logger) Response {
	token, args := Tokenize(line)
	cmd, ok := lookup(token)
	if !ok {
		log.Debug("invalid command", slog.String("token", token))
		return reply(StatusInvalidCommand)
	}

	log.Info("client ran command", slog.String("command", cmd.name))
	return cmd.run(e, ctx, request{args: args, log: log})
}

// fail maps a handler error to its status code, in the manner of an HTTP
// error mapper. Anything unrecognised is a store failure: it is logged
// and aborts only this command.
func fail(req request, command string, err error) Response {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		req.log.Debug("rejected command",
			slog.String("command", command),
			slog.String("reason", validationErr.Message),
		)
		return reply(StatusFormatError)
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return reply(StatusUserNotFound)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return reply(StatusInsufficientBalance)
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return reply(StatusInsufficientStock)
	default:
		req.log.Error("command aborted",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		return reply(StatusServerError)
	}
}
