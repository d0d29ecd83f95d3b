package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/athplan/bridge/internal/membership"
)

// maxInFlight bounds concurrent provider calls during a fan-out so a large
// group does not open one connection per member.
const maxInFlight = 8

// Store lists the recipients of a group broadcast.
type Store interface {
	ListGroupMembers(ctx context.Context, group, excludePhone string) ([]membership.User, error)
}

// Sender delivers one outbound message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Result reports how a fan-out went. Attempted counts recipients resolved
// from the store; Delivered counts sends the provider accepted.
type Result struct {
	Attempted int
	Delivered int
}

// Engine fans one message out to every member of a group.
type Engine struct {
	store  Store
	sender Sender
	logger *slog.Logger
}

func NewEngine(log *slog.Logger, store Store, sender Sender) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:  store,
		sender: sender,
		logger: log.With(slog.String("service", "broadcast")),
	}
}

// Broadcast delivers message to every member of group except excludePhone,
// normally the author. Recipient resolution failures abort the whole
// broadcast; individual delivery failures are logged and counted but do
// not stop the remaining sends.
func (e *Engine) Broadcast(ctx context.Context, group, message, excludePhone string) (Result, error) {
	members, err := e.store.ListGroupMembers(ctx, group, excludePhone)
	if err != nil {
		return Result{}, fmt.Errorf("resolve broadcast recipients: %w", err)
	}
	if len(members) == 0 {
		e.logger.Info("no recipients for broadcast", slog.String("group", group))
		return Result{}, nil
	}

	var delivered atomic.Int64
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(maxInFlight)

	for _, member := range members {
		to := member.PhoneNumber
		grp.Go(func() error {
			if err := e.sender.Send(grpCtx, to, message); err != nil {
				e.logger.Warn("broadcast delivery failed",
					slog.String("group", group),
					slog.String("to", to),
					slog.String("error", err.Error()))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}

	// workers never return errors, so this only waits
	_ = grp.Wait()

	result := Result{Attempted: len(members), Delivered: int(delivered.Load())}
	e.logger.Info("broadcast complete",
		slog.String("group", group),
		slog.Int("attempted", result.Attempted),
		slog.Int("delivered", result.Delivered))
	return result, nil
}
