package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/athplan/bridge/internal/membership"
)

// Store is the slice of the membership store the gate reads. Absent
// records come back as (nil, nil).
type Store interface {
	GetUser(ctx context.Context, phone string) (*membership.User, error)
	GetTeam(ctx context.Context, name string) (*membership.Team, error)
}

// allowedStatuses are the subscription states that keep a team's members
// unblocked. A missing or empty status is treated as allowed: new teams
// default to trialing and the gate must not lock out users over data lag.
var allowedStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
}

// Decision is the subscription gate's verdict. Notice is the user-visible
// suspension message when Allow is false.
type Decision struct {
	Allow  bool
	Notice string
}

// AdminInfo reports whether a phone number belongs to an admin and, if
// so, which group they administer.
type AdminInfo struct {
	IsAdmin   bool
	GroupName string
}

// WriteVerdict classifies an admin write attempt.
type WriteVerdict int

const (
	// WriteAuthorized permits the write.
	WriteAuthorized WriteVerdict = iota
	// WriteUnauthorized means the sender is not an admin at all. The
	// command router suppresses this case entirely.
	WriteUnauthorized
	// WriteWrongGroup means an admin targeted a group they do not own.
	WriteWrongGroup
)

// Gate derives authorization and entitlement decisions from the
// membership store. Lookups that cannot complete fail open for plain
// access and fail closed for privilege.
type Gate struct {
	store        Store
	logger       *slog.Logger
	messageLimit int
}

func NewGate(log *slog.Logger, store Store, messageLimit int) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		store:        store,
		logger:       log.With(slog.String("service", "access")),
		messageLimit: messageLimit,
	}
}

// Authorize decides whether sender may proceed with body. Join commands
// always pass so new users can enroll before they belong to any team.
// Unknown users, ungrouped users, vanished teams and store errors all
// fail open; the single hard block is a known non-paying status.
func (g *Gate) Authorize(ctx context.Context, sender, body string) Decision {
	if isJoinCommand(body) {
		return Decision{Allow: true}
	}

	user, err := g.store.GetUser(ctx, sender)
	if err != nil {
		g.logger.Warn("subscription check failed open", slog.String("phone", sender), slog.Any("error", err))
		return Decision{Allow: true}
	}
	if user == nil || user.GroupName == "" {
		// Unregistered users fall through to the engine, which handles
		// onboarding.
		return Decision{Allow: true}
	}

	team, err := g.store.GetTeam(ctx, user.GroupName)
	if err != nil {
		g.logger.Warn("subscription check failed open", slog.String("group", user.GroupName), slog.Any("error", err))
		return Decision{Allow: true}
	}
	if team == nil {
		g.logger.Warn("team not found for group, failing open", slog.String("group", user.GroupName))
		return Decision{Allow: true}
	}

	status := strings.TrimSpace(team.SubscriptionStatus)
	if status != "" && !allowedStatuses[status] {
		g.logger.Info("blocked suspended sender",
			slog.String("phone", sender),
			slog.String("group", user.GroupName),
			slog.String("status", status))
		return Decision{
			Allow:  false,
			Notice: suspensionNotice(status),
		}
	}

	return Decision{Allow: true}
}

// CheckAdmin reports whether phone belongs to an admin. Absent records
// and store errors yield a plain non-admin; privilege fails closed and
// never errors.
func (g *Gate) CheckAdmin(ctx context.Context, phone string) AdminInfo {
	user, err := g.store.GetUser(ctx, phone)
	if err != nil {
		g.logger.Warn("admin check failed closed", slog.String("phone", phone), slog.Any("error", err))
		return AdminInfo{}
	}
	if user == nil || !user.IsAdmin {
		return AdminInfo{}
	}
	return AdminInfo{IsAdmin: true, GroupName: user.GroupName}
}

// AuthorizeScheduleWrite checks that phone is an admin of exactly
// targetGroup. Admins may only write within their own group.
func (g *Gate) AuthorizeScheduleWrite(ctx context.Context, phone, targetGroup string) WriteVerdict {
	info := g.CheckAdmin(ctx, phone)
	if !info.IsAdmin {
		return WriteUnauthorized
	}
	if info.GroupName == "" || info.GroupName != targetGroup {
		g.logger.Warn("admin targeted a group they do not own",
			slog.String("phone", phone),
			slog.String("own_group", info.GroupName),
			slog.String("target_group", targetGroup))
		return WriteWrongGroup
	}
	return WriteAuthorized
}

// CheckUsage reports whether phone is under the message limit. A missing
// row counts as zero; store errors fail open so a degraded store never
// blocks a paying user.
func (g *Gate) CheckUsage(ctx context.Context, phone string) bool {
	if g.messageLimit <= 0 {
		return true
	}
	user, err := g.store.GetUser(ctx, phone)
	if err != nil {
		g.logger.Warn("usage check failed open", slog.String("phone", phone), slog.Any("error", err))
		return true
	}
	if user == nil {
		return true
	}
	return user.MessageCount < g.messageLimit
}

func suspensionNotice(status string) string {
	return fmt.Sprintf("⛔ Service Suspended\n\nYour team's subscription is currently %s. Access is paused until payment is updated.", status)
}

// isJoinCommand matches the join grammar: case-insensitive "join "
// prefix on the trimmed text.
func isJoinCommand(body string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), "join ")
}
