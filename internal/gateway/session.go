package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/athplan/bridge/internal/dialogue"
	"github.com/athplan/bridge/internal/membership"
)

// Session vars fall back to a free/starter profile when the sender or
// their team cannot be resolved; enrichment must never block a turn.
const (
	defaultPlanStatus = "free"
	defaultPlanName   = "starter"

	sessionTimeLayout = "Monday, January 2, 2006 3:04 PM MST"
)

// sessionStore resolves the sender's membership for context enrichment.
type sessionStore interface {
	GetUser(ctx context.Context, phone string) (*membership.User, error)
	GetTeam(ctx context.Context, name string) (*membership.Team, error)
}

// SessionBuilder assembles the per-turn variables forwarded to the
// conversational engine.
type SessionBuilder struct {
	store  sessionStore
	logger *slog.Logger
	now    func() time.Time
	zone   *time.Location
}

func NewSessionBuilder(log *slog.Logger, store sessionStore) *SessionBuilder {
	if log == nil {
		log = slog.Default()
	}
	zone, err := time.LoadLocation("America/New_York")
	if err != nil {
		zone = time.UTC
	}
	return &SessionBuilder{
		store:  store,
		logger: log.With(slog.String("service", "session")),
		now:    time.Now,
		zone:   zone,
	}
}

// Build resolves phone into engine session variables. Every lookup miss
// or store failure degrades to the default profile; enrichment is
// best-effort and never returns an error.
func (b *SessionBuilder) Build(ctx context.Context, phone string) dialogue.SessionVars {
	vars := dialogue.SessionVars{
		PlanStatus:  defaultPlanStatus,
		PlanName:    defaultPlanName,
		UserID:      phone,
		CurrentTime: b.now().In(b.zone).Format(sessionTimeLayout),
	}

	user, err := b.store.GetUser(ctx, phone)
	if err != nil {
		b.logger.Warn("session lookup failed, using defaults", slog.String("error", err.Error()))
		return vars
	}
	if user == nil || user.GroupName == "" {
		return vars
	}

	vars.TeamName = user.GroupName
	vars.IsAdmin = user.IsAdmin

	team, err := b.store.GetTeam(ctx, user.GroupName)
	if err != nil {
		b.logger.Warn("team lookup failed, using defaults", slog.String("error", err.Error()))
		return vars
	}
	if team == nil {
		return vars
	}
	if team.SubscriptionStatus != "" {
		vars.PlanStatus = team.SubscriptionStatus
	}
	if team.PlanName != "" {
		vars.PlanName = team.PlanName
	}
	return vars
}
