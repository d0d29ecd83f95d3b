package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/athplan/bridge/internal/access"
	"github.com/athplan/bridge/internal/broadcast"
	"github.com/athplan/bridge/internal/dialogue"
	"github.com/athplan/bridge/internal/membership"
	"github.com/athplan/bridge/internal/telemetry"
	"github.com/athplan/bridge/internal/whatsapp"
)

// Consumers of the membership store, the gate and the engine see only
// what the router actually calls.
type turnStore interface {
	FindTeamByJoinCode(ctx context.Context, code string) (*membership.Team, error)
	UpsertUserGroup(ctx context.Context, phone, group string) error
	InsertScheduleUpdate(ctx context.Context, group, content, author string) error
	IncrementMessageCount(ctx context.Context, phone string) error
}

type turnGate interface {
	Authorize(ctx context.Context, sender, body string) access.Decision
	CheckAdmin(ctx context.Context, phone string) access.AdminInfo
	AuthorizeScheduleWrite(ctx context.Context, phone, targetGroup string) access.WriteVerdict
	CheckUsage(ctx context.Context, phone string) bool
}

type broadcaster interface {
	Broadcast(ctx context.Context, group, message, excludePhone string) (broadcast.Result, error)
}

type engine interface {
	Interact(ctx context.Context, userID string, action dialogue.Action) ([]dialogue.Trace, error)
	UpdateVariables(ctx context.Context, userID string, vars dialogue.SessionVars) error
}

type recorder interface {
	Record(event telemetry.Event)
}

type sessionBuilder interface {
	Build(ctx context.Context, phone string) dialogue.SessionVars
}

// Service orchestrates one inbound webhook turn: telemetry, subscription
// gating, command dispatch and the conversational fallback. Every turn
// produces TwiML.
type Service struct {
	store     turnStore
	gate      turnGate
	broadcast broadcaster
	engine    engine
	sessions  sessionBuilder
	telemetry recorder
	logger    *slog.Logger
}

func NewService(
	log *slog.Logger,
	store turnStore,
	gate turnGate,
	bc broadcaster,
	eng engine,
	sessions sessionBuilder,
	tel recorder,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     store,
		gate:      gate,
		broadcast: bc,
		engine:    eng,
		sessions:  sessions,
		telemetry: tel,
		logger:    log.With(slog.String("service", "gateway")),
	}
}

// adminOutcome classifies an admin command attempt. Unauthorized senders
// are rerouted to the conversational fallback so the command grammar is
// never revealed to non-admins.
type adminOutcome int

const (
	adminExecuted adminOutcome = iota
	adminUnauthorized
	adminDenied
)

type adminResult struct {
	outcome adminOutcome
	reply   string
}

// HandleTurn processes one inbound message and returns the TwiML reply.
func (s *Service) HandleTurn(ctx context.Context, from, body string) (string, error) {
	s.telemetry.Record(telemetry.Event{
		SessionID: from,
		EventType: telemetry.EventUserMessage,
		Payload:   map[string]any{"body": body},
	})

	if decision := s.gate.Authorize(ctx, from, body); !decision.Allow {
		return whatsapp.FormatText(decision.Notice)
	}

	switch intent := ParseIntent(body).(type) {
	case JoinIntent:
		return whatsapp.FormatText(s.handleJoin(ctx, from, intent.Code))

	case BroadcastIntent:
		result := s.handleBroadcast(ctx, from, intent.Content)
		if result.outcome == adminUnauthorized {
			return s.handleFallback(ctx, from, body)
		}
		return whatsapp.FormatText(result.reply)

	case ScheduleIntent:
		result := s.handleSchedule(ctx, from, intent.Content)
		if result.outcome == adminUnauthorized {
			return s.handleFallback(ctx, from, body)
		}
		return whatsapp.FormatText(result.reply)

	default:
		return s.handleFallback(ctx, from, body)
	}
}

// handleJoin enrolls the sender into the team exposing code. Store
// failures on the write path fail closed with an explicit notice.
func (s *Service) handleJoin(ctx context.Context, from, code string) string {
	if code == "" {
		return msgJoinUsage
	}

	team, err := s.store.FindTeamByJoinCode(ctx, code)
	if err != nil {
		s.logger.Error("join code lookup failed", slog.String("error", err.Error()))
		return msgJoinFailed
	}
	if team == nil {
		return msgInvalidJoinCode
	}

	if err := s.store.UpsertUserGroup(ctx, from, team.Name); err != nil {
		s.logger.Error("enrollment write failed",
			slog.String("group", team.Name),
			slog.String("error", err.Error()))
		return msgJoinFailed
	}

	s.logger.Info("user joined team", slog.String("group", team.Name))
	return fmt.Sprintf("Welcome to %s! 🎉 You're all set. Ask me anything about your team.", team.Name)
}

// handleBroadcast fans an admin announcement out to the sender's own
// group. The target group always comes from the admin record, never from
// the message.
func (s *Service) handleBroadcast(ctx context.Context, from, content string) adminResult {
	info := s.gate.CheckAdmin(ctx, from)
	if !info.IsAdmin {
		return adminResult{outcome: adminUnauthorized}
	}
	if info.GroupName == "" {
		return adminResult{outcome: adminDenied, reply: msgAdminNoGroup}
	}
	if content == "" {
		return adminResult{outcome: adminDenied, reply: msgBroadcastUsage}
	}

	result, err := s.broadcast.Broadcast(ctx, info.GroupName, broadcastDecoration+content, from)
	if err != nil {
		s.logger.Error("broadcast failed",
			slog.String("group", info.GroupName),
			slog.String("error", err.Error()))
		return adminResult{outcome: adminDenied, reply: msgBroadcastFailed}
	}

	return adminResult{
		outcome: adminExecuted,
		reply:   fmt.Sprintf("✅ Update sent to %d of %d team members.", result.Delivered, result.Attempted),
	}
}

// handleSchedule persists a schedule update and then broadcasts it. The
// insert happens first so a delivery failure never loses the record.
func (s *Service) handleSchedule(ctx context.Context, from, content string) adminResult {
	info := s.gate.CheckAdmin(ctx, from)
	if !info.IsAdmin {
		return adminResult{outcome: adminUnauthorized}
	}
	if info.GroupName == "" {
		return adminResult{outcome: adminDenied, reply: msgAdminNoGroup}
	}
	if verdict := s.gate.AuthorizeScheduleWrite(ctx, from, info.GroupName); verdict != access.WriteAuthorized {
		return adminResult{outcome: adminDenied, reply: msgWrongGroup}
	}
	if content == "" {
		return adminResult{outcome: adminDenied, reply: msgScheduleUsage}
	}

	if err := s.store.InsertScheduleUpdate(ctx, info.GroupName, content, from); err != nil {
		s.logger.Error("schedule insert failed",
			slog.String("group", info.GroupName),
			slog.String("error", err.Error()))
		return adminResult{outcome: adminDenied, reply: msgScheduleFailed}
	}

	result, err := s.broadcast.Broadcast(ctx, info.GroupName, scheduleDecoration+content, from)
	if err != nil {
		s.logger.Error("schedule broadcast failed",
			slog.String("group", info.GroupName),
			slog.String("error", err.Error()))
		return adminResult{outcome: adminDenied, reply: msgScheduleFailed}
	}

	return adminResult{
		outcome: adminExecuted,
		reply:   fmt.Sprintf("✅ Schedule update saved and sent to %d of %d team members.", result.Delivered, result.Attempted),
	}
}

// handleFallback runs the conversational path: usage check, context
// enrichment, engine interaction, reply formatting.
func (s *Service) handleFallback(ctx context.Context, from, body string) (string, error) {
	if !s.gate.CheckUsage(ctx, from) {
		return whatsapp.FormatText(msgUsageLimit)
	}

	vars := s.sessions.Build(ctx, from)
	if err := s.engine.UpdateVariables(ctx, from, vars); err != nil {
		s.logger.Warn("variable push failed", slog.String("error", err.Error()))
	}

	traces, err := s.engine.Interact(ctx, from, dialogue.Action{Type: "text", Payload: body})
	if err != nil {
		s.logger.Error("engine interaction failed", slog.String("error", err.Error()))
		s.telemetry.Record(telemetry.Event{
			SessionID: from,
			EventType: telemetry.EventError,
			Payload:   map[string]any{"error": err.Error()},
		})
		return whatsapp.FormatText(msgApology)
	}

	s.telemetry.Record(telemetry.Event{
		SessionID: from,
		EventType: telemetry.EventBotResponse,
		Payload:   traces,
	})

	if err := s.store.IncrementMessageCount(ctx, from); err != nil {
		s.logger.Warn("usage increment failed", slog.String("error", err.Error()))
	}

	return whatsapp.FormatTwiML(traces)
}
