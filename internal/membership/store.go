package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// storeTimeout bounds every round-trip to the record store. Callers decide
// fail-open versus fail-closed; the store only guarantees the call returns.
const storeTimeout = 5 * time.Second

// Store reads and writes membership records. Reads report a missing row as
// (nil, nil) so callers can tell "absent" from "store failure".
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("service", "membership")),
	}
}

// GetUser returns the user for phone, or nil when no record exists.
func (s *Store) GetUser(ctx context.Context, phone string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT phone_number, group_name, is_admin, message_count FROM bot_users WHERE phone_number = $1`,
		phone)

	var u User
	var group pgtype.Text
	if err := row.Scan(&u.PhoneNumber, &group, &u.IsAdmin, &u.MessageCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.GroupName = group.String
	return &u, nil
}

// GetTeam returns the team by name, or nil when no record exists. A user
// pointing at a vanished team is a data-consistency lag, not an error.
func (s *Store) GetTeam(ctx context.Context, name string) (*Team, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT name, join_code, subscription_status, plan_name FROM teams WHERE name = $1`,
		name)
	return scanTeam(row)
}

// FindTeamByJoinCode returns the team exposing code, or nil when the code
// matches nothing.
func (s *Store) FindTeamByJoinCode(ctx context.Context, code string) (*Team, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT name, join_code, subscription_status, plan_name FROM teams WHERE join_code = $1`,
		code)
	return scanTeam(row)
}

// ListGroupMembers returns every user in group except excludePhone.
func (s *Store) ListGroupMembers(ctx context.Context, group, excludePhone string) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT phone_number, group_name, is_admin, message_count
		 FROM bot_users WHERE group_name = $1 AND phone_number <> $2`,
		group, excludePhone)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []User
	for rows.Next() {
		var u User
		var g pgtype.Text
		if err := rows.Scan(&u.PhoneNumber, &g, &u.IsAdmin, &u.MessageCount); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		u.GroupName = g.String
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}

// UpsertUserGroup enrolls phone into group, creating the user on first
// join and reassigning on subsequent ones. Repeated joins are idempotent.
func (s *Store) UpsertUserGroup(ctx context.Context, phone, group string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bot_users (phone_number, group_name)
		 VALUES ($1, $2)
		 ON CONFLICT (phone_number)
		 DO UPDATE SET group_name = EXCLUDED.group_name, updated_at = now()`,
		phone, group)
	if err != nil {
		return fmt.Errorf("upsert user group: %w", err)
	}
	return nil
}

// InsertScheduleUpdate appends one schedule row for group.
func (s *Store) InsertScheduleUpdate(ctx context.Context, group, content, author string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO schedule_updates (group_name, content, created_by) VALUES ($1, $2, $3)`,
		group, content, author)
	if err != nil {
		return fmt.Errorf("insert schedule update: %w", err)
	}
	return nil
}

// IncrementMessageCount bumps the usage counter for phone, creating the
// row at one when the user has never been seen.
func (s *Store) IncrementMessageCount(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bot_users (phone_number, message_count)
		 VALUES ($1, 1)
		 ON CONFLICT (phone_number)
		 DO UPDATE SET message_count = bot_users.message_count + 1, updated_at = now()`,
		phone)
	if err != nil {
		return fmt.Errorf("increment message count: %w", err)
	}
	return nil
}

// ActivateSubscriptionByPhone marks the subscription of phone's team
// active. It reports whether any team row changed; the billing webhook
// treats "no change" as a stale or unknown phone, not a failure.
func (s *Store) ActivateSubscriptionByPhone(ctx context.Context, phone string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET subscription_status = 'active'
		 WHERE name = (SELECT group_name FROM bot_users WHERE phone_number = $1)`,
		phone)
	if err != nil {
		return false, fmt.Errorf("activate subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	var status, plan pgtype.Text
	if err := row.Scan(&t.Name, &t.JoinCode, &status, &plan); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	t.SubscriptionStatus = status.String
	t.PlanName = plan.String
	return &t, nil
}
