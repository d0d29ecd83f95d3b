package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/athplan/bridge/internal/membership"
)

type fakeStore struct {
	users   map[string]*membership.User
	teams   map[string]*membership.Team
	userErr error
	teamErr error
}

func (s *fakeStore) GetUser(_ context.Context, phone string) (*membership.User, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	return s.users[phone], nil
}

func (s *fakeStore) GetTeam(_ context.Context, name string) (*membership.Team, error) {
	if s.teamErr != nil {
		return nil, s.teamErr
	}
	return s.teams[name], nil
}

func TestAuthorizeJoinAlwaysAllowed(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{
			"p1": {PhoneNumber: "p1", GroupName: "Lions"},
		},
		teams: map[string]*membership.Team{
			"Lions": {Name: "Lions", SubscriptionStatus: "canceled"},
		},
	}
	g := NewGate(nil, store, 0)

	for _, body := range []string{"join ABC123", "  JOIN abc  ", "Join xyz"} {
		d := g.Authorize(context.Background(), "p1", body)
		assert.True(t, d.Allow, "join must bypass suspension: %q", body)
	}

	// The same sender is blocked for anything else.
	d := g.Authorize(context.Background(), "p1", "hello")
	assert.False(t, d.Allow)
	assert.Contains(t, d.Notice, "canceled")
}

func TestAuthorizeUnknownUserFailsOpen(t *testing.T) {
	g := NewGate(nil, &fakeStore{}, 0)
	d := g.Authorize(context.Background(), "nobody", "hello")
	assert.True(t, d.Allow)
}

func TestAuthorizeUngroupedUserFailsOpen(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{"p1": {PhoneNumber: "p1"}},
	}
	g := NewGate(nil, store, 0)
	assert.True(t, g.Authorize(context.Background(), "p1", "hello").Allow)
}

func TestAuthorizeMissingTeamFailsOpen(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{"p1": {PhoneNumber: "p1", GroupName: "Ghosts"}},
	}
	g := NewGate(nil, store, 0)
	assert.True(t, g.Authorize(context.Background(), "p1", "hello").Allow)
}

func TestAuthorizeStoreErrorFailsOpen(t *testing.T) {
	g := NewGate(nil, &fakeStore{userErr: errors.New("timeout")}, 0)
	assert.True(t, g.Authorize(context.Background(), "p1", "hello").Allow)
}

func TestAuthorizeStatusGating(t *testing.T) {
	cases := []struct {
		status string
		allow  bool
	}{
		{"active", true},
		{"trialing", true},
		{"", true},
		{"past_due", false},
		{"canceled", false},
		{"unpaid", false},
	}
	for _, tc := range cases {
		store := &fakeStore{
			users: map[string]*membership.User{"p1": {PhoneNumber: "p1", GroupName: "Lions"}},
			teams: map[string]*membership.Team{"Lions": {Name: "Lions", SubscriptionStatus: tc.status}},
		}
		g := NewGate(nil, store, 0)
		d := g.Authorize(context.Background(), "p1", "hello")
		assert.Equal(t, tc.allow, d.Allow, "status %q", tc.status)
	}
}

func TestCheckAdmin(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{
			"admin":  {PhoneNumber: "admin", GroupName: "Lions", IsAdmin: true},
			"member": {PhoneNumber: "member", GroupName: "Lions"},
		},
	}
	g := NewGate(nil, store, 0)

	info := g.CheckAdmin(context.Background(), "admin")
	assert.True(t, info.IsAdmin)
	assert.Equal(t, "Lions", info.GroupName)

	assert.False(t, g.CheckAdmin(context.Background(), "member").IsAdmin)
	assert.False(t, g.CheckAdmin(context.Background(), "stranger").IsAdmin)
}

func TestCheckAdminStoreErrorFailsClosed(t *testing.T) {
	g := NewGate(nil, &fakeStore{userErr: errors.New("timeout")}, 0)
	assert.False(t, g.CheckAdmin(context.Background(), "admin").IsAdmin)
}

func TestAuthorizeScheduleWrite(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{
			"admin":  {PhoneNumber: "admin", GroupName: "Lions", IsAdmin: true},
			"member": {PhoneNumber: "member", GroupName: "Lions"},
		},
	}
	g := NewGate(nil, store, 0)

	assert.Equal(t, WriteAuthorized, g.AuthorizeScheduleWrite(context.Background(), "admin", "Lions"))
	assert.Equal(t, WriteWrongGroup, g.AuthorizeScheduleWrite(context.Background(), "admin", "Tigers"))
	assert.Equal(t, WriteUnauthorized, g.AuthorizeScheduleWrite(context.Background(), "member", "Lions"))
	assert.Equal(t, WriteUnauthorized, g.AuthorizeScheduleWrite(context.Background(), "stranger", "Lions"))
}

func TestCheckUsage(t *testing.T) {
	store := &fakeStore{
		users: map[string]*membership.User{
			"heavy": {PhoneNumber: "heavy", MessageCount: 400},
			"light": {PhoneNumber: "light", MessageCount: 3},
		},
	}
	g := NewGate(nil, store, 400)

	assert.False(t, g.CheckUsage(context.Background(), "heavy"))
	assert.True(t, g.CheckUsage(context.Background(), "light"))
	assert.True(t, g.CheckUsage(context.Background(), "new"))

	// Store failure never blocks.
	gErr := NewGate(nil, &fakeStore{userErr: errors.New("timeout")}, 400)
	assert.True(t, gErr.CheckUsage(context.Background(), "heavy"))
}
