package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/athplan/bridge/internal/membership"
)

type fakeSessionStore struct {
	user    *membership.User
	team    *membership.Team
	userErr error
	teamErr error
}

func (f *fakeSessionStore) GetUser(context.Context, string) (*membership.User, error) {
	return f.user, f.userErr
}

func (f *fakeSessionStore) GetTeam(context.Context, string) (*membership.Team, error) {
	return f.team, f.teamErr
}

func frozenBuilder(store sessionStore) *SessionBuilder {
	b := NewSessionBuilder(nil, store)
	b.now = func() time.Time {
		return time.Date(2025, time.March, 3, 19, 30, 0, 0, time.UTC)
	}
	return b
}

func TestBuildFullProfile(t *testing.T) {
	b := frozenBuilder(&fakeSessionStore{
		user: &membership.User{PhoneNumber: sender, GroupName: "Lions", IsAdmin: true},
		team: &membership.Team{Name: "Lions", SubscriptionStatus: "active", PlanName: "pro"},
	})

	vars := b.Build(context.Background(), sender)

	assert.Equal(t, "Lions", vars.TeamName)
	assert.True(t, vars.IsAdmin)
	assert.Equal(t, "active", vars.PlanStatus)
	assert.Equal(t, "pro", vars.PlanName)
	assert.Equal(t, sender, vars.UserID)
	assert.Contains(t, vars.CurrentTime, "Monday, March 3, 2025")
}

func TestBuildUnknownUserGetsDefaults(t *testing.T) {
	b := frozenBuilder(&fakeSessionStore{})

	vars := b.Build(context.Background(), sender)

	assert.Empty(t, vars.TeamName)
	assert.False(t, vars.IsAdmin)
	assert.Equal(t, "free", vars.PlanStatus)
	assert.Equal(t, "starter", vars.PlanName)
}

func TestBuildStoreErrorDegradesToDefaults(t *testing.T) {
	b := frozenBuilder(&fakeSessionStore{userErr: errors.New("timeout")})

	vars := b.Build(context.Background(), sender)

	assert.Equal(t, "free", vars.PlanStatus)
	assert.Equal(t, "starter", vars.PlanName)
}

func TestBuildDanglingTeamKeepsGroupName(t *testing.T) {
	b := frozenBuilder(&fakeSessionStore{
		user: &membership.User{PhoneNumber: sender, GroupName: "Lions"},
	})

	vars := b.Build(context.Background(), sender)

	assert.Equal(t, "Lions", vars.TeamName)
	assert.Equal(t, "free", vars.PlanStatus)
}
