package membership

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athplan/bridge/internal/db"
)

// testStore connects to the database named by TEST_POSTGRES_DSN and
// applies migrations. Tests skip when the variable is unset.
func testStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	require.NoError(t, db.MigrateDSN(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(nil, pool), pool
}

// seedTeam inserts a team with a unique name and join code and removes it
// again when the test finishes.
func seedTeam(t *testing.T, pool *pgxpool.Pool, status, plan string) Team {
	t.Helper()

	team := Team{
		Name:               "team-" + uuid.NewString(),
		JoinCode:           "code-" + uuid.NewString(),
		SubscriptionStatus: status,
		PlanName:           plan,
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO teams (name, join_code, subscription_status, plan_name) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))`,
		team.Name, team.JoinCode, team.SubscriptionStatus, team.PlanName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM teams WHERE name = $1`, team.Name)
	})
	return team
}

func cleanupUser(t *testing.T, pool *pgxpool.Pool, phone string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM bot_users WHERE phone_number = $1`, phone)
	})
}

func testPhone() string {
	return fmt.Sprintf("whatsapp:+1555%s", uuid.NewString()[:8])
}

func TestGetUserAbsentIsNilNil(t *testing.T) {
	store, _ := testStore(t)

	user, err := store.GetUser(context.Background(), testPhone())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetTeamAbsentIsNilNil(t *testing.T) {
	store, _ := testStore(t)

	team, err := store.GetTeam(context.Background(), "team-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, team)
}

func TestFindTeamByJoinCode(t *testing.T) {
	store, pool := testStore(t)
	seeded := seedTeam(t, pool, "active", "pro")

	team, err := store.FindTeamByJoinCode(context.Background(), seeded.JoinCode)
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, seeded.Name, team.Name)
	assert.Equal(t, "active", team.SubscriptionStatus)
	assert.Equal(t, "pro", team.PlanName)

	missing, err := store.FindTeamByJoinCode(context.Background(), "code-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertUserGroupRoundTrip(t *testing.T) {
	store, pool := testStore(t)
	first := seedTeam(t, pool, "", "")
	second := seedTeam(t, pool, "", "")
	phone := testPhone()
	cleanupUser(t, pool, phone)

	require.NoError(t, store.UpsertUserGroup(context.Background(), phone, first.Name))

	user, err := store.GetUser(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, first.Name, user.GroupName)
	assert.False(t, user.IsAdmin)

	// repeated joins reassign, never duplicate
	require.NoError(t, store.UpsertUserGroup(context.Background(), phone, second.Name))

	user, err = store.GetUser(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, second.Name, user.GroupName)
}

func TestIncrementMessageCountUpserts(t *testing.T) {
	store, pool := testStore(t)
	phone := testPhone()
	cleanupUser(t, pool, phone)

	// first increment creates the row
	require.NoError(t, store.IncrementMessageCount(context.Background(), phone))
	require.NoError(t, store.IncrementMessageCount(context.Background(), phone))

	user, err := store.GetUser(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 2, user.MessageCount)
}

func TestListGroupMembersExcludesPhone(t *testing.T) {
	store, pool := testStore(t)
	team := seedTeam(t, pool, "", "")

	author := testPhone()
	member := testPhone()
	cleanupUser(t, pool, author)
	cleanupUser(t, pool, member)
	require.NoError(t, store.UpsertUserGroup(context.Background(), author, team.Name))
	require.NoError(t, store.UpsertUserGroup(context.Background(), member, team.Name))

	members, err := store.ListGroupMembers(context.Background(), team.Name, author)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member, members[0].PhoneNumber)
}

func TestActivateSubscriptionByPhone(t *testing.T) {
	store, pool := testStore(t)
	team := seedTeam(t, pool, "canceled", "")
	phone := testPhone()
	cleanupUser(t, pool, phone)
	require.NoError(t, store.UpsertUserGroup(context.Background(), phone, team.Name))

	matched, err := store.ActivateSubscriptionByPhone(context.Background(), phone)
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := store.GetTeam(context.Background(), team.Name)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "active", got.SubscriptionStatus)

	// unknown phone matches no team
	matched, err = store.ActivateSubscriptionByPhone(context.Background(), testPhone())
	require.NoError(t, err)
	assert.False(t, matched)
}
