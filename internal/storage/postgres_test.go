package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/readlater-bot/internal/models"
	"go.uber.org/zap"
)

// Runs against a live database only when TEST_DATABASE_URL is set.
func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := OpenPostgresStorage(dsn, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	const userID int64 = 900001
	t.Cleanup(func() {
		_ = s.DeleteUser(ctx, userID)
		_ = s.DeletePin(ctx, userID)
	})

	user, err := s.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.ErrorIs(t, s.SetDeliveryTime(ctx, userID, "09:00:00"), ErrUserNotFound)

	require.NoError(t, s.SaveUser(ctx, &models.UserRegistration{UserID: userID, WorkspaceToken: "tok", DatabaseID: "db"}))
	require.NoError(t, s.SetDeliveryTime(ctx, userID, "09:00:00"))
	require.NoError(t, s.SaveUser(ctx, &models.UserRegistration{UserID: userID, WorkspaceToken: "tok2", DatabaseID: "db"}))

	user, err = s.GetUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "tok2", user.WorkspaceToken)
	assert.Equal(t, "09:00:00", user.DeliveryTime)

	users, err := s.ListScheduledUsers(ctx)
	require.NoError(t, err)
	found := false
	for _, u := range users {
		if u.UserID == userID {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, s.SavePin(ctx, &models.PinnedContent{UserID: userID, Title: "t", URL: "https://x"}))
	pin, err := s.GetPin(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, pin)
	assert.Equal(t, "https://x", pin.URL)

	require.NoError(t, s.DeletePin(ctx, userID))
	pin, err = s.GetPin(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, pin)

	require.NoError(t, s.DeleteUser(ctx, userID))
	user, err = s.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, user)
}
