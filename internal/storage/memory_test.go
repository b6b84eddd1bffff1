package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/readlater-bot/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStorageSaveUserKeepsDeliveryTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.SaveUser(ctx, &models.UserRegistration{UserID: 1, WorkspaceToken: "a", DatabaseID: "db1"}))
	require.NoError(t, s.SetDeliveryTime(ctx, 1, "09:00:00"))
	require.NoError(t, s.SaveUser(ctx, &models.UserRegistration{UserID: 1, WorkspaceToken: "b", DatabaseID: "db2"}))

	user, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "b", user.WorkspaceToken)
	assert.Equal(t, "db2", user.DatabaseID)
	assert.Equal(t, "09:00:00", user.DeliveryTime)
}

func TestMemoryStorageGetUserMissing(t *testing.T) {
	user, err := NewMemoryStorage().GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMemoryStorageSetDeliveryTimeUnknownUser(t *testing.T) {
	err := NewMemoryStorage().SetDeliveryTime(context.Background(), 7, "10:00:00")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStorageListScheduledUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, s.SaveUser(ctx, &models.UserRegistration{UserID: id, WorkspaceToken: "t", DatabaseID: "d"}))
	}
	require.NoError(t, s.SetDeliveryTime(ctx, 3, "08:00:00"))
	require.NoError(t, s.SetDeliveryTime(ctx, 1, "21:30:00"))

	users, err := s.ListScheduledUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].UserID)
	assert.Equal(t, int64(3), users[1].UserID)

	require.NoError(t, s.SetDeliveryTime(ctx, 1, ""))
	users, err = s.ListScheduledUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(3), users[0].UserID)
}

func TestMemoryStoragePins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.SavePin(ctx, &models.PinnedContent{UserID: 5, Title: "old", URL: "https://a"}))
	require.NoError(t, s.SavePin(ctx, &models.PinnedContent{UserID: 5, Title: "new", URL: "https://b"}))

	pin, err := s.GetPin(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, pin)
	assert.Equal(t, "new", pin.Title)

	require.NoError(t, s.DeletePin(ctx, 5))
	pin, err = s.GetPin(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, pin)
}

func TestMemoryStorageStateExpires(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStorage().WithClock(clock.Now)

	require.NoError(t, s.PutState(ctx, &models.ConversationState{UserID: 1, PendingAction: models.ActionMark}, 300*time.Second))

	clock.Advance(299 * time.Second)
	st, err := s.GetState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, models.ActionMark, st.PendingAction)

	clock.Advance(time.Second)
	for i := 0; i < 3; i++ {
		st, err = s.GetState(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestMemoryStorageStateOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.PutState(ctx, &models.ConversationState{UserID: 1, PendingAction: models.ActionMark}, time.Minute))
	require.NoError(t, s.PutState(ctx, &models.ConversationState{UserID: 1, PendingAction: models.ActionPin}, time.Minute))

	st, err := s.GetState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, models.ActionPin, st.PendingAction)
}
