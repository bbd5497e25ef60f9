package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
)

func TestUserGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(docstore.NewMemoryStore())

	user, err := repo.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeRegular, user.UserType)
	assert.Equal(t, "ru", user.Language)

	user.UserType = models.UserTypeVIP
	user.WalletAddress = "EQwallet"
	require.NoError(t, repo.Update(ctx, user))

	again, err := repo.GetOrCreate(ctx, 100, "alice2")
	require.NoError(t, err)
	assert.True(t, again.IsVIP())
	assert.Equal(t, "EQwallet", again.WalletAddress)
	assert.Equal(t, "alice2", again.Username)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserListing(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(docstore.NewMemoryStore())

	for id := int64(1); id <= 3; id++ {
		_, err := repo.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
	}
	blocked, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	blocked.IsBlocked = true
	blocked.UserType = models.UserTypeVIP
	require.NoError(t, repo.Update(ctx, blocked))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	vips, err := repo.GetByType(ctx, models.UserTypeVIP)
	require.NoError(t, err)
	require.Len(t, vips, 1)
	assert.Equal(t, int64(3), vips[0].ChatID)
}

func TestBroadcastRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBroadcastRepository(docstore.NewMemoryStore())

	msg, err := repo.Create(ctx, "hello", models.AudienceVIP, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, models.BroadcastStatusDraft, msg.Status)

	msg.Status = models.BroadcastStatusSent
	msg.DeliveredCount = 3
	msg.BlockedCount = 1
	require.NoError(t, repo.Update(ctx, msg))

	got, err := repo.GetByID(ctx, msg.MessageID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.BroadcastStatusSent, got.Status)
	assert.Equal(t, 3, got.DeliveredCount)
	assert.Equal(t, 1, got.BlockedCount)
	assert.Equal(t, models.AudienceVIP, got.TargetAudience)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestBroadcastMarkSentSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewBroadcastRepository(docstore.NewMemoryStore())

	msg, err := repo.Create(ctx, "hello", models.AudienceAll, 5)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.MarkSent(ctx, msg.MessageID)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, err := repo.GetByID(ctx, msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastStatusSent, got.Status)
	assert.NotNil(t, got.SentAt)

	_, ok, err := repo.MarkSent(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
