package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGPromoNFTBot/internal/models"
)

func TestParseCreateInput(t *testing.T) {
	code, name, desc, err := ParseCreateInput(" plov2024 | Плов | Фирменный плов ")
	require.NoError(t, err)
	assert.Equal(t, "plov2024", code)
	assert.Equal(t, "Плов", name)
	assert.Equal(t, "Фирменный плов", desc)

	_, _, _, err = ParseCreateInput("PLOV2024|Плов")
	assert.ErrorIs(t, err, ErrPromoInvalid)
}

func TestPromoServiceCreateValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPromoService(f.promos, f.nfts, f.userSvc)

	_, err := svc.Create(ctx, "abc", "Tea", "")
	assert.ErrorIs(t, err, ErrPromoInvalid)
	_, err = svc.Create(ctx, "GOODCODE", " ", "")
	assert.ErrorIs(t, err, ErrPromoInvalid)

	promo, err := svc.Create(ctx, "goodcode", "Tea", "Green")
	require.NoError(t, err)
	assert.Equal(t, "GOODCODE", promo.Code)

	got, err := svc.Get(ctx, "GOODCODE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Green", got.ProductDescription)
}

func TestPromoServiceStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPromoService(f.promos, f.nfts, f.userSvc)
	nft := f.nftService(NftConfig{}, &fakeSigner{}, nil)

	for _, code := range []string{"STAT0001", "STAT0002", "STAT0003"} {
		_, err := svc.Create(ctx, code, "Tea", "")
		require.NoError(t, err)
	}
	_, err := f.promos.Activate(ctx, "STAT0002", 1)
	require.NoError(t, err)
	_, err = f.promos.Activate(ctx, "STAT0003", 2)
	require.NoError(t, err)
	_, err = nft.Mint(ctx, "STAT0003", "owner")
	require.NoError(t, err)
	require.NoError(t, f.nfts.Create(ctx, &models.NftToken{
		TokenID:    "pending-1",
		NftAddress: models.PendingAddress("aa"),
		MintedAt:   time.Now(),
	}))
	_, err = f.userSvc.Ensure(ctx, 1, "")
	require.NoError(t, err)
	require.NoError(t, f.userSvc.PromoteToVIP(ctx, 2, "EQ"))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, PromoStats{Total: 3, New: 1, Activated: 1, Used: 1}, stats.Promos)
	assert.Equal(t, NftStats{Total: 2, Minted: 2, Pending: 1}, stats.Nfts)
	assert.Equal(t, UserStats{Total: 2, VIP: 1}, stats.Users)

	used, err := svc.List(ctx, models.PromoStatusUsed)
	require.NoError(t, err)
	assert.Len(t, used, 1)
	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPendingMonitorCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	monitor := NewPendingMonitor(f.log, f.nfts, f.metrics, time.Minute)

	n, err := monitor.Check(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, f.nfts.Create(ctx, &models.NftToken{TokenID: "a", NftAddress: models.PendingAddress("h1")}))
	require.NoError(t, f.nfts.Create(ctx, &models.NftToken{TokenID: "b", NftAddress: models.FinalAddress("EQb")}))

	n, err = monitor.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPendingMonitorStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	monitor := NewPendingMonitor(f.log, f.nfts, f.metrics, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, monitor.Run(ctx))
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("A")
	unlockB := k.Lock("B")
	assert.Len(t, k.locks, 2)
	unlock()
	unlockB()
	assert.Empty(t, k.locks)
}
