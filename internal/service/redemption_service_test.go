package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGPromoNFTBot/internal/models"
)

func newRedemption(f *fixture) *RedemptionService {
	nft := f.nftService(NftConfig{}, &fakeSigner{}, nil)
	return NewRedemptionService(f.log, f.promos, f.userSvc, nft, f.metrics)
}

func TestRedemptionEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newRedemption(f)
	const chatID = int64(555)
	wallet := "UQ" + strings.Repeat("a", 46)

	_, err := f.promos.Create(ctx, "PLOV2024", "Plov", "House plov")
	require.NoError(t, err)
	_, err = f.userSvc.Ensure(ctx, chatID, "guest")
	require.NoError(t, err)

	promo, err := svc.SubmitCode(ctx, chatID, "plov2024")
	require.NoError(t, err)
	assert.Equal(t, "PLOV2024", promo.Code)

	stored, err := f.promos.GetByCode(ctx, "PLOV2024")
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusActivated, stored.Status)
	assert.Equal(t, chatID, stored.UserID)

	res, err := svc.SubmitWallet(ctx, chatID, promo.Code, "  "+wallet+" ")
	require.NoError(t, err)
	assert.True(t, res.Simulated)

	stored, err = f.promos.GetByCode(ctx, "PLOV2024")
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusUsed, stored.Status)
	assert.Equal(t, res.NftAddress, stored.NftAddress)

	tokens, err := f.nfts.GetByStatus(ctx, models.NftStatusMinted)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "PLOV2024", tokens[0].PromoCodeID)
	assert.Equal(t, wallet, tokens[0].OwnerAddress)

	user, err := f.userSvc.Get(ctx, chatID)
	require.NoError(t, err)
	assert.True(t, user.IsVIP())
	assert.Equal(t, wallet, user.WalletAddress)
}

func TestSubmitCodeRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newRedemption(f)
	_, err := f.promos.Create(ctx, "TAKEN001", "Tea", "")
	require.NoError(t, err)

	_, err = svc.SubmitCode(ctx, 1, "abc")
	assert.ErrorIs(t, err, ErrCodeRejected)
	_, err = svc.SubmitCode(ctx, 1, "UNKNOWN1")
	assert.ErrorIs(t, err, ErrCodeRejected)

	_, err = svc.SubmitCode(ctx, 1, "taken001")
	require.NoError(t, err)
	_, err = svc.SubmitCode(ctx, 2, "TAKEN001")
	assert.ErrorIs(t, err, ErrPromoAlreadyUsed)

	stored, err := f.promos.GetByCode(ctx, "TAKEN001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UserID)
}

func TestSubmitWalletRejectsBadAddress(t *testing.T) {
	f := newFixture(t)
	svc := newRedemption(f)

	_, err := svc.SubmitWallet(context.Background(), 1, "PLOV2024", strings.Repeat("a", 47))
	assert.ErrorIs(t, err, ErrAddressInvalid)
	_, err = svc.SubmitWallet(context.Background(), 1, "PLOV2024", strings.Repeat("a", 47)+"!")
	assert.ErrorIs(t, err, ErrAddressInvalid)
}
