package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMappingsRoundTrip(t *testing.T) {
	for _, s := range []PromoStatus{PromoStatusNew, PromoStatusActivated, PromoStatusUsed} {
		parsed, err := ParsePromoStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	for _, s := range []NftStatus{NftStatusMinted, NftStatusActive, NftStatusRedeemed} {
		parsed, err := ParseNftStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	_, err := ParsePromoStatus("Expired")
	assert.True(t, errors.Is(err, ErrUnknownValue))
	_, err = ParseNftStatus("minted")
	assert.True(t, errors.Is(err, ErrUnknownValue))
	_, err = ParseUserType("Gold")
	assert.True(t, errors.Is(err, ErrUnknownValue))
	_, err = ParseAudience("")
	assert.True(t, errors.Is(err, ErrUnknownValue))
	_, err = ParseBroadcastStatus("Queued")
	assert.True(t, errors.Is(err, ErrUnknownValue))
}

func TestNftAddress(t *testing.T) {
	pending := PendingAddress("abc123")
	assert.Equal(t, "pending_abc123", pending.String())
	assert.Equal(t, pending, ParseNftAddress(pending.String()))

	final := FinalAddress("EQabc")
	assert.False(t, final.Pending)
	assert.Equal(t, final, ParseNftAddress("EQabc"))
	assert.True(t, NftAddress{}.IsZero())
}

func TestRedeemable(t *testing.T) {
	assert.True(t, NftStatusMinted.Redeemable())
	assert.True(t, NftStatusActive.Redeemable())
	assert.False(t, NftStatusRedeemed.Redeemable())
}
