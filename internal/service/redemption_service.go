package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/validation"
)

var (
	// ErrCodeRejected covers both malformed and unknown codes so that
	// callers cannot tell them apart.
	ErrCodeRejected   = errors.New("promo code rejected")
	ErrAddressInvalid = errors.New("wallet address invalid")
)

// RedemptionService drives the two-step exchange: a code, then a wallet.
type RedemptionService struct {
	log     *slog.Logger
	promos  *repository.PromoRepository
	users   *UserService
	nft     *NftService
	metrics *metrics.Metrics
}

func NewRedemptionService(log *slog.Logger, promos *repository.PromoRepository, users *UserService, nft *NftService, m *metrics.Metrics) *RedemptionService {
	return &RedemptionService{log: log, promos: promos, users: users, nft: nft, metrics: m}
}

// SubmitCode activates the code for chatID. ErrPromoAlreadyUsed means the
// code exists but has been claimed.
func (s *RedemptionService) SubmitCode(ctx context.Context, chatID int64, input string) (*models.PromoCode, error) {
	code := validation.NormalizeCode(input)
	if !validation.IsValidCode(code) {
		return nil, ErrCodeRejected
	}

	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	if promo == nil {
		return nil, ErrCodeRejected
	}
	if promo.Status != models.PromoStatusNew {
		return nil, ErrPromoAlreadyUsed
	}

	ok, err := s.promos.Activate(ctx, code, chatID)
	if err != nil {
		return nil, fmt.Errorf("activate promo: %w", err)
	}
	s.metrics.PromoTransition("activate", ok)
	if !ok {
		return nil, ErrPromoAlreadyUsed
	}

	s.log.Info("promo activated", "code", code, "chat_id", chatID)
	promo.Status = models.PromoStatusActivated
	promo.UserID = chatID
	return promo, nil
}

// SubmitWallet mints the collectible for an activated code and promotes the
// user to VIP.
func (s *RedemptionService) SubmitWallet(ctx context.Context, chatID int64, code, input string) (*MintResult, error) {
	addr := validation.NormalizeAddress(input)
	if !validation.IsValidAddress(addr) {
		return nil, ErrAddressInvalid
	}

	result, err := s.nft.Mint(ctx, code, addr)
	if err != nil {
		return nil, err
	}

	if err := s.users.PromoteToVIP(ctx, chatID, addr); err != nil {
		s.log.Error("promote user after mint", "chat_id", chatID, "err", err)
	}
	return result, nil
}
