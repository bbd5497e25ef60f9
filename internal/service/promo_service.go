package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/validation"
)

var ErrPromoInvalid = errors.New("promo code invalid")

// PromoService is the admin side of the promo ledger.
type PromoService struct {
	promos *repository.PromoRepository
	nfts   *repository.NftRepository
	users  *UserService
}

func NewPromoService(promos *repository.PromoRepository, nfts *repository.NftRepository, users *UserService) *PromoService {
	return &PromoService{promos: promos, nfts: nfts, users: users}
}

// Create issues a new code. An existing code with the same value is
// overwritten.
func (s *PromoService) Create(ctx context.Context, code, productName, description string) (*models.PromoCode, error) {
	code = validation.NormalizeCode(code)
	productName = strings.TrimSpace(productName)
	if !validation.IsValidCode(code) {
		return nil, fmt.Errorf("%w: code must be 6-12 latin letters or digits", ErrPromoInvalid)
	}
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrPromoInvalid)
	}
	return s.promos.Create(ctx, code, productName, strings.TrimSpace(description))
}

// ParseCreateInput splits the admin "CODE|Name|Description" form.
func ParseCreateInput(input string) (code, productName, description string, err error) {
	parts := strings.Split(input, "|")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: expected CODE|Name|Description", ErrPromoInvalid)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func (s *PromoService) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	return s.promos.GetByCode(ctx, code)
}

// List returns every code, or only those in status when it is non-zero.
func (s *PromoService) List(ctx context.Context, status models.PromoStatus) ([]models.PromoCode, error) {
	if status == 0 {
		return s.promos.List(ctx)
	}
	return s.promos.ListByStatus(ctx, status)
}

func (s *PromoService) ListNfts(ctx context.Context, status models.NftStatus) ([]models.NftToken, error) {
	return s.nfts.GetByStatus(ctx, status)
}

type PromoStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Activated int `json:"activated"`
	Used      int `json:"used"`
}

type NftStats struct {
	Total    int `json:"total"`
	Minted   int `json:"minted"`
	Active   int `json:"active"`
	Redeemed int `json:"redeemed"`
	Pending  int `json:"pending"`
}

type Stats struct {
	Users  UserStats  `json:"users"`
	Promos PromoStats `json:"promos"`
	Nfts   NftStats   `json:"nfts"`
}

func (s *PromoService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.users.Stats(ctx)
	if err != nil {
		return nil, err
	}

	promos, err := s.promos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("promo stats: %w", err)
	}
	out := &Stats{Users: users, Promos: PromoStats{Total: len(promos)}}
	for _, p := range promos {
		switch p.Status {
		case models.PromoStatusNew:
			out.Promos.New++
		case models.PromoStatusActivated:
			out.Promos.Activated++
		case models.PromoStatusUsed:
			out.Promos.Used++
		}
	}

	for _, status := range []models.NftStatus{models.NftStatusMinted, models.NftStatusActive, models.NftStatusRedeemed} {
		tokens, err := s.nfts.GetByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("nft stats: %w", err)
		}
		out.Nfts.Total += len(tokens)
		switch status {
		case models.NftStatusMinted:
			out.Nfts.Minted = len(tokens)
		case models.NftStatusActive:
			out.Nfts.Active = len(tokens)
		case models.NftStatusRedeemed:
			out.Nfts.Redeemed = len(tokens)
		}
		for _, t := range tokens {
			if t.NftAddress.Pending {
				out.Nfts.Pending++
			}
		}
	}
	return out, nil
}
