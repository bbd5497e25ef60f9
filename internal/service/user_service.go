package service

import (
	"context"
	"fmt"

	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Ensure(ctx context.Context, chatID int64, username string) (*models.UserProfile, error) {
	user, err := s.users.GetOrCreate(ctx, chatID, username)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	return s.users.GetByID(ctx, chatID)
}

// PromoteToVIP records the wallet the user minted to and marks them VIP.
func (s *UserService) PromoteToVIP(ctx context.Context, chatID int64, walletAddress string) error {
	user, err := s.users.GetOrCreate(ctx, chatID, "")
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	user.WalletAddress = walletAddress
	user.UserType = models.UserTypeVIP
	return s.users.Update(ctx, user)
}

func (s *UserService) MarkBlocked(ctx context.Context, user *models.UserProfile) error {
	user.IsBlocked = true
	return s.users.Update(ctx, user)
}

// Audience resolves a broadcast audience to recipients. Users that blocked
// the bot are never included.
func (s *UserService) Audience(ctx context.Context, audience models.Audience) ([]models.UserProfile, error) {
	var (
		users []models.UserProfile
		err   error
	)
	switch audience {
	case models.AudienceVIP:
		users, err = s.users.GetByType(ctx, models.UserTypeVIP)
	case models.AudienceRegular:
		users, err = s.users.GetByType(ctx, models.UserTypeRegular)
	default:
		users, err = s.users.GetActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	out := users[:0]
	for _, u := range users {
		if !u.IsBlocked {
			out = append(out, u)
		}
	}
	return out, nil
}

type UserStats struct {
	Total int `json:"total"`
	VIP   int `json:"vip"`
}

func (s *UserService) Stats(ctx context.Context) (UserStats, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	stats := UserStats{Total: len(users)}
	for _, u := range users {
		if u.IsVIP() {
			stats.VIP++
		}
	}
	return stats, nil
}
