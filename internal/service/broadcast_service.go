package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
)

var (
	ErrRecipientBlocked     = errors.New("recipient blocked the bot")
	ErrBroadcastNotFound    = errors.New("broadcast not found")
	ErrBroadcastAlreadySent = errors.New("broadcast already sent")
	ErrBroadcastEmpty       = errors.New("broadcast text is empty")
)

const broadcastPace = 50 * time.Millisecond

// TextSender delivers a plain chat message. Implementations wrap a refusal
// by the recipient in ErrRecipientBlocked.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type BroadcastService struct {
	log       *slog.Logger
	broadcast *repository.BroadcastRepository
	users     *UserService
	client    TextSender
	admin     TextSender
	metrics   *metrics.Metrics
	pace      time.Duration
}

// NewBroadcastService fans messages out through client and reports progress
// to admins through admin, which may be nil.
func NewBroadcastService(log *slog.Logger, broadcasts *repository.BroadcastRepository, users *UserService, client, admin TextSender, m *metrics.Metrics) *BroadcastService {
	return &BroadcastService{
		log:       log,
		broadcast: broadcasts,
		users:     users,
		client:    client,
		admin:     admin,
		metrics:   m,
		pace:      broadcastPace,
	}
}

func (s *BroadcastService) Create(ctx context.Context, text string, audience models.Audience, adminID int64) (*models.BroadcastMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrBroadcastEmpty
	}
	return s.broadcast.Create(ctx, text, audience, adminID)
}

func (s *BroadcastService) Get(ctx context.Context, id string) (*models.BroadcastMessage, error) {
	return s.broadcast.GetByID(ctx, id)
}

func (s *BroadcastService) Recent(ctx context.Context, limit int) ([]models.BroadcastMessage, error) {
	return s.broadcast.ListRecent(ctx, limit)
}

// RecipientCount is the audience size a preview shows.
func (s *BroadcastService) RecipientCount(ctx context.Context, audience models.Audience) (int, error) {
	users, err := s.users.Audience(ctx, audience)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// Send delivers a draft to its audience once. Failed deliveries are counted,
// never retried.
func (s *BroadcastService) Send(ctx context.Context, id string, adminChatID int64) (*models.BroadcastMessage, error) {
	msg, err := s.broadcast.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrBroadcastNotFound
	}
	if msg.Status == models.BroadcastStatusSent {
		return nil, ErrBroadcastAlreadySent
	}

	users, err := s.users.Audience(ctx, msg.TargetAudience)
	if err != nil {
		return nil, err
	}
	s.log.Info("starting broadcast", "id", id, "recipients", len(users))

	msg, won, err := s.broadcast.MarkSent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrBroadcastAlreadySent
	}
	s.notifyAdmin(ctx, adminChatID, fmt.Sprintf("📢 Рассылка запущена: 0/%d", len(users)))

	for i := range users {
		if ctx.Err() != nil {
			break
		}
		user := &users[i]
		err := s.client.SendText(ctx, user.ChatID, msg.Text)
		switch {
		case err == nil:
			msg.DeliveredCount++
			s.metrics.BroadcastDelivery("delivered")
			if msg.DeliveredCount%10 == 0 {
				s.log.Info("broadcast progress", "id", id, "delivered", msg.DeliveredCount, "total", len(users))
			}
		case isBlocked(err):
			msg.BlockedCount++
			s.metrics.BroadcastDelivery("blocked")
			if err := s.users.MarkBlocked(ctx, user); err != nil {
				s.log.Error("mark user blocked", "chat_id", user.ChatID, "err", err)
			}
		default:
			msg.FailedCount++
			s.metrics.BroadcastDelivery("failed")
			s.log.Warn("broadcast delivery failed", "chat_id", user.ChatID, "err", err)
		}
		if err := sleep(ctx, s.pace); err != nil {
			break
		}
	}

	// Counters are persisted even when ctx was cancelled midway.
	if err := s.broadcast.Update(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Error("save broadcast counters", "id", id, "err", err)
	}
	s.notifyAdmin(context.WithoutCancel(ctx), adminChatID, fmt.Sprintf(
		"✅ Рассылка завершена\nДоставлено: %d\nЗаблокировали: %d\nОшибки: %d",
		msg.DeliveredCount, msg.BlockedCount, msg.FailedCount,
	))
	s.log.Info("broadcast completed", "id", id, "delivered", msg.DeliveredCount, "blocked", msg.BlockedCount, "failed", msg.FailedCount)
	return msg, nil
}

func (s *BroadcastService) notifyAdmin(ctx context.Context, chatID int64, text string) {
	if s.admin == nil || chatID == 0 {
		return
	}
	if err := s.admin.SendText(ctx, chatID, text); err != nil {
		s.log.Warn("notify admin", "chat_id", chatID, "err", err)
	}
}

func isBlocked(err error) bool {
	return errors.Is(err, ErrRecipientBlocked) || strings.Contains(strings.ToLower(err.Error()), "blocked")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
