package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/service"
)

const historyLimit = 10

type AdminBotConfig struct {
	AdminIDs      []int64
	MaxConcurrent int
}

// AdminBot is the operator bot. Only chats listed in AdminIDs are served.
type AdminBot struct {
	cfg        AdminBotConfig
	src        UpdateSource
	msgr       Messenger
	log        *slog.Logger
	states     *AdminStates
	promos     *service.PromoService
	broadcasts *service.BroadcastService

	sending sync.WaitGroup
}

func NewAdminBot(cfg AdminBotConfig, src UpdateSource, msgr Messenger, log *slog.Logger, states *AdminStates, promos *service.PromoService, broadcasts *service.BroadcastService) *AdminBot {
	return &AdminBot{
		cfg:        cfg,
		src:        src,
		msgr:       msgr,
		log:        log,
		states:     states,
		promos:     promos,
		broadcasts: broadcasts,
	}
}

// Run serves updates until ctx is done and then waits for broadcasts that
// are still being delivered.
func (b *AdminBot) Run(ctx context.Context) error {
	err := dispatch(ctx, "admin", b.src, b.log, b.cfg.MaxConcurrent, b)
	b.sending.Wait()
	return err
}

func (b *AdminBot) isAdmin(chatID int64) bool {
	return slices.Contains(b.cfg.AdminIDs, chatID)
}

func (b *AdminBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := chatIDOf(update)
	if chatID == 0 {
		return
	}
	if update.CallbackQuery != nil {
		if err := b.msgr.AnswerCallback(ctx, update.CallbackQuery.ID, ""); err != nil {
			b.log.Warn("answer callback", "err", err)
		}
	}
	if !b.isAdmin(chatID) {
		b.log.Warn("admin access denied", "chat_id", chatID)
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminDenied})
		return
	}

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, chatID, update.Message.Command())
	case update.Message != nil:
		b.handleText(ctx, chatID, update.Message.Text)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, chatID, update.CallbackQuery.Data)
	}
}

func (b *AdminBot) replyFailure(ctx context.Context, chatID int64) {
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgFailure})
}

func (b *AdminBot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start", "menu":
		b.showMenu(ctx, chatID)
	case "stats":
		b.showStats(ctx, chatID)
	case "cancel":
		b.cancel(ctx, chatID)
	default:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminUnknown})
	}
}

func (b *AdminBot) handleCallback(ctx context.Context, chatID int64, data string) {
	switch data {
	case cbAdminMenu:
		b.showMenu(ctx, chatID)
	case cbAdminCreate:
		b.setState(ctx, chatID, CreatingPromo{})
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminCreatePromo})
	case cbAdminStats:
		b.showStats(ctx, chatID)
	case cbAdminBroadcast:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminBroadcastMenu, Keyboard: broadcastMenu()})
	case cbBroadcastAll:
		b.askBroadcastText(ctx, chatID, models.AudienceAll)
	case cbBroadcastVIP:
		b.askBroadcastText(ctx, chatID, models.AudienceVIP)
	case cbBroadcastRegular:
		b.askBroadcastText(ctx, chatID, models.AudienceRegular)
	case cbAdminHistory:
		b.showHistory(ctx, chatID)
	case cbCancel:
		b.cancel(ctx, chatID)
	default:
		if id, ok := strings.CutPrefix(data, cbBroadcastSend); ok {
			b.startBroadcast(ctx, chatID, id)
		}
	}
}

func (b *AdminBot) handleText(ctx context.Context, chatID int64, text string) {
	state, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Warn("load admin state", "chat_id", chatID, "err", err)
	}
	switch st := state.(type) {
	case CreatingPromo:
		b.createPromo(ctx, chatID, text)
	case BroadcastText:
		b.previewBroadcast(ctx, chatID, st.Audience, text)
	default:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminUnknown})
	}
}

func (b *AdminBot) showMenu(ctx context.Context, chatID int64) {
	b.setState(ctx, chatID, AdminMenu{})
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminWelcome, Keyboard: adminMenu()})
}

func (b *AdminBot) cancel(ctx context.Context, chatID int64) {
	b.setState(ctx, chatID, AdminMenu{})
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminCancelled, Keyboard: adminMenu()})
}

func (b *AdminBot) showStats(ctx context.Context, chatID int64) {
	stats, err := b.promos.Stats(ctx)
	if err != nil {
		b.log.Error("load stats", "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	b.send(ctx, Outgoing{ChatID: chatID, Text: fmt.Sprintf(msgAdminStats,
		stats.Users.Total, stats.Users.VIP,
		stats.Promos.Total, stats.Promos.Activated, stats.Promos.Used,
		stats.Nfts.Total, stats.Nfts.Redeemed, stats.Nfts.Pending,
	)})
}

func (b *AdminBot) createPromo(ctx context.Context, chatID int64, text string) {
	code, name, description, err := service.ParseCreateInput(text)
	if err == nil {
		var promo *models.PromoCode
		promo, err = b.promos.Create(ctx, code, name, description)
		if err == nil {
			b.log.Info("promo created by admin", "code", promo.Code, "admin_id", chatID)
			b.setState(ctx, chatID, AdminMenu{})
			b.send(ctx, Outgoing{ChatID: chatID, Text: fmt.Sprintf(msgAdminPromoCreated, promo.Code, promo.ProductName), Keyboard: adminMenu()})
			return
		}
	}
	if errors.Is(err, service.ErrPromoInvalid) {
		b.send(ctx, Outgoing{ChatID: chatID, Text: fmt.Sprintf(msgAdminPromoBad, err.Error())})
		return
	}
	b.log.Error("create promo", "admin_id", chatID, "err", err)
	b.replyFailure(ctx, chatID)
}

func (b *AdminBot) askBroadcastText(ctx context.Context, chatID int64, audience models.Audience) {
	b.setState(ctx, chatID, BroadcastText{Audience: audience})
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminBroadcastText})
}

func (b *AdminBot) previewBroadcast(ctx context.Context, chatID int64, audience models.Audience, text string) {
	msg, err := b.broadcasts.Create(ctx, text, audience, chatID)
	if errors.Is(err, service.ErrBroadcastEmpty) {
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminBroadcastText})
		return
	}
	if err != nil {
		b.log.Error("create broadcast", "admin_id", chatID, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	count, err := b.broadcasts.RecipientCount(ctx, audience)
	if err != nil {
		b.log.Error("count recipients", "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	b.setState(ctx, chatID, AdminMenu{})
	b.send(ctx, Outgoing{
		ChatID:   chatID,
		Text:     fmt.Sprintf(msgAdminBroadcastView, audience, count, msg.Text),
		Keyboard: confirmation(cbBroadcastSend + msg.MessageID),
	})
}

// startBroadcast delivers in the background so the dispatcher slot is
// released while recipients are paced.
func (b *AdminBot) startBroadcast(ctx context.Context, chatID int64, id string) {
	msg, err := b.broadcasts.Get(ctx, id)
	if err != nil {
		b.log.Error("get broadcast", "id", id, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	if msg == nil || msg.Status == models.BroadcastStatusSent {
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminBroadcastGone})
		return
	}

	b.sending.Add(1)
	go func() {
		defer b.sending.Done()
		if _, err := b.broadcasts.Send(ctx, id, chatID); err != nil {
			if errors.Is(err, service.ErrBroadcastAlreadySent) || errors.Is(err, service.ErrBroadcastNotFound) {
				b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminBroadcastGone})
				return
			}
			b.log.Error("send broadcast", "id", id, "err", err)
			b.replyFailure(ctx, chatID)
		}
	}()
}

func (b *AdminBot) showHistory(ctx context.Context, chatID int64) {
	recent, err := b.broadcasts.Recent(ctx, historyLimit)
	if err != nil {
		b.log.Error("list broadcasts", "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	if len(recent) == 0 {
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgAdminHistoryEmpty})
		return
	}
	var sb strings.Builder
	sb.WriteString(msgAdminHistoryHeader)
	for _, m := range recent {
		fmt.Fprintf(&sb, msgAdminHistoryEntry, m.CreatedAt.Format("02.01 15:04"), m.Status, m.TargetAudience, m.DeliveredCount, m.BlockedCount, m.FailedCount)
	}
	b.send(ctx, Outgoing{ChatID: chatID, Text: sb.String()})
}

func (b *AdminBot) setState(ctx context.Context, chatID int64, state AdminState) {
	if err := b.states.Set(ctx, chatID, state); err != nil {
		b.log.Error("save admin state", "chat_id", chatID, "err", err)
	}
}

func (b *AdminBot) send(ctx context.Context, out Outgoing) {
	if err := b.msgr.Send(ctx, out); err != nil {
		b.log.Warn("send message", "chat_id", out.ChatID, "err", err)
	}
}
