package telegram

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/service"
	"github.com/digkill/TGPromoNFTBot/internal/session"
)

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []Outgoing
	callbacks []string
	sendErr   map[int64]error
}

func (m *fakeMessenger) Send(_ context.Context, out Outgoing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.sendErr[out.ChatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, out)
	return nil
}

func (m *fakeMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.Send(ctx, Outgoing{ChatID: chatID, Text: text})
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callbackID)
	m.mu.Unlock()
	return nil
}

func (m *fakeMessenger) to(chatID int64) []Outgoing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Outgoing
	for _, o := range m.sent {
		if o.ChatID == chatID {
			out = append(out, o)
		}
	}
	return out
}

func (m *fakeMessenger) last(chatID int64) Outgoing {
	msgs := m.to(chatID)
	if len(msgs) == 0 {
		return Outgoing{}
	}
	return msgs[len(msgs)-1]
}

type fakeExplorer struct{}

func (fakeExplorer) ExplorerURL(txHash string) string { return "https://explorer.test/transaction/" + txHash }

func (fakeExplorer) NftExplorerURL(addr string) string { return "https://explorer.test/" + addr }

type env struct {
	sessions   *session.MemoryStore
	promos     *repository.PromoRepository
	nfts       *repository.NftRepository
	users      *service.UserService
	redemption *service.RedemptionService
	nftSvc     *service.NftService
	promoSvc   *service.PromoService
	broadcasts *service.BroadcastService
	client     *fakeMessenger
	admin      *fakeMessenger
	log        *slog.Logger
}

type noopSigner struct{}

func (noopSigner) SendTransfer(context.Context, string, tlb.Coins, *cell.Cell) (string, error) {
	return "", nil
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := docstore.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	promos := repository.NewPromoRepository(store)
	nfts := repository.NewNftRepository(store)
	users := service.NewUserService(repository.NewUserRepository(store))
	nftSvc := service.NewNftService(service.NftConfig{}, log, noopSigner{}, nil, nfts, promos, m)
	client, admin := &fakeMessenger{}, &fakeMessenger{}
	return &env{
		sessions:   session.NewMemoryStore(),
		promos:     promos,
		nfts:       nfts,
		users:      users,
		redemption: service.NewRedemptionService(log, promos, users, nftSvc, m),
		nftSvc:     nftSvc,
		promoSvc:   service.NewPromoService(promos, nfts, users),
		broadcasts: service.NewBroadcastService(log, repository.NewBroadcastRepository(store), users, client, admin, m),
		client:     client,
		admin:      admin,
		log:        log,
	}
}

func (e *env) clientBot() *Bot {
	states := NewClientStates(e.sessions, time.Hour)
	return NewBot(BotConfig{CafeWalletAddress: "UQcafe", MaxConcurrent: 4}, nil, e.client, e.log, states, e.users, e.redemption, e.nftSvc, fakeExplorer{})
}

func (e *env) adminBot(adminIDs ...int64) *AdminBot {
	states := NewAdminStates(e.sessions, time.Hour)
	return NewAdminBot(AdminBotConfig{AdminIDs: adminIDs, MaxConcurrent: 4}, nil, e.admin, e.log, states, e.promoSvc, e.broadcasts)
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, UserName: "guest"},
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func keyboardData(kb *tgbotapi.InlineKeyboardMarkup) []string {
	if kb == nil {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}
