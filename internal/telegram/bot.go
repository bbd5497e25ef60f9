package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/service"
)

// Explorer renders links to a block explorer.
type Explorer interface {
	ExplorerURL(txHash string) string
	NftExplorerURL(nftAddress string) string
}

type BotConfig struct {
	CafeWalletAddress string
	MaxConcurrent     int
}

// Bot is the customer-facing bot.
type Bot struct {
	cfg        BotConfig
	src        UpdateSource
	msgr       Messenger
	log        *slog.Logger
	states     *ClientStates
	users      *service.UserService
	redemption *service.RedemptionService
	nfts       *service.NftService
	explorer   Explorer
}

func NewBot(cfg BotConfig, src UpdateSource, msgr Messenger, log *slog.Logger, states *ClientStates, users *service.UserService, redemption *service.RedemptionService, nfts *service.NftService, explorer Explorer) *Bot {
	return &Bot{
		cfg:        cfg,
		src:        src,
		msgr:       msgr,
		log:        log,
		states:     states,
		users:      users,
		redemption: redemption,
		nfts:       nfts,
		explorer:   explorer,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	return dispatch(ctx, "client", b.src, b.log, b.cfg.MaxConcurrent, b)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) replyFailure(ctx context.Context, chatID int64) {
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgFailure})
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	user, err := b.users.Ensure(ctx, chatID, username(msg.From))
	if err != nil {
		b.log.Error("ensure user", "chat_id", chatID, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	state, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Warn("load client state", "chat_id", chatID, "err", err)
	}
	switch st := state.(type) {
	case WaitingForWallet:
		b.handleWallet(ctx, chatID, st.Code, msg.Text)
	default:
		b.handleCode(ctx, chatID, msg.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *models.UserProfile) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.setState(ctx, chatID, WaitingForPromo{})
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgWelcome, Keyboard: mainMenu(user.IsVIP())})
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgEnterPromo})
	case "help":
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgHelp})
	default:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgUnknownCommand})
	}
}

func (b *Bot) handleCode(ctx context.Context, chatID int64, text string) {
	promo, err := b.redemption.SubmitCode(ctx, chatID, text)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCodeRejected):
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgInvalidPromo})
		return
	case errors.Is(err, service.ErrPromoAlreadyUsed):
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgPromoUsed})
		return
	default:
		b.log.Error("submit promo code", "chat_id", chatID, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}

	b.setState(ctx, chatID, WaitingForWallet{Code: promo.Code})
	b.send(ctx, Outgoing{ChatID: chatID, Text: fmt.Sprintf(msgPromoAccepted, promo.ProductName)})
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgNoWallet, Keyboard: walletInstructions()})
}

func (b *Bot) handleWallet(ctx context.Context, chatID int64, code, text string) {
	b.send(ctx, Outgoing{ChatID: chatID, Text: msgMinting})
	result, err := b.redemption.SubmitWallet(ctx, chatID, code, text)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAddressInvalid):
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgInvalidWallet})
		return
	case errors.Is(err, service.ErrPromoAlreadyUsed), errors.Is(err, service.ErrAlreadyMinted), errors.Is(err, service.ErrPromoNotFound):
		b.setState(ctx, chatID, WaitingForPromo{})
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgPromoUsed})
		return
	default:
		b.log.Error("mint nft", "chat_id", chatID, "code", code, "err", err)
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgMintFailed})
		return
	}

	b.setState(ctx, chatID, ClientStart{})
	b.send(ctx, Outgoing{ChatID: chatID, Text: b.mintedText(result), DisablePreview: true, Keyboard: mainMenu(true)})
}

func (b *Bot) mintedText(result *service.MintResult) string {
	if result.NftAddress.Pending {
		return fmt.Sprintf(msgMintedPending, b.explorer.ExplorerURL(result.TxHash), b.cfg.CafeWalletAddress)
	}
	return fmt.Sprintf(msgMinted, b.explorer.NftExplorerURL(result.NftAddress.Value), b.cfg.CafeWalletAddress)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := b.msgr.AnswerCallback(ctx, cb.ID, ""); err != nil {
		b.log.Warn("answer callback", "err", err)
	}
	chatID := chatIDOf(tgbotapi.Update{CallbackQuery: cb})
	if chatID == 0 {
		return
	}

	switch cb.Data {
	case cbHelp:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgHelp})
	case cbHaveWallet:
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgEnterWallet})
	case cbMyNfts:
		b.showTokens(ctx, chatID)
	}
}

func (b *Bot) showTokens(ctx context.Context, chatID int64) {
	user, err := b.users.Get(ctx, chatID)
	if err != nil {
		b.log.Error("get user", "chat_id", chatID, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	if user == nil || user.WalletAddress == "" {
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgNoNfts})
		return
	}
	tokens, err := b.nfts.UserTokens(ctx, user.WalletAddress)
	if err != nil {
		b.log.Error("list user tokens", "chat_id", chatID, "err", err)
		b.replyFailure(ctx, chatID)
		return
	}
	if len(tokens) == 0 {
		b.send(ctx, Outgoing{ChatID: chatID, Text: msgNoNfts})
		return
	}

	var sb strings.Builder
	sb.WriteString(msgNftsHeader)
	for _, t := range tokens {
		link := b.explorer.ExplorerURL(t.MintTxHash)
		if !t.NftAddress.Pending {
			link = b.explorer.NftExplorerURL(t.NftAddress.Value)
		}
		fmt.Fprintf(&sb, "\n• %s (%s)\n%s", t.ProductName, t.Status, link)
	}
	b.send(ctx, Outgoing{ChatID: chatID, Text: sb.String(), DisablePreview: true})
}

func (b *Bot) setState(ctx context.Context, chatID int64, state ClientState) {
	if err := b.states.Set(ctx, chatID, state); err != nil {
		b.log.Error("save client state", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) send(ctx context.Context, out Outgoing) {
	if err := b.msgr.Send(ctx, out); err != nil {
		b.log.Warn("send message", "chat_id", out.ChatID, "err", err)
	}
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}
