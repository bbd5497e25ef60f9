package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	cbHelp       = "help"
	cbHaveWallet = "have_wallet"
	cbMyNfts     = "my_nfts"

	cbAdminMenu        = "admin_menu"
	cbAdminCreate      = "admin_create_promo"
	cbAdminStats       = "admin_stats"
	cbAdminBroadcast   = "admin_broadcast"
	cbAdminHistory     = "admin_history"
	cbBroadcastAll     = "broadcast_all"
	cbBroadcastVIP     = "broadcast_vip"
	cbBroadcastRegular = "broadcast_regular"
	cbBroadcastSend    = "broadcast_send_"
	cbCancel           = "cancel"
)

func mainMenu(vip bool) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", cbHelp)),
	}
	if vip {
		rows = append([][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎁 Мои NFT", cbMyNfts)),
		}, rows...)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func walletInstructions() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📱 Telegram Wallet", "https://t.me/wallet"),
			tgbotapi.NewInlineKeyboardButtonURL("💎 Tonkeeper", "https://tonkeeper.com/"),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ У меня уже есть кошелек", cbHaveWallet)),
	)
	return &kb
}

func adminMenu() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Создать промокод", cbAdminCreate)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", cbAdminStats)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", cbAdminBroadcast)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📜 История", cbAdminHistory)),
	)
	return &kb
}

func broadcastMenu() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👥 Всем", cbBroadcastAll)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⭐ Только VIP", cbBroadcastVIP)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👤 Обычным", cbBroadcastRegular)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Назад", cbAdminMenu)),
	)
	return &kb
}

func confirmation(confirm string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", confirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", cbCancel),
		),
	)
	return &kb
}
