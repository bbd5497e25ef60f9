package telegram

const (
	msgWelcome = "🍚 <b>Добро пожаловать!</b>\n\nНашли промокод в заказе? Обменяйте его на коллекционный NFT в сети TON."
	msgHelp    = "ℹ️ <b>Как получить NFT</b>\n\n1. Отправьте промокод из заказа.\n2. Укажите адрес своего TON кошелька.\n3. Получите NFT и покажите его на кассе.\n\n/start - начать заново"

	msgEnterPromo     = "Введите промокод:"
	msgInvalidPromo   = "❌ Промокод не найден. Проверьте написание и попробуйте ещё раз."
	msgPromoUsed      = "⚠️ Этот промокод уже использован."
	msgPromoAccepted  = "✅ Промокод принят! Ваш приз: <b>%s</b>"
	msgNoWallet       = "Нет кошелька? Создайте его в одном из приложений:"
	msgEnterWallet    = "Отправьте адрес TON кошелька (48 символов):"
	msgInvalidWallet  = "❌ Неверный адрес кошелька. Адрес содержит 48 символов и начинается с EQ или UQ."
	msgMinting        = "⏳ Выпускаем NFT, это займёт немного времени..."
	msgMintFailed     = "😔 Не удалось выпустить NFT. Попробуйте отправить адрес ещё раз чуть позже."
	msgMinted         = "🎉 <b>NFT готов!</b>\n\nПосмотреть: %s\n\nДля погашения переведите NFT на кошелёк кафе:\n<code>%s</code>"
	msgMintedPending  = "🎉 <b>NFT отправлен в сеть!</b>\n\nТранзакция: %s\nАдрес токена появится после подтверждения.\n\nДля погашения переведите NFT на кошелёк кафе:\n<code>%s</code>"
	msgUnknownCommand = "Неизвестная команда. Используйте /help для справки."
	msgNoNfts         = "У вас пока нет NFT."
	msgNftsHeader     = "💎 <b>Ваши NFT:</b>\n"
	msgFailure        = "Что-то пошло не так. Попробуйте ещё раз."

	msgAdminDenied        = "❌ У вас нет доступа к этому боту."
	msgAdminWelcome       = "🛠 <b>Панель администратора</b>"
	msgAdminUnknown       = "Неизвестная команда. Используйте /menu для главного меню."
	msgAdminCreatePromo   = "Отправьте промокод в формате:\n<code>КОД|Название|Описание</code>"
	msgAdminPromoCreated  = "✅ Промокод <b>%s</b> создан: %s"
	msgAdminPromoBad      = "❌ %s"
	msgAdminStats         = "📊 <b>Статистика</b>\n\nПользователи: %d (VIP: %d)\nПромокоды: %d (активировано: %d, использовано: %d)\nNFT: %d (погашено: %d, ожидают адрес: %d)"
	msgAdminBroadcastMenu = "📢 Кому отправить рассылку?"
	msgAdminBroadcastText = "Отправьте текст рассылки:"
	msgAdminBroadcastView = "📢 <b>Предпросмотр</b>\nАудитория: %s\nПолучателей: %d\n\n%s"
	msgAdminBroadcastGone = "❌ Рассылка не найдена или уже отправлена."
	msgAdminCancelled     = "Отменено."
	msgAdminHistoryEmpty  = "Рассылок пока не было."
	msgAdminHistoryHeader = "📜 <b>Последние рассылки</b>\n"
	msgAdminHistoryEntry  = "\n• %s %s → %s: %d/%d/%d"
)
