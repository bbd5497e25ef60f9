package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the long-polling half of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type updateHandler interface {
	handleUpdate(ctx context.Context, update tgbotapi.Update)
	replyFailure(ctx context.Context, chatID int64)
}

// dispatch handles updates of different chats concurrently, at most limit at
// a time, and updates of one chat strictly in arrival order. A panicking
// handler is logged and answered with a generic failure.
func dispatch(ctx context.Context, name string, src UpdateSource, log *slog.Logger, limit int, h updateHandler) error {
	if limit <= 0 {
		limit = 1
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := src.GetUpdatesChan(u)
	log.Info("telegram bot started", "bot", name)

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	defer wg.Wait()

	// backlog holds updates waiting behind a running worker of the same
	// chat. A key is present while that chat has a worker.
	var mu sync.Mutex
	backlog := make(map[int64][]tgbotapi.Update)

	next := func(chatID int64) (tgbotapi.Update, bool) {
		mu.Lock()
		defer mu.Unlock()
		queue := backlog[chatID]
		if len(queue) == 0 {
			delete(backlog, chatID)
			return tgbotapi.Update{}, false
		}
		backlog[chatID] = queue[1:]
		return queue[0], true
	}

	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			chatID := chatIDOf(update)
			if chatID != 0 {
				mu.Lock()
				queue, busy := backlog[chatID]
				if busy {
					backlog[chatID] = append(queue, update)
					mu.Unlock()
					continue
				}
				backlog[chatID] = nil
				mu.Unlock()
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				src.StopReceivingUpdates()
				return nil
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				defer func() { <-sem }()
				for {
					runUpdate(ctx, name, log, h, update)
					if chatID == 0 {
						return
					}
					var more bool
					if update, more = next(chatID); !more {
						return
					}
				}
			}(update)
		}
	}
}

func runUpdate(ctx context.Context, name string, log *slog.Logger, h updateHandler, update tgbotapi.Update) {
	defer recoverUpdate(ctx, name, log, h, update)
	h.handleUpdate(ctx, update)
}

func recoverUpdate(ctx context.Context, name string, log *slog.Logger, h updateHandler, update tgbotapi.Update) {
	r := recover()
	if r == nil {
		return
	}
	log.Error("update handler panicked", "bot", name, "update_id", update.UpdateID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	if chatID := chatIDOf(update); chatID != 0 {
		h.replyFailure(ctx, chatID)
	}
}

func chatIDOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}
