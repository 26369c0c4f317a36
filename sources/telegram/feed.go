package telegram

import (
	"fmt"
	"sync"
	"time"

	"babelgram/sources/multiplexer"
	"babelgram/sources/platform"
	"babelgram/sources/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// FeedSource adapts the single shared Telegram updates channel into
// per-conversation message feeds for the multiplexer. One poll loop feeds
// every conversation; the multiplexer keeps each conversation down to one
// logical subscription.
type FeedSource struct {
	bot    *tgbotapi.BotAPI
	config *TelegramConfig
	log    *tracing.Logger

	mu       sync.Mutex
	emitters map[platform.ConversationID]map[string]func(value any)
	windows  map[platform.ConversationID][]platform.Message
}

func NewFeedSource(bot *tgbotapi.BotAPI, config *TelegramConfig, log *tracing.Logger) *FeedSource {
	return &FeedSource{
		bot:      bot,
		config:   config,
		log:      log,
		emitters: make(map[platform.ConversationID]map[string]func(value any)),
		windows:  make(map[platform.ConversationID][]platform.Message),
	}
}

// FeedKey names the logical messages feed of a conversation.
func FeedKey(conversationID platform.ConversationID) string {
	return fmt.Sprintf("messages:%d", conversationID)
}

// OpenFeed returns the upstream opener for one conversation, in the shape
// the multiplexer expects. The current message window, when present, is
// emitted immediately so a fresh feed starts with data.
func (x *FeedSource) OpenFeed(conversationID platform.ConversationID) multiplexer.OpenFeedFunc {
	return func(emit func(value any)) (multiplexer.Teardown, error) {
		id := uuid.NewString()

		x.mu.Lock()
		if x.emitters[conversationID] == nil {
			x.emitters[conversationID] = make(map[string]func(value any))
		}
		x.emitters[conversationID][id] = emit
		window := x.snapshotLocked(conversationID)
		x.mu.Unlock()

		if len(window.Messages) > 0 {
			emit(window)
		}

		teardown := func() {
			x.mu.Lock()
			delete(x.emitters[conversationID], id)
			if len(x.emitters[conversationID]) == 0 {
				delete(x.emitters, conversationID)
			}
			x.mu.Unlock()
		}
		return teardown, nil
	}
}

// Poll consumes the bot updates channel until Stop is called.
func (x *FeedSource) Poll() {
	update := tgbotapi.NewUpdate(0)
	update.Timeout = x.config.Timeout
	update.AllowedUpdates = x.config.AllowedUpdates

	for update := range x.bot.GetUpdatesChan(update) {
		msg := update.Message
		if msg == nil {
			msg = update.EditedMessage
		}
		if msg == nil || msg.Chat == nil {
			continue
		}

		x.ingest(msg)
	}
}

func (x *FeedSource) Stop() {
	x.bot.StopReceivingUpdates()
}

func (x *FeedSource) ingest(msg *tgbotapi.Message) {
	conversationID := platform.ConversationID(msg.Chat.ID)

	message := platform.Message{
		ID:             platform.MessageID(msg.MessageID),
		ConversationID: conversationID,
		Text:           msg.Text,
		SentAt:         time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		message.SenderID = msg.From.ID
		message.Outgoing = msg.From.ID == x.bot.Self.ID
	}

	x.mu.Lock()
	window := append(x.windows[conversationID], message)
	if len(window) > x.config.WindowSize {
		window = window[len(window)-x.config.WindowSize:]
	}
	x.windows[conversationID] = window
	batch := x.snapshotLocked(conversationID)
	emitters := make([]func(value any), 0, len(x.emitters[conversationID]))
	for _, emit := range x.emitters[conversationID] {
		emitters = append(emitters, emit)
	}
	x.mu.Unlock()

	x.log.D("Message ingested", tracing.ConversationId, msg.Chat.ID, tracing.MessageId, msg.MessageID)

	for _, emit := range emitters {
		emit(batch)
	}
}

func (x *FeedSource) snapshotLocked(conversationID platform.ConversationID) platform.Batch {
	window := x.windows[conversationID]
	messages := make([]platform.Message, len(window))
	copy(messages, window)
	return platform.Batch{ConversationID: conversationID, Messages: messages}
}
