package telegram

import (
	"sync"

	"babelgram/sources/classifier"
	"babelgram/sources/multiplexer"
	"babelgram/sources/platform"
	"babelgram/sources/throttler"
	"babelgram/sources/tracing"
	"babelgram/sources/translation"
	"babelgram/sources/uistate"
)

// Companion is the application-level wiring for one user: a view entering
// a conversation subscribes to its shared messages feed, incoming messages
// run through the classifier, and the flagged ones are handed to the
// translation manager for proactive generation.
type Companion struct {
	feeds      *FeedSource
	mux        *multiplexer.Multiplexer
	classifier *classifier.Classifier
	manager    *translation.Manager
	panels     *uistate.StateStore
	throttle   *throttler.Throttler
	config     *TelegramConfig
	log        *tracing.Logger

	mu            sync.Mutex
	subscriptions map[platform.ConversationID]multiplexer.Unsubscribe
}

func NewCompanion(feeds *FeedSource, mux *multiplexer.Multiplexer, cls *classifier.Classifier, manager *translation.Manager, panels *uistate.StateStore, throttle *throttler.Throttler, config *TelegramConfig, log *tracing.Logger) *Companion {
	return &Companion{
		feeds:         feeds,
		mux:           mux,
		classifier:    cls,
		manager:       manager,
		panels:        panels,
		throttle:      throttle,
		config:        config,
		log:           log,
		subscriptions: make(map[platform.ConversationID]multiplexer.Unsubscribe),
	}
}

// EnterConversation is called when a view gains focus on a conversation.
// The feed subscription is shared and cached, so a second surface showing
// the same conversation reuses the live upstream and immediately receives
// the last known batch.
func (x *Companion) EnterConversation(log *tracing.Logger, conversationID platform.ConversationID) error {
	x.panels.OnFocus(log, conversationID)

	x.mu.Lock()
	if _, active := x.subscriptions[conversationID]; active {
		x.mu.Unlock()
		return nil
	}
	x.mu.Unlock()

	unsubscribe, err := x.mux.Subscribe(
		FeedKey(conversationID),
		x.feeds.OpenFeed(conversationID),
		func(value any) { x.handleBatch(log, conversationID, value) },
		multiplexer.Options{Cache: true, Shared: true},
	)
	if err != nil {
		return err
	}

	x.mu.Lock()
	x.subscriptions[conversationID] = unsubscribe
	x.mu.Unlock()

	log.I("Conversation entered", tracing.ConversationId, int64(conversationID))
	return nil
}

// LeaveConversation is called when the view loses focus. In-flight
// translations are left to finish and land in the cache; only the UI
// state is cleared, subject to the translate-all exemption.
func (x *Companion) LeaveConversation(log *tracing.Logger, conversationID platform.ConversationID) {
	x.mu.Lock()
	unsubscribe, active := x.subscriptions[conversationID]
	delete(x.subscriptions, conversationID)
	x.mu.Unlock()

	if active {
		unsubscribe()
	}
	x.panels.OnBlur(log, conversationID)

	log.I("Conversation left", tracing.ConversationId, int64(conversationID))
}

// ShowTranslation is the user tapping the translation affordance: fetch
// on demand (served from cache when valid) and expand the panel.
func (x *Companion) ShowTranslation(log *tracing.Logger, conversationID platform.ConversationID, msg platform.Message) (*translation.Entry, error) {
	entry, err := x.manager.Translate(log, conversationID, msg, x.config.UserLanguage)
	if err != nil {
		return nil, err
	}

	x.panels.Toggle(log, conversationID, msg.ID)
	return entry, nil
}

// EnableTranslateAll switches the conversation into persistent bulk mode.
func (x *Companion) EnableTranslateAll(log *tracing.Logger, conversationID platform.ConversationID, msgs []platform.Message) int {
	return x.manager.TranslateAll(log, conversationID, msgs, x.config.UserLanguage)
}

func (x *Companion) handleBatch(log *tracing.Logger, conversationID platform.ConversationID, value any) {
	batch, ok := value.(platform.Batch)
	if !ok {
		return
	}

	flagged := make([]platform.Message, 0, len(batch.Messages))
	for _, msg := range batch.Messages {
		if msg.Outgoing || msg.Text == "" {
			continue
		}
		if result := x.classifier.Classify(log, msg.Text, x.config.UserLanguage); !result.IsSameLanguage {
			flagged = append(flagged, msg)
		}
	}
	if len(flagged) == 0 {
		return
	}

	if x.manager.TranslateAllActive(log, conversationID) {
		go x.manager.TranslateAll(log, conversationID, flagged, x.config.UserLanguage)
		return
	}

	if x.throttle.IsAllowed(conversationID) {
		go x.manager.Prefetch(log, conversationID, flagged, x.config.UserLanguage)
	}
}
