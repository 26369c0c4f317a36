package uistate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"babelgram/sources/persistence"
	"babelgram/sources/platform"
	"babelgram/sources/tracing"
)

// PanelState is the in-memory state of one message's translation panel.
// Only the flat expanded bit is persisted; the richer three-step cycle
// lives in memory and collapses back to expanded/hidden across restarts.
type PanelState int

const (
	Hidden PanelState = iota
	TranslationShown
	FullContextShown
)

type persistedState struct {
	Expanded  bool      `json:"expanded"`
	Timestamp time.Time `json:"timestamp"`
}

// TranslateAllSource reports whether a conversation is in persistent
// translate-all mode, which exempts its UI state from blur clearing.
type TranslateAllSource interface {
	TranslateAllActive(log *tracing.Logger, conversationID platform.ConversationID) bool
}

// StateStore tracks which translation panels are expanded, per message,
// scoped per conversation. Ephemeral exploratory expansion is wiped when
// the hosting view loses focus; a deliberate translate-all choice keeps
// its state across navigation.
type StateStore struct {
	mu            sync.Mutex
	conversations map[platform.ConversationID]map[platform.MessageID]PanelState
	loaded        map[platform.ConversationID]bool

	vault        persistence.Vault
	translateAll TranslateAllSource
}

func NewStateStore(vault persistence.Vault, translateAll TranslateAllSource) *StateStore {
	return &StateStore{
		conversations: make(map[platform.ConversationID]map[platform.MessageID]PanelState),
		loaded:        make(map[platform.ConversationID]bool),
		vault:         vault,
		translateAll:  translateAll,
	}
}

// Toggle flips a panel between hidden and shown. Used by UI variants
// without the full-context step.
func (x *StateStore) Toggle(log *tracing.Logger, conversationID platform.ConversationID, messageID platform.MessageID) PanelState {
	x.ensureLoaded(log, conversationID)

	x.mu.Lock()
	states := x.statesLocked(conversationID)
	next := Hidden
	if states[messageID] == Hidden {
		next = TranslationShown
	}
	states[messageID] = next
	x.mu.Unlock()

	x.persist(log, conversationID)
	log.D("Translation panel toggled", tracing.ConversationId, int64(conversationID), tracing.MessageId, int64(messageID), "state", int(next))
	return next
}

// Advance walks the three-step cycle: hidden, translation, full context,
// back to hidden.
func (x *StateStore) Advance(log *tracing.Logger, conversationID platform.ConversationID, messageID platform.MessageID) PanelState {
	x.ensureLoaded(log, conversationID)

	x.mu.Lock()
	states := x.statesLocked(conversationID)
	next := (states[messageID] + 1) % 3
	states[messageID] = next
	x.mu.Unlock()

	x.persist(log, conversationID)
	return next
}

func (x *StateStore) State(log *tracing.Logger, conversationID platform.ConversationID, messageID platform.MessageID) PanelState {
	x.ensureLoaded(log, conversationID)
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.conversations[conversationID][messageID]
}

func (x *StateStore) IsExpanded(log *tracing.Logger, conversationID platform.ConversationID, messageID platform.MessageID) bool {
	return x.State(log, conversationID, messageID) != Hidden
}

// OnFocus reloads the durable copy for the conversation, so state saved
// under translate-all mode reappears after navigation.
func (x *StateStore) OnFocus(log *tracing.Logger, conversationID platform.ConversationID) {
	x.mu.Lock()
	delete(x.loaded, conversationID)
	delete(x.conversations, conversationID)
	x.mu.Unlock()

	x.ensureLoaded(log, conversationID)
}

// OnBlur clears all panel state for the conversation, memory and durable,
// unless its translate-all flag is active. The asymmetry is intentional.
func (x *StateStore) OnBlur(log *tracing.Logger, conversationID platform.ConversationID) {
	if x.translateAll != nil && x.translateAll.TranslateAllActive(log, conversationID) {
		log.D("Translate-all active, preserving panel state", tracing.ConversationId, int64(conversationID), tracing.TranslateAll, true)
		return
	}

	x.mu.Lock()
	delete(x.conversations, conversationID)
	delete(x.loaded, conversationID)
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeout(context.Background())
	defer cancel()

	if err := x.vault.Remove(ctx, x.vaultKey(conversationID)); err != nil {
		log.E("Failed to clear persisted panel state", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	}

	log.D("Panel state cleared on blur", tracing.ConversationId, int64(conversationID))
}

func (x *StateStore) statesLocked(conversationID platform.ConversationID) map[platform.MessageID]PanelState {
	states, ok := x.conversations[conversationID]
	if !ok {
		states = make(map[platform.MessageID]PanelState)
		x.conversations[conversationID] = states
	}
	return states
}

func (x *StateStore) persist(log *tracing.Logger, conversationID platform.ConversationID) {
	x.mu.Lock()
	flat := make(map[string]persistedState)
	for messageID, state := range x.conversations[conversationID] {
		if state != Hidden {
			flat[fmt.Sprintf("%d", messageID)] = persistedState{Expanded: true, Timestamp: time.Now()}
		}
	}
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeout(context.Background())
	defer cancel()

	data, err := json.Marshal(flat)
	if err != nil {
		log.E("Failed to marshal panel state", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
		return
	}
	if err := x.vault.Set(ctx, x.vaultKey(conversationID), data); err != nil {
		log.E("Failed to persist panel state", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	}
}

func (x *StateStore) ensureLoaded(log *tracing.Logger, conversationID platform.ConversationID) {
	x.mu.Lock()
	if x.loaded[conversationID] {
		x.mu.Unlock()
		return
	}
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeout(context.Background())
	defer cancel()

	flat := make(map[string]persistedState)
	if data, err := x.vault.Get(ctx, x.vaultKey(conversationID)); err != nil {
		log.E("Failed to load panel state, starting empty", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	} else if data != nil {
		if err := json.Unmarshal(data, &flat); err != nil {
			log.W("Discarding unreadable panel state", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
			flat = make(map[string]persistedState)
		}
	}

	x.mu.Lock()
	if !x.loaded[conversationID] {
		states := x.statesLocked(conversationID)
		for key, stored := range flat {
			var messageID platform.MessageID
			if _, err := fmt.Sscanf(key, "%d", &messageID); err != nil {
				continue
			}
			if stored.Expanded {
				if _, exists := states[messageID]; !exists {
					states[messageID] = TranslationShown
				}
			}
		}
		x.loaded[conversationID] = true
	}
	x.mu.Unlock()
}

func (x *StateStore) vaultKey(conversationID platform.ConversationID) string {
	return fmt.Sprintf("uistate:%d", conversationID)
}

// Reset drops all in-memory state. Intended for tests.
func (x *StateStore) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.conversations = make(map[platform.ConversationID]map[platform.MessageID]PanelState)
	x.loaded = make(map[platform.ConversationID]bool)
}
