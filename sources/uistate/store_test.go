package uistate

import (
	"testing"

	"babelgram/sources/persistence"
	"babelgram/sources/platform"
	"babelgram/sources/tracing"
)

type translateAllStub struct {
	active map[platform.ConversationID]bool
}

func (s *translateAllStub) TranslateAllActive(log *tracing.Logger, conversationID platform.ConversationID) bool {
	return s.active[conversationID]
}

func newTestStore(active map[platform.ConversationID]bool) (*StateStore, *persistence.MemoryVault) {
	vault := persistence.NewMemoryVault()
	return NewStateStore(vault, &translateAllStub{active: active}), vault
}

func TestToggleFlipsBetweenHiddenAndShown(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, _ := newTestStore(nil)

	if state := store.Toggle(log, 7, 5); state != TranslationShown {
		t.Errorf("Toggle() = %d, expected TranslationShown", state)
	}
	if !store.IsExpanded(log, 7, 5) {
		t.Errorf("IsExpanded() = false after toggle on")
	}
	if state := store.Toggle(log, 7, 5); state != Hidden {
		t.Errorf("Toggle() = %d, expected Hidden", state)
	}
	if store.IsExpanded(log, 7, 5) {
		t.Errorf("IsExpanded() = true after toggle off")
	}
}

func TestAdvanceThreeStepCycle(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, _ := newTestStore(nil)

	steps := []PanelState{TranslationShown, FullContextShown, Hidden}
	for i, expected := range steps {
		if state := store.Advance(log, 7, 5); state != expected {
			t.Errorf("Advance() step %d = %d, expected %d", i, state, expected)
		}
	}
}

func TestStateIsScopedPerMessageAndConversation(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, _ := newTestStore(nil)

	store.Toggle(log, 7, 5)

	if store.IsExpanded(log, 7, 6) {
		t.Errorf("IsExpanded() leaked across messages")
	}
	if store.IsExpanded(log, 8, 5) {
		t.Errorf("IsExpanded() leaked across conversations")
	}
}

func TestOnBlurClearsEphemeralState(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, vault := newTestStore(nil)

	store.Toggle(log, 7, 5)
	store.Toggle(log, 7, 6)
	store.OnBlur(log, 7)

	if store.IsExpanded(log, 7, 5) || store.IsExpanded(log, 7, 6) {
		t.Errorf("IsExpanded() = true after blur without translate-all")
	}
	if vault.Len() != 0 {
		t.Errorf("vault holds %d entries after blur, expected the durable copy cleared", vault.Len())
	}
}

func TestOnBlurPreservesTranslateAllState(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, _ := newTestStore(map[platform.ConversationID]bool{7: true})

	store.Toggle(log, 7, 5)
	store.OnBlur(log, 7)

	if !store.IsExpanded(log, 7, 5) {
		t.Errorf("IsExpanded() = false after blur with translate-all active")
	}

	// And it survives the focus round trip through the vault.
	store.OnFocus(log, 7)
	if !store.IsExpanded(log, 7, 5) {
		t.Errorf("IsExpanded() = false after refocus, expected the persisted panel back")
	}
}

func TestOnBlurScopesToOneConversation(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, _ := newTestStore(nil)

	store.Toggle(log, 7, 5)
	store.Toggle(log, 8, 5)
	store.OnBlur(log, 7)

	if store.IsExpanded(log, 7, 5) {
		t.Errorf("IsExpanded() = true for the blurred conversation")
	}
	if !store.IsExpanded(log, 8, 5) {
		t.Errorf("IsExpanded() = false for an unrelated conversation")
	}
}

func TestFullContextCollapsesToShownAcrossReload(t *testing.T) {
	log := tracing.NewConsoleLogger()
	store, vault := newTestStore(map[platform.ConversationID]bool{7: true})

	store.Advance(log, 7, 5)
	store.Advance(log, 7, 5)
	if state := store.State(log, 7, 5); state != FullContextShown {
		t.Fatalf("State() = %d, expected FullContextShown", state)
	}

	// Only the expanded bit is durable; a fresh store sees the panel
	// expanded, not the in-memory full-context step.
	fresh := NewStateStore(vault, &translateAllStub{})
	if state := fresh.State(log, 7, 5); state != TranslationShown {
		t.Errorf("State() on a fresh store = %d, expected TranslationShown", state)
	}
}
