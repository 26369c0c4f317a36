package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"babelgram/sources/persistence"
	"babelgram/sources/platform"
	"babelgram/sources/tracing"
)

// scriptedProvider answers deterministically and counts its calls. Texts
// listed in fail come back as errors.
type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Translate(ctx context.Context, log *tracing.Logger, req Request) (*Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.fail[req.Text] {
		return nil, ErrTranslationFailed
	}
	return &Result{TranslatedText: "[translated] " + req.Text, DetectedSourceLanguage: "es"}, nil
}

func (p *scriptedProvider) DetectLanguage(ctx context.Context, text string) (string, float64, error) {
	return "es", 0.9, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixedSource struct {
	provider Provider
}

func (s *fixedSource) Pick() Provider { return s.provider }

type flagStub struct {
	overrides map[string]bool
}

func (f *flagStub) IsEnabledDefault(featureName string, defaultValue bool) bool {
	if f.overrides != nil {
		if value, ok := f.overrides[featureName]; ok {
			return value
		}
	}
	return defaultValue
}

func testConfig() *TranslationConfig {
	return &TranslationConfig{
		EntryTTL:        30 * time.Minute,
		ProactiveWindow: 15,
		BulkWindow:      25,
		BatchSize:       3,
		BatchInterval:   time.Millisecond,
		MaxSourceTokens: 2000,
	}
}

// usageRecorder tallies reservations and recorded spend in memory.
type usageRecorder struct {
	mu       sync.Mutex
	reserved int
	spent    int
	err      error
}

func (u *usageRecorder) CheckAndReserve(log *tracing.Logger, conversationID platform.ConversationID, n int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.reserved += n
	return nil
}

func (u *usageRecorder) RecordSpend(log *tracing.Logger, conversationID platform.ConversationID, calls int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.spent += calls
}

func (u *usageRecorder) totals() (int, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.reserved, u.spent
}

func newTestManager(provider Provider, vault persistence.Vault, overrides map[string]bool) *Manager {
	return NewManager(testConfig(), &fixedSource{provider: provider}, vault, nil, &flagStub{overrides: overrides}, nil)
}

func newTestManagerWithUsage(provider Provider, vault persistence.Vault, usage UsageSource) *Manager {
	return NewManager(testConfig(), &fixedSource{provider: provider}, vault, usage, &flagStub{}, nil)
}

func incoming(id platform.MessageID, text string) platform.Message {
	return platform.Message{ID: id, ConversationID: 7, Text: text}
}

func TestTranslateCachesResult(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	msg := incoming(5, "Hola mundo")
	entry, err := manager.Translate(log, 7, msg, "en")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if entry.TranslatedText != "[translated] Hola mundo" {
		t.Errorf("Translate() = %q, unexpected text", entry.TranslatedText)
	}
	if entry.MessageID != 5 || entry.TargetLanguage != "en" {
		t.Errorf("Translate() entry = %+v, wrong identity fields", entry)
	}

	// Repeat requests are served from the cache, no second provider call.
	again, err := manager.Translate(log, 7, msg, "en")
	if err != nil {
		t.Fatalf("Translate() repeat error = %v", err)
	}
	if again.TranslatedText != entry.TranslatedText {
		t.Errorf("Translate() repeat = %q, expected cached %q", again.TranslatedText, entry.TranslatedText)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, expected 1", provider.callCount())
	}
}

func TestTranslateDistinctTargetLanguages(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	msg := incoming(5, "Hola mundo")
	if _, err := manager.Translate(log, 7, msg, "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if _, err := manager.Translate(log, 7, msg, "de"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, expected one call per target language", provider.callCount())
	}
	if manager.CachedCount(7) != 2 {
		t.Errorf("CachedCount() = %d, expected 2", manager.CachedCount(7))
	}
}

func TestTranslateExpiredEntryRegenerates(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil).WithClock(func() time.Time { return current })

	msg := incoming(5, "Hola mundo")
	if _, err := manager.Translate(log, 7, msg, "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	current = base.Add(29 * time.Minute)
	if _, err := manager.Translate(log, 7, msg, "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times before TTL, expected 1", provider.callCount())
	}

	current = base.Add(31 * time.Minute)
	if _, err := manager.Translate(log, 7, msg, "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times after TTL, expected regeneration", provider.callCount())
	}
}

func TestPrefetchTranslatesRecentWindow(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	var msgs []platform.Message
	for i := 1; i <= 20; i++ {
		msgs = append(msgs, incoming(platform.MessageID(i), fmt.Sprintf("mensaje %d", i)))
	}

	translated := manager.Prefetch(log, 7, msgs, "en")
	if translated != 15 {
		t.Errorf("Prefetch() = %d, expected the proactive window of 15", translated)
	}
	if _, ok := manager.Cached(log, 7, 20, "en"); !ok {
		t.Errorf("Cached() missed the newest windowed message")
	}
	if _, ok := manager.Cached(log, 7, 5, "en"); ok {
		t.Errorf("Cached() found a message outside the proactive window")
	}
}

func TestPrefetchSkipsOutgoingAndCached(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	if _, err := manager.Translate(log, 7, incoming(1, "ya traducido"), "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	before := provider.callCount()

	msgs := []platform.Message{
		incoming(1, "ya traducido"),
		{ID: 2, ConversationID: 7, Text: "mi respuesta", Outgoing: true},
		{ID: 3, ConversationID: 7, Text: ""},
		incoming(4, "mensaje nuevo"),
	}

	translated := manager.Prefetch(log, 7, msgs, "en")
	if translated != 1 {
		t.Errorf("Prefetch() = %d, expected only the one untranslated incoming message", translated)
	}
	if provider.callCount() != before+1 {
		t.Errorf("provider called %d extra times, expected 1", provider.callCount()-before)
	}
}

func TestPrefetchDisabledByFlag(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	manager := newTestManager(provider, persistence.NewMemoryVault(), map[string]bool{"translation/proactive": false})

	translated := manager.Prefetch(log, 7, []platform.Message{incoming(1, "hola")}, "en")
	if translated != 0 || provider.callCount() != 0 {
		t.Errorf("Prefetch() = %d with %d provider calls, expected none with the flag off", translated, provider.callCount())
	}
}

func TestBatchFailureLosesOnlyItsSlot(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{fail: map[string]bool{"mensaje 2": true}}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	msgs := []platform.Message{
		incoming(1, "mensaje 1"),
		incoming(2, "mensaje 2"),
		incoming(3, "mensaje 3"),
	}

	translated := manager.Prefetch(log, 7, msgs, "en")
	if translated != 2 {
		t.Errorf("Prefetch() = %d, expected the two surviving batch members", translated)
	}
	if _, ok := manager.Cached(log, 7, 1, "en"); !ok {
		t.Errorf("Cached() missed message 1 after a sibling failure")
	}
	if _, ok := manager.Cached(log, 7, 3, "en"); !ok {
		t.Errorf("Cached() missed message 3 after a sibling failure")
	}
	if _, ok := manager.Cached(log, 7, 2, "en"); ok {
		t.Errorf("Cached() returned an entry for the failed message")
	}
}

func TestBatchFailureNotRetriedByPrefetch(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{fail: map[string]bool{"mensaje 2": true}}
	manager := newTestManager(provider, persistence.NewMemoryVault(), nil)

	msgs := []platform.Message{
		incoming(1, "mensaje 1"),
		incoming(2, "mensaje 2"),
		incoming(3, "mensaje 3"),
	}

	if translated := manager.Prefetch(log, 7, msgs, "en"); translated != 2 {
		t.Fatalf("Prefetch() = %d, expected 2", translated)
	}
	calls := provider.callCount()

	// The failed message stays off the proactive path; the siblings are
	// cached, so the next batch issues nothing at all.
	if translated := manager.Prefetch(log, 7, msgs, "en"); translated != 0 {
		t.Errorf("Prefetch() retry = %d, expected 0", translated)
	}
	if provider.callCount() != calls {
		t.Errorf("provider called %d extra times, expected background retries suppressed", provider.callCount()-calls)
	}

	// An explicit request still goes through and clears the mark.
	provider.fail = nil
	if _, err := manager.Translate(log, 7, incoming(2, "mensaje 2"), "en"); err != nil {
		t.Fatalf("Translate() after failure error = %v", err)
	}
	if _, ok := manager.Cached(log, 7, 2, "en"); !ok {
		t.Errorf("Cached() missed the explicitly retried message")
	}
}

func TestSpendChargedOnlyForCompletedCalls(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{fail: map[string]bool{"mensaje 2": true}}
	usage := &usageRecorder{}
	manager := newTestManagerWithUsage(provider, persistence.NewMemoryVault(), usage)

	msgs := []platform.Message{
		incoming(1, "mensaje 1"),
		incoming(2, "mensaje 2"),
		incoming(3, "mensaje 3"),
	}

	if translated := manager.Prefetch(log, 7, msgs, "en"); translated != 2 {
		t.Fatalf("Prefetch() = %d, expected 2", translated)
	}

	reserved, spent := usage.totals()
	if reserved != 3 {
		t.Errorf("reserved = %d, expected the full batch of 3", reserved)
	}
	if spent != 2 {
		t.Errorf("spent = %d, expected only the 2 completed calls charged", spent)
	}

	if _, err := manager.Translate(log, 7, incoming(4, "mensaje 4"), "en"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if _, spent = usage.totals(); spent != 3 {
		t.Errorf("spent after on-demand call = %d, expected 3", spent)
	}
}

func TestTranslateRespectsUsageLimit(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	usage := &usageRecorder{err: ErrUsageLimited}
	manager := newTestManagerWithUsage(provider, persistence.NewMemoryVault(), usage)

	if _, err := manager.Translate(log, 7, incoming(1, "hola"), "en"); !errors.Is(err, ErrUsageLimited) {
		t.Errorf("Translate() error = %v, expected ErrUsageLimited", err)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times over budget, expected 0", provider.callCount())
	}
}

func TestTranslateAllSetsPersistentFlag(t *testing.T) {
	log := tracing.NewConsoleLogger()
	provider := &scriptedProvider{}
	vault := persistence.NewMemoryVault()
	manager := newTestManager(provider, vault, nil)

	translated := manager.TranslateAll(log, 7, []platform.Message{incoming(1, "hola"), incoming(2, "mundo")}, "en")
	if translated != 2 {
		t.Errorf("TranslateAll() = %d, expected 2", translated)
	}
	if !manager.TranslateAllActive(log, 7) {
		t.Errorf("TranslateAllActive() = false right after TranslateAll()")
	}

	// The flag lives in the vault, a fresh manager sees it too.
	fresh := newTestManager(provider, vault, nil)
	if !fresh.TranslateAllActive(log, 7) {
		t.Errorf("TranslateAllActive() = false on a fresh manager, expected the persisted flag")
	}

	manager.SetTranslateAll(log, 7, false)
	another := newTestManager(provider, vault, nil)
	if another.TranslateAllActive(log, 7) {
		t.Errorf("TranslateAllActive() = true after the flag was cleared")
	}
}

func TestCachedRestoresFromVault(t *testing.T) {
	log := tracing.NewConsoleLogger()
	vault := persistence.NewMemoryVault()

	stored := map[string]Entry{
		"en:5": {
			MessageID:      5,
			SourceText:     "Hola mundo",
			TargetLanguage: "en",
			TranslatedText: "Hello world",
			CreatedAt:      time.Now(),
			TTL:            30 * time.Minute,
		},
	}
	data, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := vault.Set(context.Background(), "translations:7", data); err != nil {
		t.Fatalf("seed vault: %v", err)
	}

	provider := &scriptedProvider{}
	manager := newTestManager(provider, vault, nil)

	entry, ok := manager.Cached(log, 7, 5, "en")
	if !ok {
		t.Fatalf("Cached() missed the vault-restored entry")
	}
	if entry.TranslatedText != "Hello world" {
		t.Errorf("Cached() = %q, expected the restored translation", entry.TranslatedText)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times on a pure cache read", provider.callCount())
	}
}

func TestCachedIgnoresExpiredVaultEntries(t *testing.T) {
	log := tracing.NewConsoleLogger()
	vault := persistence.NewMemoryVault()

	stored := map[string]Entry{
		"en:5": {
			MessageID:      5,
			TargetLanguage: "en",
			TranslatedText: "stale",
			CreatedAt:      time.Now().Add(-2 * time.Hour),
			TTL:            30 * time.Minute,
		},
	}
	data, _ := json.Marshal(stored)
	if err := vault.Set(context.Background(), "translations:7", data); err != nil {
		t.Fatalf("seed vault: %v", err)
	}

	manager := newTestManager(&scriptedProvider{}, vault, nil)
	if _, ok := manager.Cached(log, 7, 5, "en"); ok {
		t.Errorf("Cached() returned an entry past its TTL")
	}
}
