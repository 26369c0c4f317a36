package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"babelgram/sources/features"
	"babelgram/sources/metrics"
	"babelgram/sources/persistence"
	"babelgram/sources/platform"
	"babelgram/sources/texting"
	"babelgram/sources/texting/transform"
	"babelgram/sources/tracing"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// FeatureSource is the slice of the feature manager the translation layer
// needs.
type FeatureSource interface {
	IsEnabledDefault(featureName string, defaultValue bool) bool
}

// UsageSource reserves budget before provider calls and records the spend
// of the ones that completed. A nil source disables usage accounting.
type UsageSource interface {
	CheckAndReserve(log *tracing.Logger, conversationID platform.ConversationID, n int) error
	RecordSpend(log *tracing.Logger, conversationID platform.ConversationID, calls int)
}

// Manager serves cached translations and generates missing ones through
// three entry points: on demand for one message, proactively for the
// recent window of a conversation, and in bulk for translate-all mode.
// All three funnel results through one merge path: the per-conversation
// map is replaced wholesale, never mutated in place, and the merged map is
// persisted to the vault in the background. Reads check entry age, so an
// expired entry is simply regenerated on the next request.
type Manager struct {
	config    *TranslationConfig
	providers ProviderSource
	vault     persistence.Vault
	usage     UsageSource
	flags     FeatureSource
	metrics   *metrics.MetricsService

	mu            sync.Mutex
	conversations map[platform.ConversationID]map[string]Entry
	loaded        map[platform.ConversationID]bool
	translateAll  map[platform.ConversationID]*bool
	// failed remembers background translation failures for the session so
	// the proactive and bulk paths don't retry them on every batch; an
	// explicit on-demand request still goes through and clears the mark.
	failed map[platform.ConversationID]map[string]bool

	group singleflight.Group
	pace  *rate.Limiter
	now   func() time.Time
}

func NewManager(config *TranslationConfig, providers ProviderSource, vault persistence.Vault, usage UsageSource, flags FeatureSource, metrics *metrics.MetricsService) *Manager {
	return &Manager{
		config:        config,
		providers:     providers,
		vault:         vault,
		usage:         usage,
		flags:         flags,
		metrics:       metrics,
		conversations: make(map[platform.ConversationID]map[string]Entry),
		loaded:        make(map[platform.ConversationID]bool),
		translateAll:  make(map[platform.ConversationID]*bool),
		failed:        make(map[platform.ConversationID]map[string]bool),
		// Fixed interval between batches, deliberately not adaptive.
		pace: rate.NewLimiter(rate.Every(config.BatchInterval), 1),
		now:  time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (x *Manager) WithClock(now func() time.Time) *Manager {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.now = now
	return x
}

// Translate is the on-demand path: memory mirror, then the vault-loaded
// tier, then exactly one provider call for this message. Concurrent
// requests for the same (conversation, message, language) collapse into a
// single flight; a message with a valid cached entry never reaches the
// provider again.
func (x *Manager) Translate(log *tracing.Logger, conversationID platform.ConversationID, msg platform.Message, targetLanguage string) (*Entry, error) {
	defer tracing.ProfilePoint(log, "On-demand translation completed", "translation.manager.translate", tracing.ConversationId, int64(conversationID), tracing.MessageId, int64(msg.ID))()

	x.ensureLoaded(log, conversationID)

	if entry, ok := x.cached(conversationID, msg.ID, targetLanguage); ok {
		x.metrics.TranslationCacheRead("memory", "hit")
		return entry, nil
	}
	x.metrics.TranslationCacheRead("memory", "miss")

	flightKey := fmt.Sprintf("%d:%s:%d", conversationID, targetLanguage, msg.ID)
	value, err, _ := x.group.Do(flightKey, func() (any, error) {
		if entry, ok := x.cached(conversationID, msg.ID, targetLanguage); ok {
			return entry, nil
		}
		if x.usage != nil {
			if err := x.usage.CheckAndReserve(log, conversationID, 1); err != nil {
				return nil, err
			}
		}

		entry, err := x.translateOne(log, conversationID, msg, targetLanguage)
		if err != nil {
			x.metrics.TranslationIssued("ondemand", "error")
			return nil, err
		}
		x.metrics.TranslationIssued("ondemand", "ok")

		x.merge(log, conversationID, map[string]Entry{entryKey(targetLanguage, msg.ID): *entry})
		if x.usage != nil {
			x.usage.RecordSpend(log, conversationID, 1)
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Entry), nil
}

// Prefetch proactively translates the recent incoming window of a
// conversation. Returns the number of entries generated.
func (x *Manager) Prefetch(log *tracing.Logger, conversationID platform.ConversationID, msgs []platform.Message, targetLanguage string) int {
	if !x.flags.IsEnabledDefault(features.FeatureTranslationProactive, true) {
		log.D("Proactive translation disabled by feature flag")
		return 0
	}

	x.ensureLoaded(log, conversationID)
	pending := x.pending(conversationID, msgs, targetLanguage, x.config.ProactiveWindow)
	if len(pending) == 0 {
		return 0
	}

	log.I("Proactive translation started", tracing.ConversationId, int64(conversationID), tracing.BatchSize, x.config.BatchSize, "pending", len(pending))
	return x.translateBatches(log, "proactive", conversationID, pending, targetLanguage)
}

// TranslateAll turns on the conversation-wide persistent mode and fills
// the bulk window. The flag survives navigation and suppresses the
// focus-based clearing of UI state.
func (x *Manager) TranslateAll(log *tracing.Logger, conversationID platform.ConversationID, msgs []platform.Message, targetLanguage string) int {
	x.SetTranslateAll(log, conversationID, true)

	x.ensureLoaded(log, conversationID)
	pending := x.pending(conversationID, msgs, targetLanguage, x.config.BulkWindow)
	if len(pending) == 0 {
		return 0
	}

	log.I("Bulk translation started", tracing.ConversationId, int64(conversationID), tracing.TranslateAll, true, "pending", len(pending))
	return x.translateBatches(log, "bulk", conversationID, pending, targetLanguage)
}

// Cached returns the valid cache entry for a message, consulting the
// durable tier on first touch of the conversation. No network.
func (x *Manager) Cached(log *tracing.Logger, conversationID platform.ConversationID, messageID platform.MessageID, targetLanguage string) (*Entry, bool) {
	x.ensureLoaded(log, conversationID)
	entry, ok := x.cached(conversationID, messageID, targetLanguage)
	if ok {
		x.metrics.TranslationCacheRead("memory", "hit")
	} else {
		x.metrics.TranslationCacheRead("memory", "miss")
	}
	return entry, ok
}

// TranslateAllActive reports whether the persistent translate-all flag is
// set for the conversation, loading it from the vault on first ask.
func (x *Manager) TranslateAllActive(log *tracing.Logger, conversationID platform.ConversationID) bool {
	x.mu.Lock()
	if flag := x.translateAll[conversationID]; flag != nil {
		active := *flag
		x.mu.Unlock()
		return active
	}
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeout(context.Background())
	defer cancel()

	active := false
	if data, err := x.vault.Get(ctx, x.flagVaultKey(conversationID)); err == nil && len(data) > 0 {
		active = string(data) == "1"
	} else if err != nil {
		log.E("Failed to load translate-all flag", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	}

	x.mu.Lock()
	x.translateAll[conversationID] = platform.BoolPtr(active)
	x.mu.Unlock()
	return active
}

func (x *Manager) SetTranslateAll(log *tracing.Logger, conversationID platform.ConversationID, active bool) {
	x.mu.Lock()
	x.translateAll[conversationID] = platform.BoolPtr(active)
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeout(context.Background())
	defer cancel()

	var err error
	if active {
		err = x.vault.Set(ctx, x.flagVaultKey(conversationID), []byte("1"))
	} else {
		err = x.vault.Remove(ctx, x.flagVaultKey(conversationID))
	}
	if err != nil {
		log.E("Failed to persist translate-all flag", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	}

	log.I("Translate-all mode changed", tracing.ConversationId, int64(conversationID), tracing.TranslateAll, active)
}

// pending filters the window down to incoming messages without a valid
// cached translation, oldest first. Messages that already failed in a
// background run this session are excluded; they are retried only through
// the explicit on-demand path.
func (x *Manager) pending(conversationID platform.ConversationID, msgs []platform.Message, targetLanguage string, window int) []platform.Message {
	start := 0
	if len(msgs) > window {
		start = len(msgs) - window
	}

	var pending []platform.Message
	for _, msg := range msgs[start:] {
		if msg.Outgoing || msg.Text == "" {
			continue
		}
		if _, ok := x.cached(conversationID, msg.ID, targetLanguage); ok {
			continue
		}
		if x.isFailed(conversationID, entryKey(targetLanguage, msg.ID)) {
			continue
		}
		pending = append(pending, msg)
	}
	return pending
}

func (x *Manager) markFailed(conversationID platform.ConversationID, key string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failed[conversationID] == nil {
		x.failed[conversationID] = make(map[string]bool)
	}
	x.failed[conversationID][key] = true
}

func (x *Manager) isFailed(conversationID platform.ConversationID, key string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.failed[conversationID][key]
}

// translateBatches runs fixed-size concurrent batches with a constant
// interval between them. A failed message loses only its own slot; the
// rest of its batch still lands in the cache.
func (x *Manager) translateBatches(log *tracing.Logger, entrypoint string, conversationID platform.ConversationID, msgs []platform.Message, targetLanguage string) int {
	translated := 0

	for batchStart := 0; batchStart < len(msgs); batchStart += x.config.BatchSize {
		batchEnd := batchStart + x.config.BatchSize
		if batchEnd > len(msgs) {
			batchEnd = len(msgs)
		}
		batch := msgs[batchStart:batchEnd]

		if err := x.pace.Wait(context.Background()); err != nil {
			break
		}
		if x.usage != nil {
			if err := x.usage.CheckAndReserve(log, conversationID, len(batch)); err != nil {
				log.W("Translation budget exhausted, stopping batches", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
				break
			}
		}

		results := make([]*Entry, len(batch))
		var wg sync.WaitGroup
		for i, msg := range batch {
			wg.Add(1)
			go func(i int, msg platform.Message) {
				defer wg.Done()
				entry, err := x.translateOne(log, conversationID, msg, targetLanguage)
				if err != nil {
					log.W("Batch member translation failed", tracing.MessageId, int64(msg.ID), tracing.BatchIndex, i, tracing.InnerError, err)
					x.metrics.TranslationIssued(entrypoint, "error")
					return
				}
				x.metrics.TranslationIssued(entrypoint, "ok")
				results[i] = entry
			}(i, msg)
		}
		wg.Wait()

		merged := make(map[string]Entry)
		for i, entry := range results {
			if entry != nil {
				merged[entryKey(targetLanguage, entry.MessageID)] = *entry
			} else {
				x.markFailed(conversationID, entryKey(targetLanguage, batch[i].ID))
			}
		}
		if len(merged) > 0 {
			x.merge(log, conversationID, merged)
			translated += len(merged)
			// Only completed calls cost money; failed slots are not spend.
			if x.usage != nil {
				x.usage.RecordSpend(log, conversationID, len(merged))
			}
		}
	}

	return translated
}

func (x *Manager) translateOne(log *tracing.Logger, conversationID platform.ConversationID, msg platform.Message, targetLanguage string) (*Entry, error) {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 60*time.Second)
	defer cancel()

	text := msg.Text
	if tokens := texting.Tokens(log, text); tokens > x.config.MaxSourceTokens {
		text = transform.SmartTruncate(text, x.config.MaxSourceTokens*4)
		log.W("Source text truncated for translation", tracing.MessageId, int64(msg.ID), tracing.AiTokens, tokens)
	}

	provider := x.providers.Pick()
	result, err := provider.Translate(ctx, log, Request{
		Text:           text,
		TargetLanguage: targetLanguage,
		Formality:      x.config.DefaultFormality,
	})
	if err != nil {
		return nil, err
	}

	return &Entry{
		MessageID:              msg.ID,
		SourceText:             msg.Text,
		TargetLanguage:         targetLanguage,
		TranslatedText:         result.TranslatedText,
		CulturalNotes:          result.CulturalNotes,
		Confidence:             result.Confidence,
		DetectedSourceLanguage: result.DetectedSourceLanguage,
		CreatedAt:              x.now(),
		TTL:                    x.config.EntryTTL,
	}, nil
}

func (x *Manager) cached(conversationID platform.ConversationID, messageID platform.MessageID, targetLanguage string) (*Entry, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.conversations[conversationID][entryKey(targetLanguage, messageID)]
	if !ok || entry.Expired(x.now()) {
		return nil, false
	}
	copied := entry
	return &copied, true
}

// merge is the single cache write path: build the next conversation map
// from the current one plus the new entries, reassign, then persist the
// snapshot in the background. Last write per key wins.
func (x *Manager) merge(log *tracing.Logger, conversationID platform.ConversationID, entries map[string]Entry) {
	x.mu.Lock()
	current := x.conversations[conversationID]
	next := make(map[string]Entry, len(current)+len(entries))
	for key, entry := range current {
		next[key] = entry
	}
	for key, entry := range entries {
		next[key] = entry
		delete(x.failed[conversationID], key)
	}
	x.conversations[conversationID] = next
	x.mu.Unlock()

	go x.persist(log, conversationID, next)
}

// persist mirrors the merged conversation cache into the vault. Failures
// are logged and swallowed: durability is an optimization, the in-memory
// state stays authoritative for the session.
func (x *Manager) persist(log *tracing.Logger, conversationID platform.ConversationID, snapshot map[string]Entry) {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 10*time.Second)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.E("Failed to marshal translation cache", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
		return
	}
	if err := x.vault.Set(ctx, x.cacheVaultKey(conversationID), data); err != nil {
		log.E("Failed to persist translation cache", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
	}
}

// ensureLoaded pulls the durable mirror for a conversation once and lays
// it under whatever is already in memory; memory wins on conflict.
func (x *Manager) ensureLoaded(log *tracing.Logger, conversationID platform.ConversationID) {
	x.mu.Lock()
	if x.loaded[conversationID] {
		x.mu.Unlock()
		return
	}
	x.mu.Unlock()

	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 10*time.Second)
	defer cancel()

	stored := make(map[string]Entry)
	data, err := x.vault.Get(ctx, x.cacheVaultKey(conversationID))
	switch {
	case err != nil:
		log.E("Failed to load translation cache, starting cold", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
		x.metrics.TranslationCacheRead("durable", "error")
	case data == nil:
		x.metrics.TranslationCacheRead("durable", "miss")
	default:
		if err := json.Unmarshal(data, &stored); err != nil {
			log.W("Discarding unreadable translation cache", tracing.ConversationId, int64(conversationID), tracing.InnerError, err)
			stored = make(map[string]Entry)
		} else {
			x.metrics.TranslationCacheRead("durable", "hit")
		}
	}

	x.mu.Lock()
	if !x.loaded[conversationID] {
		next := make(map[string]Entry, len(stored))
		for key, entry := range stored {
			next[key] = entry
		}
		for key, entry := range x.conversations[conversationID] {
			next[key] = entry
		}
		x.conversations[conversationID] = next
		x.loaded[conversationID] = true
	}
	x.mu.Unlock()

	if len(stored) > 0 {
		log.I("Translation cache restored", tracing.ConversationId, int64(conversationID), "entries", len(stored))
	}
}

func (x *Manager) cacheVaultKey(conversationID platform.ConversationID) string {
	return fmt.Sprintf("translations:%d", conversationID)
}

func (x *Manager) flagVaultKey(conversationID platform.ConversationID) string {
	return fmt.Sprintf("translateall:%d", conversationID)
}

// CachedCount reports the number of entries held for a conversation,
// valid or expired.
func (x *Manager) CachedCount(conversationID platform.ConversationID) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.conversations[conversationID])
}

// Reset drops all in-memory state. Intended for tests.
func (x *Manager) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.conversations = make(map[platform.ConversationID]map[string]Entry)
	x.loaded = make(map[platform.ConversationID]bool)
	x.translateAll = make(map[platform.ConversationID]*bool)
	x.failed = make(map[platform.ConversationID]map[string]bool)
}
