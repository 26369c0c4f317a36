package multiplexer

import (
	"fmt"
	"sync"

	"babelgram/sources/metrics"
	"babelgram/sources/tracing"

	"github.com/google/uuid"
)

// Listener receives every value emitted by the feed it is attached to,
// in registration order relative to other listeners of the same feed.
type Listener func(value any)

// Teardown releases the upstream connection of a feed.
type Teardown func()

// OpenFeedFunc opens one upstream connection and returns its teardown
// handle. Every value the upstream produces must be pushed through emit.
type OpenFeedFunc func(emit func(value any)) (Teardown, error)

// Unsubscribe detaches the listener it was returned for. Safe to call
// more than once.
type Unsubscribe func()

type Options struct {
	// Cache keeps the last emitted value and replays it synchronously to
	// every new subscriber.
	Cache bool
	// Shared attaches to an already-open feed with the same key instead
	// of opening a second upstream connection.
	Shared bool
}

type listener struct {
	id uuid.UUID
	fn Listener
}

type feed struct {
	key       string
	refCount  int
	teardown  Teardown
	lastValue any
	hasValue  bool
	cache     bool
	listeners []*listener
}

// Multiplexer deduplicates subscriptions to named live-data feeds: at most
// one upstream connection per key, reference-counted, with fanout to all
// current listeners. Pure data plane, payloads are opaque.
type Multiplexer struct {
	mu      sync.Mutex
	feeds   map[string]*feed
	log     *tracing.Logger
	metrics *metrics.MetricsService
}

func NewMultiplexer(log *tracing.Logger, metrics *metrics.MetricsService) *Multiplexer {
	return &Multiplexer{
		feeds:   make(map[string]*feed),
		log:     log,
		metrics: metrics,
	}
}

// Subscribe attaches onData to the feed named by key, opening the upstream
// through open only when no shared live entry exists. With Options.Cache
// and an existing cached value, onData is invoked synchronously before
// Subscribe returns, so late subscribers never wait for the next emission.
// An open failure is returned to the caller and leaves no registered state.
func (x *Multiplexer) Subscribe(key string, open OpenFeedFunc, onData Listener, opts Options) (Unsubscribe, error) {
	registryKey := key
	if !opts.Shared {
		// Exclusive subscriptions get a private upstream that never
		// dedupes with the shared one.
		registryKey = key + "#" + uuid.NewString()
	}

	x.mu.Lock()

	if entry, live := x.feeds[registryKey]; live && opts.Shared {
		l := &listener{id: uuid.New(), fn: onData}
		entry.listeners = append(entry.listeners, l)
		entry.refCount++

		replay, hasReplay := entry.lastValue, entry.cache && entry.hasValue
		refCount := entry.refCount
		x.mu.Unlock()

		x.log.D("Feed listener attached", tracing.FeedKey, key, tracing.ListenerId, l.id.String(), tracing.RefCount, refCount)
		x.metrics.FeedListenerAttached(key)

		if hasReplay {
			onData(replay)
		}
		return x.unsubscriber(registryKey, l), nil
	}

	entry := &feed{key: key, cache: opts.Cache}
	l := &listener{id: uuid.New(), fn: onData}
	entry.listeners = append(entry.listeners, l)
	entry.refCount = 1
	x.feeds[registryKey] = entry
	x.mu.Unlock()

	teardown, err := open(func(value any) {
		x.fanout(registryKey, value)
	})
	if err != nil {
		x.mu.Lock()
		delete(x.feeds, registryKey)
		x.mu.Unlock()
		x.log.E("Failed to open upstream feed", tracing.FeedKey, key, tracing.InnerError, err)
		return nil, fmt.Errorf("open feed %q: %w", key, err)
	}

	x.mu.Lock()
	entry.teardown = teardown
	x.mu.Unlock()

	x.log.I("Upstream feed opened", tracing.FeedKey, key)
	x.metrics.FeedOpened(key)

	return x.unsubscriber(registryKey, l), nil
}

// fanout stores the value as lastValue when caching is on and delivers it
// to a snapshot of the listener list, in registration order. Delivery runs
// outside the lock so a listener may unsubscribe itself reentrantly.
func (x *Multiplexer) fanout(registryKey string, value any) {
	x.mu.Lock()
	entry, live := x.feeds[registryKey]
	if !live {
		// Upstream emitted after teardown; drop it.
		x.mu.Unlock()
		return
	}
	if entry.cache {
		entry.lastValue = value
		entry.hasValue = true
	}
	snapshot := make([]*listener, len(entry.listeners))
	copy(snapshot, entry.listeners)
	x.mu.Unlock()

	for _, l := range snapshot {
		l.fn(value)
	}
	x.metrics.FeedFanout(entry.key, len(snapshot))
}

func (x *Multiplexer) unsubscriber(registryKey string, l *listener) Unsubscribe {
	return func() {
		x.mu.Lock()
		entry, live := x.feeds[registryKey]
		if !live {
			x.mu.Unlock()
			return
		}

		removed := false
		for i, candidate := range entry.listeners {
			if candidate.id == l.id {
				entry.listeners = append(entry.listeners[:i], entry.listeners[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			x.mu.Unlock()
			return
		}

		entry.refCount--
		if entry.refCount > 0 {
			refCount := entry.refCount
			x.mu.Unlock()
			x.log.D("Feed listener detached", tracing.FeedKey, entry.key, tracing.ListenerId, l.id.String(), tracing.RefCount, refCount)
			return
		}

		teardown := entry.teardown
		delete(x.feeds, registryKey)
		x.mu.Unlock()

		if teardown != nil {
			teardown()
		}
		x.log.I("Upstream feed torn down", tracing.FeedKey, entry.key)
		x.metrics.FeedClosed(entry.key)
	}
}

// LiveFeeds reports the number of currently open upstream connections.
func (x *Multiplexer) LiveFeeds() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.feeds)
}

// Reset tears down every live feed. Intended for tests and shutdown.
func (x *Multiplexer) Reset() {
	x.mu.Lock()
	teardowns := make([]Teardown, 0, len(x.feeds))
	for _, entry := range x.feeds {
		if entry.teardown != nil {
			teardowns = append(teardowns, entry.teardown)
		}
	}
	x.feeds = make(map[string]*feed)
	x.mu.Unlock()

	for _, teardown := range teardowns {
		teardown()
	}
}
