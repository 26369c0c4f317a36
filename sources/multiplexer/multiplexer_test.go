package multiplexer

import (
	"errors"
	"testing"

	"babelgram/sources/tracing"
)

// fakeFeed is a scripted upstream: it counts opens and teardowns and lets
// the test push values by hand.
type fakeFeed struct {
	opens     int
	teardowns int
	emit      func(value any)
}

func (f *fakeFeed) open(emit func(value any)) (Teardown, error) {
	f.opens++
	f.emit = emit
	return func() { f.teardowns++ }, nil
}

func newTestMultiplexer() *Multiplexer {
	return NewMultiplexer(tracing.NewConsoleLogger(), nil)
}

func TestSubscribeSharedOpensOnce(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	var first, second []any
	unsubFirst, err := mux.Subscribe("messages:1", feed.open, func(v any) { first = append(first, v) }, Options{Shared: true})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	unsubSecond, err := mux.Subscribe("messages:1", feed.open, func(v any) { second = append(second, v) }, Options{Shared: true})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if feed.opens != 1 {
		t.Errorf("upstream opened %d times, expected 1", feed.opens)
	}
	if mux.LiveFeeds() != 1 {
		t.Errorf("LiveFeeds() = %d, expected 1", mux.LiveFeeds())
	}

	feed.emit("hello")
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("fanout delivered %d/%d values, expected 1/1", len(first), len(second))
	}

	unsubFirst()
	if feed.teardowns != 0 {
		t.Errorf("upstream torn down with a listener still attached")
	}
	unsubSecond()
	if feed.teardowns != 1 {
		t.Errorf("upstream torn down %d times, expected 1", feed.teardowns)
	}
	if mux.LiveFeeds() != 0 {
		t.Errorf("LiveFeeds() after full unsubscribe = %d, expected 0", mux.LiveFeeds())
	}
}

func TestSubscribeExclusiveOpensPerSubscriber(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	if _, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if feed.opens != 2 {
		t.Errorf("upstream opened %d times, expected 2 for exclusive subscriptions", feed.opens)
	}
	if mux.LiveFeeds() != 2 {
		t.Errorf("LiveFeeds() = %d, expected 2", mux.LiveFeeds())
	}
}

func TestSubscribeCacheReplaysSynchronously(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	if _, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{Cache: true, Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	feed.emit("cached-value")

	var got []any
	if _, err := mux.Subscribe("messages:1", feed.open, func(v any) { got = append(got, v) }, Options{Cache: true, Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Replay happens before Subscribe returns, no new emission needed.
	if len(got) != 1 || got[0] != "cached-value" {
		t.Fatalf("late subscriber received %v, expected synchronous replay of %q", got, "cached-value")
	}

	feed.emit("next-value")
	if len(got) != 2 || got[1] != "next-value" {
		t.Errorf("late subscriber received %v, expected replay then live value", got)
	}
}

func TestSubscribeNoCacheNoReplay(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	if _, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	feed.emit("gone")

	var got []any
	if _, err := mux.Subscribe("messages:1", feed.open, func(v any) { got = append(got, v) }, Options{Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("late subscriber received %v without caching enabled", got)
	}
}

func TestFanoutRegistrationOrder(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		if _, err := mux.Subscribe("messages:1", feed.open, func(any) { order = append(order, name) }, Options{Shared: true}); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	feed.emit("value")
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("fanout order = %v, expected registration order", order)
	}
}

func TestSubscribeOpenFailureLeavesNoState(t *testing.T) {
	mux := newTestMultiplexer()
	boom := errors.New("upstream unavailable")

	_, err := mux.Subscribe("messages:1", func(emit func(value any)) (Teardown, error) {
		return nil, boom
	}, func(any) {}, Options{Shared: true})
	if !errors.Is(err, boom) {
		t.Fatalf("Subscribe() error = %v, expected wrapped %v", err, boom)
	}
	if mux.LiveFeeds() != 0 {
		t.Errorf("LiveFeeds() after failed open = %d, expected 0", mux.LiveFeeds())
	}

	// A retry opens fresh, unaffected by the failed attempt.
	feed := &fakeFeed{}
	if _, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{Shared: true}); err != nil {
		t.Fatalf("Subscribe() retry error = %v", err)
	}
	if feed.opens != 1 {
		t.Errorf("retry opened %d times, expected 1", feed.opens)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	unsubFirst, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{Shared: true})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	unsubSecond, err := mux.Subscribe("messages:1", feed.open, func(any) {}, Options{Shared: true})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	unsubFirst()
	unsubFirst()
	unsubFirst()

	if mux.LiveFeeds() != 1 {
		t.Errorf("LiveFeeds() = %d after repeated unsubscribe of one listener, expected 1", mux.LiveFeeds())
	}
	if feed.teardowns != 0 {
		t.Errorf("upstream torn down %d times, expected 0 with a live listener", feed.teardowns)
	}

	unsubSecond()
	if feed.teardowns != 1 {
		t.Errorf("upstream torn down %d times, expected exactly 1", feed.teardowns)
	}
}

func TestTeardownStopsDelivery(t *testing.T) {
	mux := newTestMultiplexer()
	feed := &fakeFeed{}

	var got []any
	unsub, err := mux.Subscribe("messages:1", feed.open, func(v any) { got = append(got, v) }, Options{Shared: true})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	feed.emit("before")
	unsub()
	feed.emit("after")

	if len(got) != 1 || got[0] != "before" {
		t.Errorf("listener received %v, expected delivery to stop after unsubscribe", got)
	}
}

func TestReset(t *testing.T) {
	mux := newTestMultiplexer()
	feedA := &fakeFeed{}
	feedB := &fakeFeed{}

	if _, err := mux.Subscribe("messages:1", feedA.open, func(any) {}, Options{Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := mux.Subscribe("messages:2", feedB.open, func(any) {}, Options{Shared: true}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	mux.Reset()
	if mux.LiveFeeds() != 0 {
		t.Errorf("LiveFeeds() after Reset() = %d, expected 0", mux.LiveFeeds())
	}
	if feedA.teardowns != 1 || feedB.teardowns != 1 {
		t.Errorf("teardowns after Reset() = %d/%d, expected 1/1", feedA.teardowns, feedB.teardowns)
	}
}
