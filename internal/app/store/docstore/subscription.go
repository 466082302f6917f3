package docstore

import (
	"context"
	"reflect"
	"sync"
)

// Subscription is a live query registration.
//
// onData receives the full current result set on initial load and after every
// change; there is no incremental delivery. onError receives transport
// failures. Callbacks run on the subscription's own goroutine, one at a time.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newSubscription(parent context.Context) (*Subscription, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription{cancel: cancel, done: make(chan struct{})}, ctx
}

// Unsubscribe stops delivery and waits for the delivery goroutine to exit;
// no callback runs after it returns. Safe to call more than once. Must not be
// called from inside a callback.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the delivery goroutine has exited, after Unsubscribe,
// cancellation of the parent context, or a terminal backend error.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// feed re-runs a query and hands results to the subscriber.
type feed struct {
	fetch   func(ctx context.Context) ([]Document, error)
	onData  func([]Document)
	onError func(error)

	// onlyChanged suppresses deliveries equal to the previous one (polling).
	onlyChanged bool
	last        []Document
	primed      bool
}

// refresh fetches and delivers. Returns the fetch error, if any.
func (f *feed) refresh(ctx context.Context) error {
	docs, err := f.fetch(ctx)
	if err != nil {
		f.fail(ctx, err)
		return err
	}
	f.push(ctx, docs)
	return nil
}

func (f *feed) push(ctx context.Context, docs []Document) {
	if ctx.Err() != nil {
		return
	}
	if f.onlyChanged && f.primed && sameDocuments(f.last, docs) {
		return
	}
	f.last, f.primed = docs, true
	if docs == nil {
		docs = []Document{}
	}
	if f.onData != nil {
		f.onData(docs)
	}
}

func (f *feed) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if f.onError != nil {
		f.onError(err)
	}
}

func sameDocuments(a, b []Document) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
