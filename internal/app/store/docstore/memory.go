package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore is an in-process Client. Data lives only as long as the process.
type MemoryStore struct {
	log *zap.Logger

	mu     sync.RWMutex
	colls  map[string]*memoryCollection
	subs   map[*memorySub]struct{}
	outage error
}

type memoryCollection struct {
	order  []string // insertion order
	docs   map[string]map[string]any
	unique [][]string
}

type memorySub struct {
	collection string
	wake       chan struct{}
}

var _ Client = (*MemoryStore)(nil)

// NewMemory returns an empty store.
func NewMemory(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		log:   logger,
		colls: make(map[string]*memoryCollection),
		subs:  make(map[*memorySub]struct{}),
	}
}

// SetOutage makes every subsequent operation fail with err until called with nil.
// Live subscriptions are woken so they observe the failure.
func (s *MemoryStore) SetOutage(err error) {
	s.mu.Lock()
	s.outage = err
	s.mu.Unlock()
	s.wakeAll("")
}

func (s *MemoryStore) coll(name string) *memoryCollection {
	c, ok := s.colls[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]map[string]any)}
		s.colls[name] = c
	}
	return c
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.outage != nil {
		err := s.outage
		s.mu.Unlock()
		return "", err
	}
	c := s.coll(collection)
	doc := copyFields(fields)
	if c.violatesUnique("", doc) {
		s.mu.Unlock()
		return "", ErrDuplicate
	}
	id := uuid.NewString()
	c.docs[id] = doc
	c.order = append(c.order, id)
	s.mu.Unlock()

	s.wakeAll(collection)
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outage != nil {
		return Document{}, s.outage
	}
	c, ok := s.colls[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	fields, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.outage != nil {
		err := s.outage
		s.mu.Unlock()
		return err
	}
	c := s.coll(collection)
	existing, ok := c.docs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged := copyFields(existing)
	for k, v := range fields {
		merged[k] = v
	}
	if c.violatesUnique(id, merged) {
		s.mu.Unlock()
		return ErrDuplicate
	}
	c.docs[id] = merged
	s.mu.Unlock()

	s.wakeAll(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.outage != nil {
		err := s.outage
		s.mu.Unlock()
		return err
	}
	c := s.coll(collection)
	if _, ok := c.docs[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(c.docs, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.wakeAll(collection)
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outage != nil {
		return nil, s.outage
	}
	c, ok := s.colls[q.Collection]
	if !ok {
		return []Document{}, nil
	}
	out := make([]Document, 0, len(c.docs))
	for _, id := range c.order {
		fields := c.docs[id]
		if matches(fields, q.Where) {
			out = append(out, Document{ID: id, Fields: copyFields(fields)})
		}
	}
	sortDocuments(out, q)
	return out, nil
}

func (s *MemoryStore) Listen(ctx context.Context, q Query, onData func([]Document), onError func(error)) *Subscription {
	sub, ctx := newSubscription(ctx)
	ms := &memorySub{collection: q.Collection, wake: make(chan struct{}, 1)}

	s.mu.Lock()
	s.subs[ms] = struct{}{}
	s.mu.Unlock()

	f := &feed{
		fetch:   func(ctx context.Context) ([]Document, error) { return s.Find(ctx, q) },
		onData:  onData,
		onError: onError,
	}

	go func() {
		defer close(sub.done)
		defer func() {
			s.mu.Lock()
			delete(s.subs, ms)
			s.mu.Unlock()
		}()

		_ = f.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ms.wake:
				_ = f.refresh(ctx)
			}
		}
	}()
	return sub
}

// wakeAll nudges subscriptions on collection, or on every collection when empty.
func (s *MemoryStore) wakeAll(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ms := range s.subs {
		if collection != "" && ms.collection != collection {
			continue
		}
		select {
		case ms.wake <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryStore) EnsureUnique(ctx context.Context, collection string, fields ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	for _, idx := range c.unique {
		if sameFields(idx, fields) {
			return nil
		}
	}
	c.unique = append(c.unique, append([]string(nil), fields...))
	s.log.Debug("memory unique index declared",
		zap.String("collection", collection),
		zap.Strings("fields", fields))
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outage
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// violatesUnique reports whether doc collides with another document (not selfID)
// on any unique index. Documents missing an indexed field are not constrained.
func (c *memoryCollection) violatesUnique(selfID string, doc map[string]any) bool {
	for _, idx := range c.unique {
		if !hasAll(doc, idx) {
			continue
		}
		for id, other := range c.docs {
			if id == selfID || !hasAll(other, idx) {
				continue
			}
			same := true
			for _, f := range idx {
				if compareValues(doc[f], other[f]) != 0 {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func hasAll(doc map[string]any, fields []string) bool {
	for _, f := range fields {
		if _, ok := doc[f]; !ok {
			return false
		}
	}
	return true
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
