package aggregator

import "sync"

// Event is delivered to subscribers after the change is persisted.
type Event interface {
	isEvent()
}

type CountChanged struct {
	PostID int64
	Key    string
	Count  int
}

type CommentAdded struct {
	PostID  int64
	Comment string
	Count   int
}

// NotificationsStale tells a view showing UserID's badge to recount.
type NotificationsStale struct {
	UserID string
}

func (CountChanged) isEvent()       {}
func (CommentAdded) isEvent()       {}
func (NotificationsStale) isEvent() {}

// Bus fans events out to subscribers synchronously.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	global  map[int]func(Event)
	perPost map[int64]map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{
		global:  make(map[int]func(Event)),
		perPost: make(map[int64]map[int]func(Event)),
	}
}

// Subscribe registers fn for every event. The returned func unsubscribes.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.global[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.global, id)
	}
}

// SubscribePost registers fn for CountChanged and CommentAdded events of one
// post.
func (b *Bus) SubscribePost(postID int64, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.perPost[postID] == nil {
		b.perPost[postID] = make(map[int]func(Event))
	}
	b.perPost[postID][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.perPost[postID], id)
		if len(b.perPost[postID]) == 0 {
			delete(b.perPost, postID)
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.global))
	for _, fn := range b.global {
		fns = append(fns, fn)
	}
	var postID int64
	switch ev := e.(type) {
	case CountChanged:
		postID = ev.PostID
	case CommentAdded:
		postID = ev.PostID
	}
	if postID != 0 {
		for _, fn := range b.perPost[postID] {
			fns = append(fns, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
