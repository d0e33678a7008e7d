// Package store holds the document store adapters behind the feed, the
// account store and the notification store: a Mongo implementation of each
// and an in-memory one used by tests and by STORE=memory.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/models"
)

// Memory is an in-memory post store. Every mutation pushes a fresh snapshot
// to each affected watcher before it returns, so observers must not mutate
// the same store from inside a delivery.
type Memory struct {
	mu       sync.Mutex
	posts    map[primitive.ObjectID]models.PostDocument
	watchers map[int]*memWatcher
	nextID   int
	now      func() time.Time
	last     time.Time
}

type memWatcher struct {
	filter  feed.Filter
	deliver func([]models.PostDocument)
	mu      sync.Mutex
	failed  chan error
	closed  bool
}

func NewMemory() *Memory {
	return &Memory{
		posts:    make(map[primitive.ObjectID]models.PostDocument),
		watchers: make(map[int]*memWatcher),
		now:      time.Now,
	}
}

func (m *Memory) Watch(ctx context.Context, filter feed.Filter, deliver func([]models.PostDocument)) error {
	w := &memWatcher{filter: filter, deliver: deliver, failed: make(chan error, 1)}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = w
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
	}()

	m.push(w)

	select {
	case <-ctx.Done():
		return nil
	case err := <-w.failed:
		return err
	}
}

// WatchCount reports how many watches are open.
func (m *Memory) WatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// FailWatches ends every open watch with err.
func (m *Memory) FailWatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watchers {
		select {
		case w.failed <- err:
		default:
		}
	}
}

// Seed stores documents as given, keeping missing fields missing. Documents
// without an id get one.
func (m *Memory) Seed(docs ...models.PostDocument) []string {
	ids := make([]string, 0, len(docs))
	m.mu.Lock()
	for _, d := range docs {
		if d.Id.IsZero() {
			d.Id = primitive.NewObjectID()
		}
		d.Likes = cloneLikes(d.Likes)
		m.posts[d.Id] = d
		ids = append(ids, d.Id.Hex())
	}
	m.mu.Unlock()

	m.pushAll()
	return ids
}

func (m *Memory) AddLike(_ context.Context, postID, accountID string) error {
	err := m.update(postID, func(d *models.PostDocument) {
		for _, id := range d.Likes {
			if id == accountID {
				return
			}
		}
		d.Likes = append(d.Likes, accountID)
	})
	if err != nil {
		return err
	}
	m.pushAll()
	return nil
}

func (m *Memory) RemoveLike(_ context.Context, postID, accountID string) error {
	err := m.update(postID, func(d *models.PostDocument) {
		kept := d.Likes[:0]
		for _, id := range d.Likes {
			if id != accountID {
				kept = append(kept, id)
			}
		}
		d.Likes = kept
	})
	if err != nil {
		return err
	}
	m.pushAll()
	return nil
}

func (m *Memory) InsertPost(_ context.Context, post models.NewPost) (string, error) {
	zero := 0
	m.mu.Lock()
	doc := models.PostDocument{
		Id:              primitive.NewObjectID(),
		UserId:          post.UserID,
		UserEmail:       post.UserEmail,
		UserDisplayName: post.UserDisplayName,
		Content:         post.Content,
		ImageURL:        post.ImageURL,
		CreatedAt:       m.stampLocked(),
		Likes:           []string{},
		Comments:        &zero,
	}
	m.posts[doc.Id] = doc
	m.mu.Unlock()

	m.pushAll()
	return doc.Id.Hex(), nil
}

func (m *Memory) DeletePost(_ context.Context, postID, requesterID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return feed.ErrPostNotFound
	}

	m.mu.Lock()
	doc, ok := m.posts[oid]
	switch {
	case !ok:
		m.mu.Unlock()
		return feed.ErrPostNotFound
	case doc.UserId != requesterID:
		m.mu.Unlock()
		return feed.ErrPermissionDenied
	}
	delete(m.posts, oid)
	m.mu.Unlock()

	m.pushAll()
	return nil
}

// Get returns a copy of the stored document.
func (m *Memory) Get(postID string) (models.PostDocument, bool) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return models.PostDocument{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.posts[oid]
	d.Likes = cloneLikes(d.Likes)
	return d, ok
}

func (m *Memory) update(postID string, fn func(*models.PostDocument)) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return feed.ErrPostNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.posts[oid]
	if !ok {
		return feed.ErrPostNotFound
	}
	d.Likes = cloneLikes(d.Likes)
	fn(&d)
	m.posts[oid] = d
	return nil
}

// stampLocked returns the server time for a new post. Stamps never repeat
// so that creation order is total.
func (m *Memory) stampLocked() time.Time {
	t := m.now()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *Memory) pushAll() {
	m.mu.Lock()
	watchers := make([]*memWatcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		m.push(w)
	}
}

func (m *Memory) push(w *memWatcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.deliver(m.snapshot(w.filter))
}

func (m *Memory) snapshot(filter feed.Filter) []models.PostDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]models.PostDocument, 0, len(m.posts))
	for _, d := range m.posts {
		if filter.AuthorID != "" && d.UserId != filter.AuthorID {
			continue
		}
		d.Likes = cloneLikes(d.Likes)
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

func cloneLikes(likes []string) []string {
	if likes == nil {
		return nil
	}
	return append([]string{}, likes...)
}
