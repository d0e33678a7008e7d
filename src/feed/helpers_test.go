package feed_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/models"
)

// scriptedStore hands the deliver func to the test and records mutations.
// It never pushes on its own.
type scriptedStore struct {
	mu       sync.Mutex
	initial  []models.PostDocument
	watchErr error
	deliver  func([]models.PostDocument)
	watching chan struct{}
	once     sync.Once

	// noSnapshot makes Watch fail without delivering anything.
	noSnapshot bool

	adds, removes, inserts, deletes []string
	mutationErr                     error
}

func newScriptedStore(initial ...models.PostDocument) *scriptedStore {
	return &scriptedStore{initial: initial, watching: make(chan struct{})}
}

func (s *scriptedStore) Watch(ctx context.Context, _ feed.Filter, deliver func([]models.PostDocument)) error {
	s.mu.Lock()
	s.deliver = deliver
	s.mu.Unlock()

	if !s.noSnapshot {
		deliver(s.initial)
	}
	s.once.Do(func() { close(s.watching) })

	if s.watchErr != nil {
		return s.watchErr
	}
	<-ctx.Done()
	return nil
}

// push delivers docs as if the store had sent a new snapshot.
func (s *scriptedStore) push(docs ...models.PostDocument) {
	s.mu.Lock()
	deliver := s.deliver
	s.mu.Unlock()
	deliver(docs)
}

func (s *scriptedStore) AddLike(_ context.Context, postID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutationErr != nil {
		return s.mutationErr
	}
	s.adds = append(s.adds, postID+":"+accountID)
	return nil
}

func (s *scriptedStore) RemoveLike(_ context.Context, postID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutationErr != nil {
		return s.mutationErr
	}
	s.removes = append(s.removes, postID+":"+accountID)
	return nil
}

func (s *scriptedStore) InsertPost(_ context.Context, post models.NewPost) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutationErr != nil {
		return "", s.mutationErr
	}
	s.inserts = append(s.inserts, post.Content)
	return "new-id", nil
}

func (s *scriptedStore) DeletePost(_ context.Context, postID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, postID+":"+requesterID)
	return s.mutationErr
}

func (s *scriptedStore) calls() (adds, removes, inserts, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.adds), len(s.removes), len(s.inserts), len(s.deletes)
}

type fakeHost struct {
	mu      sync.Mutex
	uploads int
	url     string
	err     error
}

func (h *fakeHost) Upload(_ context.Context, _ *feed.Image) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads++
	if h.err != nil {
		return "", h.err
	}
	return h.url, nil
}

func (h *fakeHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads
}

// recorder collects published views.
type recorder struct {
	mu    sync.Mutex
	views []feed.View
}

func (r *recorder) observe(v feed.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) all() []feed.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feed.View(nil), r.views...)
}

func (r *recorder) waitFor(t *testing.T, n int) []feed.View {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.all()) >= n }, 2*time.Second, 5*time.Millisecond)
	return r.all()
}

func waitReady(t *testing.T, sub *feed.Subscription) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sub.View().Status == feed.StatusReady
	}, 2*time.Second, 5*time.Millisecond)
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func doc(author, content string, minute int, likes ...string) models.PostDocument {
	zero := 0
	d := models.PostDocument{
		Id:              newID(),
		UserId:          author,
		UserEmail:       author + "@framez.dev",
		UserDisplayName: author,
		Content:         content,
		CreatedAt:       base.Add(time.Duration(minute) * time.Minute),
		Comments:        &zero,
	}
	if len(likes) > 0 {
		d.Likes = likes
	} else {
		d.Likes = []string{}
	}
	return d
}

func session(id string) *models.Session {
	return &models.Session{AccountID: id, DisplayName: id, Email: id + "@framez.dev"}
}
