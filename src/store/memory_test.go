package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/models"
)

type snapshots struct {
	mu  sync.Mutex
	all [][]models.PostDocument
}

func (s *snapshots) deliver(docs []models.PostDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, docs)
}

func (s *snapshots) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

func (s *snapshots) last() []models.PostDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all[len(s.all)-1]
}

func watch(t *testing.T, m *Memory, filter feed.Filter) (*snapshots, context.CancelFunc, <-chan error) {
	t.Helper()
	snaps := &snapshots{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, filter, snaps.deliver) }()
	require.Eventually(t, func() bool { return snaps.len() == 1 }, time.Second, 5*time.Millisecond)
	return snaps, cancel, done
}

func newPost(author, content string) models.NewPost {
	return models.NewPost{UserID: author, UserEmail: author + "@framez.dev", UserDisplayName: author, Content: content}
}

func TestMemoryPushesAfterEveryMutation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	snaps, cancel, done := watch(t, m, feed.Filter{})
	defer cancel()

	id, err := m.InsertPost(ctx, newPost("alice", "one"))
	require.NoError(t, err)
	assert.Equal(t, 2, snaps.len())

	require.NoError(t, m.AddLike(ctx, id, "bob"))
	assert.Equal(t, 3, snaps.len())
	assert.Equal(t, []string{"bob"}, snaps.last()[0].Likes)

	require.NoError(t, m.RemoveLike(ctx, id, "bob"))
	assert.Equal(t, 4, snaps.len())
	assert.Empty(t, snaps.last()[0].Likes)

	require.NoError(t, m.DeletePost(ctx, id, "alice"))
	assert.Equal(t, 5, snaps.len())
	assert.Empty(t, snaps.last())

	cancel()
	assert.NoError(t, <-done)
}

func TestMemoryLikesAreASet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.InsertPost(ctx, newPost("alice", "one"))
	require.NoError(t, err)

	require.NoError(t, m.AddLike(ctx, id, "bob"))
	require.NoError(t, m.AddLike(ctx, id, "bob"))
	require.NoError(t, m.RemoveLike(ctx, id, "carol"))

	d, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{"bob"}, d.Likes)

	assert.ErrorIs(t, m.AddLike(ctx, "000000000000000000000000", "bob"), feed.ErrPostNotFound)
	assert.ErrorIs(t, m.RemoveLike(ctx, "not-an-id", "bob"), feed.ErrPostNotFound)
}

func TestMemoryInsertStampsIncreasingTimes(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		id, err := m.InsertPost(context.Background(), newPost("alice", "same instant"))
		require.NoError(t, err)
		d, _ := m.Get(id)
		stamps = append(stamps, d.CreatedAt)
	}
	assert.True(t, stamps[1].After(stamps[0]))
	assert.True(t, stamps[2].After(stamps[1]))
}

func TestMemoryWatchFiltersByAuthor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	snaps, cancel, _ := watch(t, m, feed.Filter{AuthorID: "alice"})
	defer cancel()

	_, err := m.InsertPost(ctx, newPost("bob", "not mine"))
	require.NoError(t, err)
	_, err = m.InsertPost(ctx, newPost("alice", "mine"))
	require.NoError(t, err)

	last := snaps.last()
	require.Len(t, last, 1)
	assert.Equal(t, "mine", last[0].Content)
}

func TestMemoryDeleteOwnership(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.InsertPost(ctx, newPost("alice", "one"))
	require.NoError(t, err)

	assert.ErrorIs(t, m.DeletePost(ctx, id, "bob"), feed.ErrPermissionDenied)
	require.NoError(t, m.DeletePost(ctx, id, "alice"))
	assert.ErrorIs(t, m.DeletePost(ctx, id, "alice"), feed.ErrPostNotFound)
}

func TestMemoryFailWatches(t *testing.T) {
	m := NewMemory()
	_, cancel, done := watch(t, m, feed.Filter{})
	defer cancel()

	boom := errors.New("listener revoked")
	m.FailWatches(boom)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("watch did not end")
	}
}

func TestMemorySeedKeepsMissingFields(t *testing.T) {
	m := NewMemory()
	ids := m.Seed(models.PostDocument{UserId: "alice", Content: "legacy", CreatedAt: time.Now()})

	d, ok := m.Get(ids[0])
	require.True(t, ok)
	assert.Nil(t, d.Likes)
	assert.Nil(t, d.Comments)
}
