package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/models"
)

// Mirror keeps one global feed subscription open for the whole server. Like
// toggles read membership from it and GET /posts serves its view. When the
// subscription fails it subscribes again after the retry delay.
type Mirror struct {
	posts *feed.Service
	retry time.Duration

	mu  sync.RWMutex
	sub *feed.Subscription
}

func NewMirror(posts *feed.Service, retry time.Duration) *Mirror {
	return &Mirror{posts: posts, retry: retry}
}

// Start subscribes and keeps the subscription alive until ctx is done. The
// returned channel is closed once the first subscription exists.
func (m *Mirror) Start(ctx context.Context) <-chan struct{} {
	started := make(chan struct{})
	go m.run(ctx, started)
	return started
}

func (m *Mirror) run(ctx context.Context, started chan struct{}) {
	first := true
	for {
		sub := m.posts.Subscribe(ctx, feed.Filter{}, nil)
		m.mu.Lock()
		m.sub = sub
		m.mu.Unlock()
		if first {
			close(started)
			first = false
		}

		<-sub.Done()
		if ctx.Err() != nil {
			return
		}

		lib.LogJSON("error", "feed mirror subscription failed", map[string]interface{}{
			"error":       errString(sub.Err()),
			"retry_after": m.retry.String(),
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.retry):
		}
	}
}

// Subscription is the current mirror subscription, or nil before Start.
func (m *Mirror) Subscription() *feed.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sub
}

func (m *Mirror) View() feed.View {
	sub := m.Subscription()
	if sub == nil {
		return feed.View{Status: feed.StatusLoading, Posts: []models.Post{}}
	}
	return sub.View()
}

// Ready reports whether the mirror holds a current snapshot.
func (m *Mirror) Ready() bool {
	return m.View().Status == feed.StatusReady
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
