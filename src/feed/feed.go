// Package feed keeps live, newest-first views of the post collection and
// performs the post mutations (create, like toggle, delete) against the
// document store. Views only change when the store pushes a new snapshot;
// mutations never edit them locally.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/theleywin/Framez-Backend/src/models"
)

// MaxImageSize is the largest image accepted for upload, in bytes.
const MaxImageSize = 5 << 20

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// View is what a subscription publishes: the posts plus where the
// subscription stands. Err is set only when Status is StatusFailed.
type View struct {
	Status Status        `json:"status"`
	Posts  []models.Post `json:"posts"`
	Err    error         `json:"-"`
}

// Observer receives every view a subscription publishes, one at a time.
type Observer func(View)

type Service struct {
	store        Store
	images       ImageHost
	maxImageSize int64
}

type Option func(*Service)

// WithMaxImageSize overrides MaxImageSize.
func WithMaxImageSize(n int64) Option {
	return func(s *Service) { s.maxImageSize = n }
}

func NewService(store Store, images ImageHost, opts ...Option) *Service {
	s := &Service{
		store:        store,
		images:       images,
		maxImageSize: MaxImageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe starts a live view of the posts matching filter. observer may be
// nil when the caller only reads the view through the Subscription.
// Cancelling ctx has the same effect as Release.
func (s *Service) Subscribe(ctx context.Context, filter Filter, observer Observer) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		filter:   filter,
		store:    s.store,
		observer: observer,
		cancel:   cancel,
		status:   StatusLoading,
		done:     make(chan struct{}),
	}
	context.AfterFunc(ctx, sub.Release)
	go sub.run(ctx)
	return sub
}

// Fetch returns the first snapshot for filter and releases the subscription.
func (s *Service) Fetch(ctx context.Context, filter Filter) ([]models.Post, error) {
	first := make(chan View, 1)
	sub := s.Subscribe(ctx, filter, func(v View) {
		select {
		case first <- v:
		default:
		}
	})
	defer sub.Release()

	select {
	case v := <-first:
		if v.Status == StatusFailed {
			return nil, v.Err
		}
		return v.Posts, nil
	case <-sub.Done():
		// The watch may have ended right after its last delivery.
		select {
		case v := <-first:
			if v.Status == StatusFailed {
				return nil, v.Err
			}
			return v.Posts, nil
		default:
		}
		if err := sub.Err(); err != nil {
			return nil, err
		}
		return nil, ctx.Err()
	}
}

// Subscription is one live registration. The zero value is not usable; get
// one from Service.Subscribe.
type Subscription struct {
	filter   Filter
	store    Store
	observer Observer
	cancel   context.CancelFunc

	mu     sync.RWMutex
	status Status
	posts  []models.Post
	err    error

	// deliverMu serializes observer calls against Release.
	deliverMu  sync.Mutex
	released   atomic.Bool
	delivering atomic.Bool
	releaseOne sync.Once

	done chan struct{}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	err := s.store.Watch(ctx, s.filter, s.apply)
	if s.released.Load() || ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("watch ended")
	}
	s.fail(fmt.Errorf("%w: %w", ErrSubscription, err))
}

func (s *Subscription) apply(docs []models.PostDocument) {
	if s.released.Load() {
		return
	}
	posts := Normalize(docs)

	s.mu.Lock()
	s.posts = posts
	s.status = StatusReady
	s.mu.Unlock()

	s.publish(View{Status: StatusReady, Posts: clonePosts(posts)})
}

// fail records a terminal error. The last good posts stay in place.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.err = err
	posts := clonePosts(s.posts)
	s.mu.Unlock()

	s.publish(View{Status: StatusFailed, Posts: posts, Err: err})
}

func (s *Subscription) publish(v View) {
	if s.observer == nil {
		return
	}
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.released.Load() {
		return
	}
	s.delivering.Store(true)
	defer s.delivering.Store(false)
	s.observer(v)
}

// Release stops the subscription. After it returns the observer is not
// called again. It is safe to call more than once and from inside the
// observer.
func (s *Subscription) Release() {
	s.releaseOne.Do(func() {
		s.released.Store(true)
		s.cancel()
		if !s.delivering.Load() {
			// Wait out a delivery that passed the liveness check but has
			// not started the observer yet.
			s.deliverMu.Lock()
			s.deliverMu.Unlock()
		}
	})
}

// Done is closed once the underlying watch has returned.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err is the terminal subscription error, if any.
func (s *Subscription) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Subscription) Filter() Filter {
	return s.filter
}

// View returns a copy of the current local view.
func (s *Subscription) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Status: s.status, Posts: clonePosts(s.posts), Err: s.err}
}

// Post looks a post up in the local view.
func (s *Subscription) Post(postID string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == postID {
			p.Likes = append([]string(nil), p.Likes...)
			return p, true
		}
	}
	return models.Post{}, false
}
