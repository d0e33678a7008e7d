package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/models"
	"github.com/theleywin/Framez-Backend/src/notify"
)

type MemoryUsers struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User

	revoked     map[string]time.Time
	watchers    map[int]func(string, time.Time)
	nextWatcher int
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users:    make(map[primitive.ObjectID]models.User),
		revoked:  make(map[string]time.Time),
		watchers: make(map[int]func(string, time.Time)),
	}
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u.PushTokens = append([]string(nil), u.PushTokens...)
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *MemoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[oid]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u.PushTokens = append([]string(nil), u.PushTokens...)
	return &u, nil
}

func (m *MemoryUsers) Insert(_ context.Context, user *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return "", auth.ErrEmailTaken
		}
	}
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	m.users[user.Id] = *user
	return user.Id.Hex(), nil
}

func (m *MemoryUsers) AddPushToken(_ context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrUserNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oid]
	if !ok {
		return auth.ErrUserNotFound
	}
	for _, t := range u.PushTokens {
		if t == token {
			return nil
		}
	}
	u.PushTokens = append(append([]string(nil), u.PushTokens...), token)
	m.users[oid] = u
	return nil
}

func (m *MemoryUsers) PushTokens(ctx context.Context, accountID string) ([]string, error) {
	u, err := m.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.PushTokens, nil
}

// Revoke records the token id and pushes it to every revocation watcher
// from the calling goroutine.
func (m *MemoryUsers) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	if _, ok := m.revoked[tokenID]; ok {
		m.mu.Unlock()
		return nil
	}
	m.revoked[tokenID] = expiresAt
	watchers := make([]func(string, time.Time), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(tokenID, expiresAt)
	}
	return nil
}

func (m *MemoryUsers) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func (m *MemoryUsers) WatchRevocations(ctx context.Context, fn func(string, time.Time)) error {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return ctx.Err()
}

// RevocationWatchCount reports how many revocation watches are open.
func (m *MemoryUsers) RevocationWatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watchers)
}

type MemoryNotifications struct {
	mu    sync.RWMutex
	items []models.Notification
}

func NewMemoryNotifications() *MemoryNotifications {
	return &MemoryNotifications{}
}

func (m *MemoryNotifications) Insert(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.Id.IsZero() {
		n.Id = primitive.NewObjectID()
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *MemoryNotifications) ListFor(_ context.Context, recipient string) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range m.items {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryNotifications) MarkRead(_ context.Context, id, recipient string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notify.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Id == oid && m.items[i].Recipient == recipient {
			m.items[i].Read = true
			m.items[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return notify.ErrNotFound
}
