// Package auth is the identity side of Framez: accounts, tokens and the
// sessions derived from them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/models"
)

const (
	bcryptCost = 11
	tokenTTL   = 24 * time.Hour
)

// SessionListener is told about the session behind one token: once with its
// state at registration, then with nil when the token is signed out.
type SessionListener func(*models.Session)

type Service struct {
	users  Users
	secret []byte
	now    func() time.Time

	mu        sync.Mutex
	revoked   map[string]time.Time // token id -> expiry, known revocations only
	listeners map[string]*tokenListeners
	nextID    int
}

type tokenListeners struct {
	expiresAt time.Time
	fns       map[int]SessionListener
}

func NewService(users Users, secret string) *Service {
	if secret == "" {
		secret = "fallback-secret-key"
	}
	return &Service{
		users:     users,
		secret:    []byte(secret),
		now:       time.Now,
		revoked:   make(map[string]time.Time),
		listeners: make(map[string]*tokenListeners),
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*models.Session, string, error) {
	email = normalizeEmail(email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		Password:    string(hashed),
		CreatedAt:   s.now(),
	}
	id, err := s.users.Insert(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return s.issue(id, user)
}

// SignIn checks the password and returns a fresh session and token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	return s.issue(user.Id.Hex(), user)
}

// SignOut records the revocation in the account store, so every instance
// sharing it rejects the token, and tells this instance's listeners.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	if err := s.users.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.markRevoked(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// Authenticate resolves a token into the session it stands for.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if !revoked {
		revoked, err = s.users.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			s.markRevoked(claims.ID, claims.ExpiresAt.Time)
		}
	}
	if revoked {
		return nil, fmt.Errorf("%w: signed out", ErrInvalidToken)
	}

	return &models.Session{
		AccountID:   claims.UserID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// OnSessionChange registers fn for token. fn runs immediately with the
// current session (nil if the token is not valid) and again with nil on sign
// out, whichever instance signed it out as long as WatchRevocations runs. The
// returned func unregisters it.
func (s *Service) OnSessionChange(ctx context.Context, token string, fn SessionListener) func() {
	session, err := s.Authenticate(ctx, token)
	fn(session)
	if err != nil {
		return func() {}
	}

	s.mu.Lock()
	group := s.listeners[session.TokenID]
	if group == nil {
		group = &tokenListeners{expiresAt: session.ExpiresAt, fns: make(map[int]SessionListener)}
		s.listeners[session.TokenID] = group
	}
	id := s.nextID
	s.nextID++
	group.fns[id] = fn
	_, revokedMeanwhile := s.revoked[session.TokenID]
	if revokedMeanwhile {
		delete(s.listeners, session.TokenID)
	}
	s.mu.Unlock()

	if revokedMeanwhile {
		fn(nil)
		return func() {}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		group, ok := s.listeners[session.TokenID]
		if !ok {
			return
		}
		delete(group.fns, id)
		if len(group.fns) == 0 {
			delete(s.listeners, session.TokenID)
		}
	}
}

// WatchRevocations follows sign-outs recorded by any instance and tells the
// local listeners. It re-watches after retry when the watch fails and
// returns when ctx is done.
func (s *Service) WatchRevocations(ctx context.Context, retry time.Duration) {
	for {
		err := s.users.WatchRevocations(ctx, s.markRevoked)
		if ctx.Err() != nil {
			return
		}
		lib.LogJSON("warn", "revocation watch ended", map[string]interface{}{"error": errString(err)})

		// Sign-outs made while the watch was down were never delivered.
		s.recheckListeners(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func (s *Service) recheckListeners(ctx context.Context) {
	s.mu.Lock()
	pending := make(map[string]time.Time, len(s.listeners))
	for id, group := range s.listeners {
		pending[id] = group.expiresAt
	}
	s.mu.Unlock()

	for id, expiresAt := range pending {
		revoked, err := s.users.IsRevoked(ctx, id)
		if err != nil {
			lib.LogJSON("warn", "revocation check failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if revoked {
			s.markRevoked(id, expiresAt)
		}
	}
}

// markRevoked caches the revocation and calls the token's listeners once.
func (s *Service) markRevoked(tokenID string, expiresAt time.Time) {
	s.mu.Lock()
	s.revoked[tokenID] = expiresAt
	s.pruneLocked()
	var notify []SessionListener
	if group, ok := s.listeners[tokenID]; ok {
		for _, l := range group.fns {
			notify = append(notify, l)
		}
		delete(s.listeners, tokenID)
	}
	s.mu.Unlock()

	for _, l := range notify {
		l(nil)
	}
}

// RegisterPushToken stores an Expo push token for the account.
func (s *Service) RegisterPushToken(ctx context.Context, accountID, token string) error {
	return s.users.AddPushToken(ctx, accountID, token)
}

type claims struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) issue(id string, user *models.User) (*models.Session, string, error) {
	now := s.now()
	c := claims{
		UserID:      id,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return &models.Session{
		AccountID:   id,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		TokenID:     c.ID,
		ExpiresAt:   c.ExpiresAt.Time,
	}, token, nil
}

func (s *Service) parse(token string) (*claims, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.UserID == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return &c, nil
}

// pruneLocked drops revocations whose tokens have expired anyway.
func (s *Service) pruneLocked() {
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
