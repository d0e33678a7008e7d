// Package notify records like notifications and forwards them as Expo push
// messages to the post author's devices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/models"
)

var ErrNotFound = errors.New("notification not found")

// Repository persists notifications.
type Repository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListFor(ctx context.Context, recipient string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipient string) error
}

// TokenSource looks up the push tokens registered for an account.
type TokenSource interface {
	PushTokens(ctx context.Context, accountID string) ([]string, error)
}

// Pusher delivers one message to a set of device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, msg Message) error
}

type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

type Notifier struct {
	repo   Repository
	tokens TokenSource
	pusher Pusher
	now    func() time.Time
}

// NewNotifier builds a Notifier. pusher may be nil, in which case
// notifications are only recorded.
func NewNotifier(repo Repository, tokens TokenSource, pusher Pusher) *Notifier {
	return &Notifier{repo: repo, tokens: tokens, pusher: pusher, now: time.Now}
}

// PostLiked records that liker liked post and pushes it to the author.
// Liking your own post produces nothing.
func (n *Notifier) PostLiked(ctx context.Context, post models.Post, liker *models.Session) error {
	if liker == nil || post.UserID == "" || post.UserID == liker.AccountID {
		return nil
	}

	now := n.now()
	rec := &models.Notification{
		Recipient:   post.UserID,
		Type:        models.NotificationTypeLike,
		RelatedUser: liker.AccountID,
		RelatedPost: post.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := n.repo.Insert(ctx, rec); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	if n.pusher == nil || n.tokens == nil {
		return nil
	}
	tokens, err := n.tokens.PushTokens(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("load push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	msg := Message{
		Title: "New like",
		Body:  fmt.Sprintf("%s liked your post", liker.AuthorName()),
		Data:  map[string]string{"postId": post.ID, "type": string(models.NotificationTypeLike)},
	}
	if err := n.pusher.Push(ctx, tokens, msg); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// PostLikedAsync runs PostLiked in the background and logs failures.
func (n *Notifier) PostLikedAsync(post models.Post, liker *models.Session) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.PostLiked(ctx, post, liker); err != nil {
			lib.LogJSON("warn", "like notification failed", map[string]interface{}{
				"post_id": post.ID,
				"liker":   liker.AccountID,
				"error":   err.Error(),
			})
		}
	}()
}

func (n *Notifier) List(ctx context.Context, recipient string) ([]models.Notification, error) {
	return n.repo.ListFor(ctx, recipient)
}

func (n *Notifier) MarkRead(ctx context.Context, id, recipient string) error {
	return n.repo.MarkRead(ctx, id, recipient)
}
