package feed

import (
	"context"
	"fmt"

	"github.com/theleywin/Framez-Backend/src/models"
)

type LikeAction string

const (
	LikeAdded   LikeAction = "liked"
	LikeRemoved LikeAction = "unliked"
)

// ToggleLike adds the session's account to the post's likes, or removes it
// if the local view already lists it. Membership comes from the latest
// snapshot this subscription received, so two toggles issued before the
// store pushes again both see the same state.
func (s *Subscription) ToggleLike(ctx context.Context, postID string, session *models.Session) (LikeAction, error) {
	if session == nil || session.AccountID == "" {
		return "", ErrUnauthenticated
	}

	post, ok := s.Post(postID)
	if !ok {
		return "", ErrPostNotFound
	}

	if post.LikedBy(session.AccountID) {
		if err := s.store.RemoveLike(ctx, postID, session.AccountID); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMutationFailed, err)
		}
		return LikeRemoved, nil
	}

	if err := s.store.AddLike(ctx, postID, session.AccountID); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMutationFailed, err)
	}
	return LikeAdded, nil
}
