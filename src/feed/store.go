package feed

import (
	"context"
	"io"

	"github.com/theleywin/Framez-Backend/src/models"
)

// Filter selects the posts a subscription follows. An empty AuthorID is the
// global feed.
type Filter struct {
	AuthorID string
}

// Store is the document store behind the feed.
//
// Watch delivers the complete filtered result set once on start and again
// after every change that may affect it, one call at a time. It blocks until
// ctx is done, returning nil or ctx.Err(), or until the store can no longer
// deliver, returning that error.
type Store interface {
	Watch(ctx context.Context, filter Filter, deliver func([]models.PostDocument)) error
	AddLike(ctx context.Context, postID, accountID string) error
	RemoveLike(ctx context.Context, postID, accountID string) error
	InsertPost(ctx context.Context, post models.NewPost) (string, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
}

// ImageHost stores image bytes and returns a durable URL for them.
type ImageHost interface {
	Upload(ctx context.Context, img *Image) (string, error)
}

// Image is an image attached to a draft. Size must be known before upload.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
