package feed

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/theleywin/Framez-Backend/src/models"
)

// Draft is a post before submission.
type Draft struct {
	Text  string
	Image *Image
}

// CreatePost validates the draft, uploads its image if any, and stores the
// post. Nothing is stored when the upload fails.
func (s *Service) CreatePost(ctx context.Context, draft Draft, session *models.Session) (string, error) {
	text := strings.TrimSpace(draft.Text)
	if text == "" && draft.Image == nil {
		return "", ErrEmptyPost
	}
	if session == nil || session.AccountID == "" {
		return "", ErrUnauthenticated
	}
	if draft.Image != nil && draft.Image.Size > s.maxImageSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, draft.Image.Size, s.maxImageSize)
	}

	var imageURL string
	if draft.Image != nil {
		if s.images == nil {
			return "", fmt.Errorf("%w: no image host configured", ErrUploadFailed)
		}
		u, err := s.images.Upload(ctx, draft.Image)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		imageURL = u
	}

	id, err := s.store.InsertPost(ctx, models.NewPost{
		UserID:          session.AccountID,
		UserEmail:       session.Email,
		UserDisplayName: session.AuthorName(),
		Content:         text,
		ImageURL:        imageURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMutationFailed, err)
	}
	return id, nil
}

// DeletePost asks the store to delete the post on behalf of requesterID.
// Authorship is not checked here; the store's access rules decide.
func (s *Service) DeletePost(ctx context.Context, postID, requesterID string) error {
	if err := s.store.DeletePost(ctx, postID, requesterID); err != nil {
		return fmt.Errorf("%w: %w", ErrMutationFailed, err)
	}
	return nil
}

// OpenImage opens a local image given as a file:// URI or a plain path.
// The caller closes the returned file.
func OpenImage(uri string) (*Image, *os.File, error) {
	path := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, nil, fmt.Errorf("parse image uri: %w", err)
		}
		path = u.Path
		if u.Host != "" {
			path = filepath.Join(u.Host, u.Path)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat image: %w", err)
	}

	name := filepath.Base(path)
	return &Image{
		Filename:    name,
		ContentType: ContentTypeFor(name),
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}

// ContentTypeFor guesses an image content type from a file name.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if ext == "" {
		return "image"
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}
