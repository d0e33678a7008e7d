package feed

import (
	"sort"

	"github.com/theleywin/Framez-Backend/src/models"
)

// Normalize converts raw documents into posts sorted newest first. Missing
// likes become an empty set and missing comment counts become zero.
func Normalize(docs []models.PostDocument) []models.Post {
	posts := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		likes := make([]string, 0, len(d.Likes))
		seen := make(map[string]struct{}, len(d.Likes))
		for _, id := range d.Likes {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			likes = append(likes, id)
		}

		comments := 0
		if d.Comments != nil && *d.Comments > 0 {
			comments = *d.Comments
		}

		posts = append(posts, models.Post{
			ID:              d.Id.Hex(),
			UserID:          d.UserId,
			UserEmail:       d.UserEmail,
			UserDisplayName: d.UserDisplayName,
			Content:         d.Content,
			ImageURL:        d.ImageURL,
			CreatedAt:       d.CreatedAt,
			Likes:           likes,
			Comments:        comments,
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		p.Likes = append([]string(nil), p.Likes...)
		if p.Likes == nil {
			p.Likes = []string{}
		}
		out[i] = p
	}
	return out
}
