package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostDocument is a post as the document store holds it. Likes and Comments
// may be missing on freshly written documents.
type PostDocument struct {
	Id              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserId          string             `json:"userId" bson:"userId"`
	UserEmail       string             `json:"userEmail" bson:"userEmail"`
	UserDisplayName string             `json:"userDisplayName" bson:"userDisplayName"`
	Content         string             `json:"content" bson:"content"`
	ImageURL        string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	Likes           []string           `json:"likes,omitempty" bson:"likes,omitempty"`
	Comments        *int               `json:"comments,omitempty" bson:"comments,omitempty"`
}

// Post is the normalized form published to observers.
type Post struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	UserEmail       string    `json:"userEmail,omitempty"`
	UserDisplayName string    `json:"userDisplayName"`
	Content         string    `json:"content,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Likes           []string  `json:"likes"`
	Comments        int       `json:"comments"`
}

// LikedBy reports whether accountID is in the post's likes.
func (p Post) LikedBy(accountID string) bool {
	for _, id := range p.Likes {
		if id == accountID {
			return true
		}
	}
	return false
}

// NewPost carries the author-supplied fields of a post about to be stored.
// The store assigns the id and the creation time.
type NewPost struct {
	UserID          string
	UserEmail       string
	UserDisplayName string
	Content         string
	ImageURL        string
}

// GridItem is the compact form used by the profile grid view.
type GridItem struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl,omitempty"`
	Preview  string `json:"preview,omitempty"`
}
