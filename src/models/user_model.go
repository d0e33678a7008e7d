package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	Id          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	DisplayName string             `json:"displayName" bson:"displayName"`
	Password    string             `json:"-" bson:"password"`
	PushTokens  []string           `json:"-" bson:"pushTokens,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

type UserDto struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Session is the authenticated account behind a request. It is read by the
// feed operations, never modified by them.
type Session struct {
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	TokenID     string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AuthorName is the display name stamped on new posts, falling back to the e-mail.
func (s *Session) AuthorName() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}
