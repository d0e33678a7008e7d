package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/models"
	"github.com/theleywin/Framez-Backend/src/notify"
)

type MongoUsers struct {
	users       *mongo.Collection
	revocations *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{
		users:       db.Collection(UsersCollection),
		revocations: db.Collection(RevocationsCollection),
	}
}

// revocation is one signed-out token id. A TTL index on expiresAt removes it
// once the token could not authenticate anyway.
type revocation struct {
	TokenID   string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// RevocationPipeline keeps only newly recorded revocations.
func RevocationPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
}

func (m *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (m *MongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *MongoUsers) Insert(ctx context.Context, user *models.User) (string, error) {
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", auth.ErrEmailTaken
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.Id.Hex(), nil
}

func (m *MongoUsers) AddPushToken(ctx context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrUserNotFound
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$addToSet": bson.M{"pushTokens": token}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (m *MongoUsers) PushTokens(ctx context.Context, accountID string) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	var user models.User
	opts := options.FindOne().SetProjection(bson.M{"pushTokens": 1})
	err = m.users.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user.PushTokens, nil
}

func (m *MongoUsers) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := m.revocations.InsertOne(ctx, revocation{TokenID: tokenID, ExpiresAt: expiresAt})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert revocation: %w", err)
	}
	return nil
}

func (m *MongoUsers) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := m.revocations.FindOne(ctx, bson.M{"_id": tokenID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WatchRevocations follows inserts into the revocations collection through a
// change stream, the same way the post store follows the feed.
func (m *MongoUsers) WatchRevocations(ctx context.Context, fn func(string, time.Time)) error {
	stream, err := m.revocations.Watch(ctx, RevocationPipeline())
	if err != nil {
		return fmt.Errorf("watch revocations: %w", err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event struct {
			FullDocument revocation `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode revocation: %w", err)
		}
		fn(event.FullDocument.TokenID, event.FullDocument.ExpiresAt)
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

type MongoNotifications struct {
	notifications *mongo.Collection
}

func NewMongoNotifications(db *mongo.Database) *MongoNotifications {
	return &MongoNotifications{notifications: db.Collection(NotificationsCollection)}
}

func (m *MongoNotifications) Insert(ctx context.Context, n *models.Notification) error {
	if n.Id.IsZero() {
		n.Id = primitive.NewObjectID()
	}
	if _, err := m.notifications.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (m *MongoNotifications) ListFor(ctx context.Context, recipient string) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := m.notifications.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Notification{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoNotifications) MarkRead(ctx context.Context, id, recipient string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notify.ErrNotFound
	}
	res, err := m.notifications.UpdateOne(ctx,
		bson.M{"_id": oid, "recipient": recipient},
		bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notify.ErrNotFound
	}
	return nil
}
