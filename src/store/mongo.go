package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/models"
)

const (
	PostsCollection         = "posts"
	UsersCollection         = "users"
	NotificationsCollection = "notifications"
	RevocationsCollection   = "revocations"
)

// Mongo keeps posts in a Mongo collection and follows them through a change
// stream, so the server must be a replica set member.
type Mongo struct {
	posts *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{posts: db.Collection(PostsCollection)}
}

// SnapshotFilter is the query filter for the posts matching f.
func SnapshotFilter(f feed.Filter) bson.M {
	if f.AuthorID == "" {
		return bson.M{}
	}
	return bson.M{"userId": f.AuthorID}
}

// ChangePipeline narrows the change stream to events that can affect the
// snapshot for f. Deletes carry no document, so they always pass.
func ChangePipeline(f feed.Filter) mongo.Pipeline {
	if f.AuthorID == "" {
		return mongo.Pipeline{}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"delete", "invalidate", "drop", "rename", "dropDatabase"}}}}},
			bson.D{{Key: "fullDocument.userId", Value: f.AuthorID}},
		}}}}},
	}
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
}

// Watch opens the change stream before reading the snapshot so no write
// between the two goes unseen. Events arriving in a burst are folded into
// one requery.
func (m *Mongo) Watch(ctx context.Context, filter feed.Filter, deliver func([]models.PostDocument)) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := m.posts.Watch(ctx, ChangePipeline(filter), opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return mapError(fmt.Errorf("open change stream: %w", err))
	}
	defer stream.Close(context.Background())

	docs, err := m.snapshot(ctx, filter)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	deliver(docs)

	for stream.Next(ctx) {
		if err := checkEvent(stream); err != nil {
			return err
		}
		for stream.TryNext(ctx) {
			if err := checkEvent(stream); err != nil {
				return err
			}
		}

		docs, err := m.snapshot(ctx, filter)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		deliver(docs)
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := stream.Err(); err != nil {
		return mapError(fmt.Errorf("change stream: %w", err))
	}
	return errors.New("change stream closed")
}

func checkEvent(stream *mongo.ChangeStream) error {
	var ev changeEvent
	if err := stream.Decode(&ev); err != nil {
		return fmt.Errorf("decode change event: %w", err)
	}
	switch ev.OperationType {
	case "invalidate", "drop", "rename", "dropDatabase":
		return fmt.Errorf("change stream %s", ev.OperationType)
	}
	return nil
}

func (m *Mongo) snapshot(ctx context.Context, filter feed.Filter) ([]models.PostDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.posts.Find(ctx, SnapshotFilter(filter), opts)
	if err != nil {
		return nil, mapError(fmt.Errorf("query posts: %w", err))
	}
	defer cursor.Close(ctx)

	docs := []models.PostDocument{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError(fmt.Errorf("read posts: %w", err))
	}
	return docs, nil
}

func (m *Mongo) AddLike(ctx context.Context, postID, accountID string) error {
	return m.updateLikes(ctx, postID, bson.M{"$addToSet": bson.M{"likes": accountID}})
}

func (m *Mongo) RemoveLike(ctx context.Context, postID, accountID string) error {
	return m.updateLikes(ctx, postID, bson.M{"$pull": bson.M{"likes": accountID}})
}

func (m *Mongo) updateLikes(ctx context.Context, postID string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return feed.ErrPostNotFound
	}
	res, err := m.posts.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return feed.ErrPostNotFound
	}
	return nil
}

// InsertDocument is the upsert that creates a post. createdAt comes from
// the server clock.
func InsertDocument(post models.NewPost) bson.M {
	fields := bson.M{
		"userId":          post.UserID,
		"userEmail":       post.UserEmail,
		"userDisplayName": post.UserDisplayName,
		"content":         post.Content,
		"likes":           bson.A{},
		"comments":        0,
	}
	if post.ImageURL != "" {
		fields["imageUrl"] = post.ImageURL
	}
	return bson.M{
		"$setOnInsert": fields,
		"$currentDate": bson.M{"createdAt": true},
	}
}

func (m *Mongo) InsertPost(ctx context.Context, post models.NewPost) (string, error) {
	id := primitive.NewObjectID()
	opts := options.Update().SetUpsert(true)
	if _, err := m.posts.UpdateOne(ctx, bson.M{"_id": id}, InsertDocument(post), opts); err != nil {
		return "", mapError(err)
	}
	return id.Hex(), nil
}

// DeletePost deletes only when requesterID wrote the post.
func (m *Mongo) DeletePost(ctx context.Context, postID, requesterID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return feed.ErrPostNotFound
	}

	res, err := m.posts.DeleteOne(ctx, bson.M{"_id": oid, "userId": requesterID})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount > 0 {
		return nil
	}

	n, err := m.posts.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapError(err)
	}
	if n > 0 {
		return feed.ErrPermissionDenied
	}
	return feed.ErrPostNotFound
}

// unauthorized is the server's error code for a denied operation.
const unauthorized = 13

func mapError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(unauthorized) {
		return fmt.Errorf("%w: %w", feed.ErrPermissionDenied, err)
	}
	return err
}
