package main

import (
	"context"
	"fmt"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/media"
	"github.com/theleywin/Framez-Backend/src/notify"
	"github.com/theleywin/Framez-Backend/src/store"
)

type backends struct {
	posts         feed.Store
	users         auth.Users
	tokens        notify.TokenSource
	notifications notify.Repository
	close         func()
}

func openBackends(ctx context.Context, cfg *lib.Config) (*backends, error) {
	switch cfg.Store {
	case "memory":
		users := store.NewMemoryUsers()
		return &backends{
			posts:         store.NewMemory(),
			users:         users,
			tokens:        users,
			notifications: store.NewMemoryNotifications(),
			close:         func() {},
		}, nil

	case "mongo":
		client, err := lib.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := lib.EnsureIndexes(ctx, lib.DB); err != nil {
			lib.LogJSON("warn", "index creation failed", map[string]interface{}{"error": err.Error()})
		}
		users := store.NewMongoUsers(lib.DB)
		return &backends{
			posts:         store.NewMongo(lib.DB),
			users:         users,
			tokens:        users,
			notifications: store.NewMongoNotifications(lib.DB),
			close: func() {
				_ = client.Disconnect(context.Background())
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
}

func openImageHost(ctx context.Context, cfg *lib.Config) (feed.ImageHost, error) {
	switch cfg.ImageHost {
	case "cloudinary":
		return media.NewCloudinary(cfg.CloudinaryBaseURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset), nil
	case "s3":
		client, err := media.NewS3Client(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		return media.NewS3Host(client, cfg.AWSBucketName, cfg.AWSRegion), nil
	default:
		return nil, fmt.Errorf("unknown IMAGE_HOST %q", cfg.ImageHost)
	}
}
