// Seed tool: creates demo accounts and posts through the same services the
// server uses, so the documents look exactly like real ones.
// - every account is demo<N>@framez.dev with the -password flag
// - -image attaches a local file (path or file:// URI) to every -image-every'th post
// - -likes gives each post up to that many likes from random demo accounts
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/media"
	"github.com/theleywin/Framez-Backend/src/models"
	"github.com/theleywin/Framez-Backend/src/store"
)

var phrases = []string{
	"Golden hour at the pier",
	"First attempt at sourdough",
	"Rainy day, good book",
	"Morning run done",
	"New desk setup",
	"Sunday market finds",
	"Trying film again",
	"City lights from the rooftop",
}

func main() {
	var numUsers, numPosts, maxLikes, imageEvery int
	var password, imagePath string
	flag.IntVar(&numUsers, "users", 5, "number of demo accounts")
	flag.IntVar(&numPosts, "posts", 30, "number of posts to create")
	flag.IntVar(&maxLikes, "likes", 3, "maximum likes per post")
	flag.StringVar(&password, "password", "framez123", "password for every demo account")
	flag.StringVar(&imagePath, "image", "", "image to attach, as a path or file:// URI")
	flag.IntVar(&imageEvery, "image-every", 3, "attach the image to every n-th post")
	flag.Parse()

	_ = godotenv.Load()
	cfg := lib.LoadConfig()

	ctx := context.Background()
	client, err := lib.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := lib.EnsureIndexes(ctx, lib.DB); err != nil {
		log.Fatalf("indexes: %v", err)
	}

	users := store.NewMongoUsers(lib.DB)
	sessions := auth.NewService(users, cfg.JWTSecret)
	posts := feed.NewService(store.NewMongo(lib.DB),
		media.NewCloudinary(cfg.CloudinaryBaseURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset))

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	accounts, err := seedAccounts(ctx, sessions, numUsers, password)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}
	log.Printf("accounts ready: %d", len(accounts))

	created := 0
	for i := 0; i < numPosts; i++ {
		author := accounts[r.Intn(len(accounts))]
		draft := feed.Draft{Text: fmt.Sprintf("%s #%d", phrases[r.Intn(len(phrases))], i+1)}

		if imagePath != "" && imageEvery > 0 && i%imageEvery == 0 {
			img, file, err := feed.OpenImage(imagePath)
			if err != nil {
				log.Fatalf("open image: %v", err)
			}
			draft.Image = img
			_, err = posts.CreatePost(ctx, draft, author)
			file.Close()
			if err != nil {
				log.Printf("post %d: %v", i+1, err)
				continue
			}
			created++
			continue
		}

		if _, err := posts.CreatePost(ctx, draft, author); err != nil {
			log.Printf("post %d: %v", i+1, err)
			continue
		}
		created++
	}
	log.Printf("posts created: %d", created)

	if maxLikes > 0 {
		liked, err := seedLikes(ctx, posts, accounts, r, maxLikes)
		if err != nil {
			log.Fatalf("seed likes: %v", err)
		}
		log.Printf("likes added: %d", liked)
	}

	log.Printf("done in %s", time.Since(start).Truncate(time.Millisecond))
}

func seedAccounts(ctx context.Context, sessions *auth.Service, n int, password string) ([]*models.Session, error) {
	out := make([]*models.Session, 0, n)
	for i := 1; i <= n; i++ {
		email := fmt.Sprintf("demo%d@framez.dev", i)
		session, _, err := sessions.SignUp(ctx, email, password, fmt.Sprintf("Demo User %d", i))
		if errors.Is(err, auth.ErrEmailTaken) {
			session, _, err = sessions.SignIn(ctx, email, password)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", email, err)
		}
		out = append(out, session)
	}
	if len(out) == 0 {
		return nil, errors.New("need at least one account")
	}
	return out, nil
}

// seedLikes likes posts through one live subscription, as the server does.
func seedLikes(ctx context.Context, posts *feed.Service, accounts []*models.Session, r *rand.Rand, maxLikes int) (int, error) {
	ready := make(chan struct{})
	sub := posts.Subscribe(ctx, feed.Filter{}, func(v feed.View) {
		select {
		case <-ready:
		default:
			close(ready)
		}
	})
	defer sub.Release()

	select {
	case <-ready:
	case <-sub.Done():
		return 0, sub.Err()
	}

	liked := 0
	for _, p := range sub.View().Posts {
		for _, idx := range r.Perm(len(accounts))[:r.Intn(min(maxLikes, len(accounts))+1)] {
			liker := accounts[idx]
			if p.LikedBy(liker.AccountID) {
				continue
			}
			if _, err := sub.ToggleLike(ctx, p.ID, liker); err != nil {
				return liked, err
			}
			liked++
		}
	}
	return liked, nil
}
