package controllers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/models"
)

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/v1/auth/signup", "", fiber.Map{
		"email": "alice@framez.dev", "password": "secret1", "displayName": "Alice",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body["_raw"])
	token := body["token"].(string)
	assert.NotEmpty(t, token)

	resp, _ = env.do(t, "POST", "/api/v1/auth/signup", "", fiber.Map{
		"email": "alice@framez.dev", "password": "secret1", "displayName": "Alice",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, "POST", "/api/v1/auth/signup", "", fiber.Map{
		"email": "not-an-email", "password": "123", "displayName": "",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "email must be a valid e-mail")

	resp, _ = env.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "alice@framez.dev", "password": "wrong!"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "alice@framez.dev", "password": "secret1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	loginToken := body["token"].(string)

	resp, body = env.do(t, "GET", "/api/v1/auth/me", loginToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alice", body["displayName"])

	resp, _ = env.do(t, "POST", "/api/v1/auth/logout", loginToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, "GET", "/api/v1/auth/me", loginToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The signup token is still valid.
	resp, _ = env.do(t, "GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPostsRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, "GET", "/api/v1/posts", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@framez.dev", "Alice")

	first := env.createPost(t, alice.Token, "first")
	second := env.createPost(t, alice.Token, "  second  ")

	resp, body := env.do(t, "GET", "/api/v1/posts", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	posts := body["posts"].([]interface{})
	require.Len(t, posts, 2)
	newest := posts[0].(map[string]interface{})
	assert.Equal(t, second, newest["id"])
	assert.Equal(t, "second", newest["content"])
	assert.Equal(t, "Alice", newest["userDisplayName"])
	assert.Equal(t, []interface{}{}, newest["likes"])
	assert.Equal(t, float64(0), newest["comments"])
	assert.Equal(t, first, posts[1].(map[string]interface{})["id"])
}

func TestCreatePostWithImage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@framez.dev", "Alice")

	resp, body := env.send(t, multipartRequest(t, "", "sunset.jpg", []byte("jpeg")), alice.Token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body["_raw"])

	stored, ok := env.mem.Get(body["id"].(string))
	require.True(t, ok)
	assert.Equal(t, "https://img.example/sunset.jpg", stored.ImageURL)
	assert.Equal(t, []string{"sunset.jpg"}, env.host.uploads)
}

func TestCreateEmptyPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@framez.dev", "Alice")

	resp, body := env.send(t, multipartRequest(t, "   ", "", nil), alice.Token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, feed.ErrEmptyPost.Error(), body["message"])
	assert.Empty(t, env.mirror.View().Posts)
}

func TestLikeToggleAndNotification(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signUp(t, "bob@framez.dev", "Bob")
	alice := env.signUp(t, "alice@framez.dev", "Alice")
	postID := env.createPost(t, bob.Token, "sunset")

	resp, body := env.do(t, "POST", "/api/v1/posts/"+postID+"/like", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body["_raw"])
	assert.Equal(t, "liked", body["action"])

	post, ok := env.mirror.Subscription().Post(postID)
	require.True(t, ok)
	assert.Equal(t, []string{alice.ID}, post.Likes)

	require.Eventually(t, func() bool {
		list, _ := env.notes.ListFor(context.Background(), bob.ID)
		return len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, body = env.do(t, "POST", "/api/v1/posts/"+postID+"/like", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "unliked", body["action"])

	resp, _ = env.do(t, "POST", "/api/v1/posts/"+primitiveHex()+"/like", alice.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLikingOwnPostDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signUp(t, "bob@framez.dev", "Bob")
	postID := env.createPost(t, bob.Token, "mine")

	resp, _ := env.do(t, "POST", "/api/v1/posts/"+postID+"/like", bob.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	list, _ := env.notes.ListFor(context.Background(), bob.ID)
	assert.Empty(t, list)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signUp(t, "bob@framez.dev", "Bob")
	alice := env.signUp(t, "alice@framez.dev", "Alice")
	postID := env.createPost(t, bob.Token, "mine")

	resp, _ := env.do(t, "DELETE", "/api/v1/posts/"+postID, alice.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_, ok := env.mem.Get(postID)
	assert.True(t, ok)

	resp, _ = env.do(t, "DELETE", "/api/v1/posts/"+postID, bob.Token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, env.mirror.View().Posts)

	resp, _ = env.do(t, "DELETE", "/api/v1/posts/"+postID, bob.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signUp(t, "bob@framez.dev", "Bob Marley")
	alice := env.signUp(t, "alice@framez.dev", "Alice")
	env.createPost(t, bob.Token, "text only")
	resp, _ := env.send(t, multipartRequest(t, "", "pic.png", []byte("png")), bob.Token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	env.createPost(t, alice.Token, "not bob's")

	resp, body := env.do(t, "GET", "/api/v1/users/"+bob.ID+"/profile", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body["_raw"])
	assert.Equal(t, "grid", body["view"])
	assert.Equal(t, "BM", body["initials"])
	assert.Equal(t, float64(2), body["postCount"])
	items := body["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "https://img.example/pic.png", items[0].(map[string]interface{})["imageUrl"])
	assert.Equal(t, "text only", items[1].(map[string]interface{})["preview"])

	resp, body = env.do(t, "GET", "/api/v1/users/"+bob.ID+"/profile?view=feed", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["posts"], 2)

	resp, _ = env.do(t, "GET", "/api/v1/users/"+bob.ID+"/profile?view=list", alice.Token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/v1/users/"+primitiveHex()+"/profile", alice.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signUp(t, "bob@framez.dev", "Bob")
	alice := env.signUp(t, "alice@framez.dev", "Alice")
	postID := env.createPost(t, bob.Token, "sunset")

	resp, _ := env.do(t, "PUT", "/api/v1/users/push-token", bob.Token, fiber.Map{"token": "ExponentPushToken[bob]"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, "PUT", "/api/v1/users/push-token", bob.Token, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	env.do(t, "POST", "/api/v1/posts/"+postID+"/like", alice.Token, nil)

	var list []models.Notification
	require.Eventually(t, func() bool {
		list, _ = env.notes.ListFor(context.Background(), bob.ID)
		return len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, body := env.do(t, "GET", "/api/v1/notifications", bob.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body["_raw"], postID)

	path := "/api/v1/notifications/" + list[0].Id.Hex() + "/read"
	resp, _ = env.do(t, "PUT", path, alice.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, "PUT", path, bob.Token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, "GET", "/api/v1/status", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["feed"])
}

func TestMirrorResubscribesAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	first := env.mirror.Subscription()

	env.mem.FailWatches(errors.New("connection reset"))

	require.Eventually(t, func() bool {
		return env.mirror.Subscription() != first && env.mirror.Ready()
	}, 2*time.Second, 5*time.Millisecond)
}

// failingStore delivers one snapshot and then fails every watch.
type failingStore struct {
	feed.Store
	docs []models.PostDocument
}

func (f failingStore) Watch(_ context.Context, _ feed.Filter, deliver func([]models.PostDocument)) error {
	deliver(f.docs)
	return feed.ErrPermissionDenied
}

func TestFeedServesLastPostsWhileMirrorIsDown(t *testing.T) {
	docs := []models.PostDocument{{Id: primitiveID(), UserId: "bob", Content: "last good", CreatedAt: time.Now()}}
	env := newTestEnv(t, withMirrorStore(failingStore{docs: docs}))
	alice := env.signUp(t, "alice@framez.dev", "Alice")

	require.Eventually(t, func() bool {
		return env.mirror.View().Status == feed.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	resp, body := env.do(t, "GET", "/api/v1/posts", alice.Token, nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Feed is temporarily unavailable", body["message"])
	assert.Equal(t, string(feed.StatusFailed), body["status"])
	posts, ok := body["posts"].([]interface{})
	require.True(t, ok, body["_raw"])
	require.Len(t, posts, 1)
	assert.Equal(t, "last good", posts[0].(map[string]interface{})["content"])

	// Likes still need a live mirror.
	resp, _ = env.do(t, "POST", "/api/v1/posts/"+docs[0].Id.Hex()+"/like", alice.Token, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestStreamSendsSnapshotThenError(t *testing.T) {
	docs := []models.PostDocument{{Id: primitiveID(), UserId: "bob", Content: "streamed", CreatedAt: time.Now()}}
	env := newTestEnv(t, withStreamStore(failingStore{docs: docs}))
	alice := env.signUp(t, "alice@framez.dev", "Alice")

	resp, body := env.do(t, "GET", "/api/v1/posts/stream", alice.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw := body["_raw"].(string)
	snapshot := strings.Index(raw, "event: snapshot")
	failure := strings.Index(raw, "event: error")
	require.GreaterOrEqual(t, snapshot, 0, raw)
	require.Greater(t, failure, snapshot, raw)
	assert.Contains(t, raw, `"content":"streamed"`)
	assert.Contains(t, raw, feed.ErrSubscription.Error())
}

func TestStreamEndsOnSignOut(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@framez.dev", "Alice")
	env.createPost(t, alice.Token, "hello")

	req := httptest.NewRequest("GET", "/api/v1/posts/stream?author="+alice.ID, nil)
	req.Header.Set("Authorization", "Bearer "+alice.Token)

	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := env.app.Test(req, 5000)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		buf := new(strings.Builder)
		_, err = ioCopy(buf, resp)
		done <- result{raw: buf.String(), err: err}
	}()

	// The mirror holds one watch; the stream adds the second.
	require.Eventually(t, func() bool { return env.mem.WatchCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, env.sessions.SignOut(context.Background(), alice.Token))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Contains(t, r.raw, "event: signout")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after sign out")
	}

	require.Eventually(t, func() bool { return env.mem.WatchCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestGridItemsAndInitials(t *testing.T) {
	long := strings.Repeat("a", 200)
	items := controllers.GridItems([]models.Post{
		{ID: "1", ImageURL: "https://img.example/1.jpg", Content: "caption"},
		{ID: "2", Content: long},
	})
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Preview)
	assert.Equal(t, []rune(strings.Repeat("a", 140)+"…"), []rune(items[1].Preview))

	assert.Equal(t, "N", controllers.Initials(""))
	assert.Equal(t, "A", controllers.Initials("alice"))
	assert.Equal(t, "JR", controllers.Initials("jane ray smith"))
}
