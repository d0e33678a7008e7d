package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/notify"
	"github.com/theleywin/Framez-Backend/src/routes"
	"github.com/theleywin/Framez-Backend/src/store"
)

type fakeHost struct {
	mu      sync.Mutex
	uploads []string
}

func (h *fakeHost) Upload(_ context.Context, img *feed.Image) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, img.Filename)
	return "https://img.example/" + img.Filename, nil
}

type testEnv struct {
	app      *fiber.App
	mem      *store.Memory
	users    *store.MemoryUsers
	notes    *store.MemoryNotifications
	sessions *auth.Service
	host     *fakeHost
	mirror   *controllers.Mirror
}

type envOption func(*envConfig)

type envConfig struct {
	streamStore feed.Store
	mirrorStore feed.Store
}

// withStreamStore serves the post routes other than the mirror from st.
func withStreamStore(st feed.Store) envOption {
	return func(c *envConfig) { c.streamStore = st }
}

// withMirrorStore backs the mirror with st and does not wait for it to be
// ready. Failed mirror subscriptions are retried only after an hour.
func withMirrorStore(st feed.Store) envOption {
	return func(c *envConfig) { c.mirrorStore = st }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &testEnv{
		mem:   store.NewMemory(),
		users: store.NewMemoryUsers(),
		notes: store.NewMemoryNotifications(),
		host:  &fakeHost{},
	}
	env.sessions = auth.NewService(env.users, "test-secret")

	posts := feed.NewService(env.mem, env.host)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if cfg.mirrorStore != nil {
		env.mirror = controllers.NewMirror(feed.NewService(cfg.mirrorStore, env.host), time.Hour)
		<-env.mirror.Start(ctx)
	} else {
		env.mirror = controllers.NewMirror(posts, 10*time.Millisecond)
		<-env.mirror.Start(ctx)
		require.Eventually(t, env.mirror.Ready, 2*time.Second, 5*time.Millisecond)
	}

	served := posts
	if cfg.streamStore != nil {
		served = feed.NewService(cfg.streamStore, env.host)
	}

	notifier := notify.NewNotifier(env.notes, env.users, nil)
	handler := controllers.NewHandler(served, env.sessions, env.users, notifier, env.mirror)

	env.app = fiber.New()
	routes.Register(env.app, handler, env.sessions, routes.Options{PostsPerMinute: 600})
	return env
}

type account struct {
	ID    string
	Token string
}

func (e *testEnv) signUp(t *testing.T, email, name string) account {
	t.Helper()
	session, token, err := e.sessions.SignUp(context.Background(), email, "secret1", name)
	require.NoError(t, err)
	return account{ID: session.AccountID, Token: token}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	out["_raw"] = string(raw)
	return resp, out
}

func (e *testEnv) createPost(t *testing.T, token, content string) string {
	t.Helper()
	resp, body := e.send(t, multipartRequest(t, content, "", nil), token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body["_raw"])
	return body["id"].(string)
}

func multipartRequest(t *testing.T, content, filename string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", content))
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func primitiveID() primitive.ObjectID {
	return primitive.NewObjectID()
}

func primitiveHex() string {
	return primitive.NewObjectID().Hex()
}

func ioCopy(dst io.Writer, resp *http.Response) (int64, error) {
	return io.Copy(dst, resp.Body)
}
