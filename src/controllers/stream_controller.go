package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/middleware"
	"github.com/theleywin/Framez-Backend/src/models"
)

const streamPing = 15 * time.Second

// StreamPosts streams the feed, or one author's posts with ?author=, as
// server-sent events. Every snapshot is a "snapshot" event; a failed
// subscription sends one "error" event and closes the stream. The
// subscription is released when the client goes away or the token is signed
// out.
func (h *Handler) StreamPosts(c *fiber.Ctx) error {
	token := middleware.CurrentToken(c)
	filter := feed.Filter{AuthorID: c.Query("author")}

	signedOut := make(chan struct{})
	var closeOnce sync.Once
	stopListening := h.sessions.OnSessionChange(c.UserContext(), token, func(s *models.Session) {
		if s == nil {
			closeOnce.Do(func() { close(signedOut) })
		}
	})

	views := make(chan feed.View, 8)
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.posts.Subscribe(ctx, filter, func(v feed.View) {
		offerLatest(views, v)
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Release()
		defer stopListening()

		ping := time.NewTicker(streamPing)
		defer ping.Stop()

		for {
			select {
			case v := <-views:
				if !writeView(w, v) || v.Status == feed.StatusFailed {
					return
				}
			case <-sub.Done():
				// Views published before the watch ended are still queued.
				for {
					select {
					case v := <-views:
						if !writeView(w, v) || v.Status == feed.StatusFailed {
							return
						}
					default:
						return
					}
				}
			case <-signedOut:
				writeEvent(w, "signout", fiber.Map{"message": "Session ended"})
				return
			case <-ping.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

// offerLatest queues v, dropping the oldest queued view when the client is
// behind. Every view is a full snapshot, so only the newest matters.
func offerLatest(views chan feed.View, v feed.View) {
	for {
		select {
		case views <- v:
			return
		default:
		}
		select {
		case <-views:
		default:
		}
	}
}

func writeView(w *bufio.Writer, v feed.View) bool {
	if v.Status == feed.StatusFailed {
		return writeEvent(w, "error", fiber.Map{
			"message": errString(v.Err),
			"posts":   v.Posts,
		})
	}
	return writeEvent(w, "snapshot", v)
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return false
	}
	return w.Flush() == nil
}
