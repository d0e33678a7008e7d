package feed

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs a session and none was given.
	ErrUnauthenticated = errors.New("authentication required")
	ErrEmptyPost       = errors.New("post needs text or an image")
	ErrImageTooLarge   = errors.New("image exceeds the upload size limit")
	ErrUploadFailed    = errors.New("image upload failed")
	ErrMutationFailed  = errors.New("document store rejected the write")
	ErrSubscription    = errors.New("feed subscription failed")

	// ErrPermissionDenied is reported by stores enforcing access rules. The
	// feed wraps it together with ErrMutationFailed.
	ErrPermissionDenied = errors.New("permission denied")
	ErrPostNotFound     = errors.New("post not found")
)
