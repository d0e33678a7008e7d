// Package media holds the image hosts posts upload to.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/theleywin/Framez-Backend/src/feed"
)

const uploadTimeout = 60 * time.Second

// Cloudinary uploads images unsigned, through an upload preset.
type Cloudinary struct {
	baseURL   string
	cloudName string
	preset    string
}

func NewCloudinary(baseURL, cloudName, preset string) *Cloudinary {
	return &Cloudinary{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cloudName: cloudName,
		preset:    preset,
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) endpoint() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
}

func (c *Cloudinary) Upload(ctx context.Context, img *feed.Image) (string, error) {
	if c.cloudName == "" {
		return "", errors.New("cloudinary cloud name is not set")
	}
	data, err := io.ReadAll(img.Body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	timeout := uploadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("upload_preset", c.preset)

	agent := fiber.Post(c.endpoint()).Timeout(timeout)
	agent.FileData(&fiber.FormFile{Fieldname: "file", Name: fileName(img), Content: data})
	agent.MultipartForm(args)
	if err := agent.Parse(); err != nil {
		return "", fmt.Errorf("prepare upload: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("upload request: %w", errors.Join(errs...))
	}

	var resp cloudinaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upload response (status %d): %w", code, err)
	}
	if code != fiber.StatusOK || resp.SecureURL == "" {
		if resp.Error != nil && resp.Error.Message != "" {
			return "", errors.New(resp.Error.Message)
		}
		return "", fmt.Errorf("cloudinary upload failed with status %d", code)
	}
	return resp.SecureURL, nil
}

func fileName(img *feed.Image) string {
	if img.Filename != "" {
		return img.Filename
	}
	return "photo.jpg"
}
