package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/theleywin/Framez-Backend/src/feed"
)

// PutObjectAPI is the part of the S3 client S3Host uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Host stores images in a public S3 bucket under posts/.
type S3Host struct {
	client PutObjectAPI
	bucket string
	region string
}

func NewS3Host(client PutObjectAPI, bucket, region string) *S3Host {
	return &S3Host{client: client, bucket: bucket, region: region}
}

// NewS3Client builds a client from static credentials when they are given,
// or from the default AWS chain otherwise.
func NewS3Client(ctx context.Context, region, accessKeyID, secretAccessKey string) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// ObjectKey names the object for an uploaded image.
func ObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("posts/post_%s%s", uuid.NewString(), ext)
}

func (h *S3Host) Upload(ctx context.Context, img *feed.Image) (string, error) {
	data, err := io.ReadAll(img.Body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	key := ObjectKey(img.Filename)
	contentType := img.ContentType
	if contentType == "" {
		contentType = feed.ContentTypeFor(img.Filename)
	}

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.bucket, h.region, key), nil
}
