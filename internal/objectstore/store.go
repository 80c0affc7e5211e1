// Package objectstore wraps the S3 API used by both sides of the pipeline:
// the camera uploads unverified captures with provenance metadata, the
// verifier fetches raw bytes back, archives verified media and scans
// destination buckets for the next free sequence number.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is the result of a Get: raw bytes plus the user metadata that was
// attached at upload time.
type Object struct {
	Body     []byte
	Metadata map[string]string
}

// Store is the object-store capability consumed by the uploader and the
// verifier. *Client implements it against S3; tests use fakes.
type Store interface {
	Put(ctx context.Context, bucket, key string, body []byte, metadata map[string]string) error
	Get(ctx context.Context, bucket, key string) (*Object, error)
	ListKeys(ctx context.Context, bucket string) ([]string, error)
	NextSequence(ctx context.Context, bucket string) (int, error)
}

// api is the subset of *s3.Client we call. Kept private so tests can stub
// the SDK without a network.
type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Client struct {
	s3 api
}

// Config carries the settings needed to reach an S3-compatible backend.
type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// NewClient builds an S3-backed Store from static credentials and an
// optional base endpoint (MinIO and friends).
func NewClient(ctx context.Context, c Config) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{s3: client}, nil
}

// Put uploads body under bucket/key with the given user metadata. Video
// objects are stored with an attachment disposition so browsers download
// rather than stream them.
func (c *Client) Put(ctx context.Context, bucket, key string, body []byte, metadata map[string]string) error {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: metadata,
	}
	if strings.HasSuffix(key, ".avi") {
		in.ContentDisposition = aws.String("attachment")
	}
	if strings.HasSuffix(key, ".mp4") {
		in.ContentType = aws.String("video/mp4")
	}

	if _, err := c.s3.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get fetches bucket/key and returns its bytes and user metadata.
func (c *Client) Get(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}

	return &Object{Body: body, Metadata: out.Metadata}, nil
}

// ListKeys returns every object key in the bucket, following pagination.
func (c *Client) ListKeys(ctx context.Context, bucket string) ([]string, error) {
	var keys []string
	var token *string

	for {
		out, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", bucket, err)
		}

		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

// NextSequence scans the bucket for keys of the form "<n>.<ext>" and returns
// the highest n plus one. Non-numeric keys are ignored. An empty bucket
// yields 1.
func (c *Client) NextSequence(ctx context.Context, bucket string) (int, error) {
	keys, err := c.ListKeys(ctx, bucket)
	if err != nil {
		return 0, err
	}
	return nextFromKeys(keys), nil
}

func nextFromKeys(keys []string) int {
	highest := 0
	for _, key := range keys {
		base, _, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}
