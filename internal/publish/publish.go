// Package publish pushes a finished artifact to S3-compatible object
// storage and returns its public address.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Kind classifies a publish failure.
type Kind string

const (
	KindCredentialsMissing Kind = "credentials_missing"
	KindUploadFailed       Kind = "upload_failed"
)

type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// Options holds the two credential sets recognized for uploads. The
// primary set is tried first; the RunPod-managed set is the named
// fallback.
type Options struct {
	Bucket string

	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	FallbackEndpoint  string
	FallbackAccessKey string
	FallbackSecretKey string
}

type credentials struct {
	endpoint  string
	accessKey string
	secretKey string
}

type Publisher struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Publisher {
	return &Publisher{opts: opts, logger: logger}
}

// resolveCredentials walks the prioritized configuration sources. The
// fallback endpoint only replaces the primary one when it is set.
func (p *Publisher) resolveCredentials() (credentials, bool) {
	c := credentials{
		endpoint:  p.opts.Endpoint,
		accessKey: p.opts.AccessKeyID,
		secretKey: p.opts.SecretAccessKey,
	}

	if c.accessKey == "" || c.secretKey == "" {
		c.accessKey = p.opts.FallbackAccessKey
		c.secretKey = p.opts.FallbackSecretKey
		if p.opts.FallbackEndpoint != "" {
			c.endpoint = p.opts.FallbackEndpoint
		}
	}

	if c.accessKey == "" || c.secretKey == "" {
		return credentials{}, false
	}

	return c, true
}

// CredentialsConfigured reports whether any credential source resolves,
// for startup logging and the health endpoint.
func (p *Publisher) CredentialsConfigured() bool {
	_, ok := p.resolveCredentials()
	return ok
}

// Publish uploads localPath under objectKey and returns the public URL.
// When no credential source resolves it fails before any network
// activity.
func (p *Publisher) Publish(ctx context.Context, localPath, objectKey string) (string, error) {
	creds, ok := p.resolveCredentials()
	if !ok {
		return "", &Error{Kind: KindCredentialsMissing, Detail: "S3 credentials not configured"}
	}

	p.logger.Info("uploading artifact",
		slog.String("bucket", p.opts.Bucket),
		slog.String("key", objectKey),
	)

	client := s3.NewFromConfig(aws.Config{
		Region:      "auto",
		Credentials: awscreds.NewStaticCredentialsProvider(creds.accessKey, creds.secretKey, ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(creds.endpoint)
		o.UsePathStyle = true
	})

	f, err := os.Open(localPath)
	if err != nil {
		return "", &Error{Kind: KindUploadFailed, Detail: fmt.Sprintf("S3 upload failed: %v", err)}
	}
	defer f.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.opts.Bucket),
		Key:         aws.String(objectKey),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", &Error{Kind: KindUploadFailed, Detail: fmt.Sprintf("S3 upload failed: %v", err)}
	}

	url := PublicURL(creds.endpoint, p.opts.Bucket, objectKey)
	p.logger.Info("upload complete", slog.String("url", url))
	return url, nil
}

// PublicURL composes the deterministic public address for an object.
func PublicURL(endpoint, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(endpoint, "/"), bucket, key)
}
