package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

// ErrRemoteNotConfigured is returned by RemoteStore.Put when a required field is empty.
var ErrRemoteNotConfigured = domainerrors.Configuration(
	"Remote storage config missing. Required: STORAGE_REGION, STORAGE_ACCESS_KEY_ID, STORAGE_ACCESS_KEY_SECRET, STORAGE_BUCKET.")

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// RemoteStore writes objects to an S3-compatible bucket (AWS S3, Aliyun OSS, R2).
// The client is built on first Put; incomplete configuration fails each call.
type RemoteStore struct {
	name   string
	cfg    Config
	logger *slog.Logger

	once      sync.Once
	client    objectPutter
	clientErr error
}

// NewRemoteStore creates a remote store reporting itself as name.
func NewRemoteStore(name string, cfg Config, logger *slog.Logger) *RemoteStore {
	if name == ProviderOSS && cfg.Endpoint == "" && cfg.Region != "" {
		cfg.Endpoint = "https://" + cfg.Region + ".aliyuncs.com"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RemoteStore{name: name, cfg: cfg, logger: logger}
}

// Name returns the provider name.
func (s *RemoteStore) Name() string { return s.name }

func (s *RemoteStore) configured() bool {
	c := s.cfg
	return c.Region != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Put uploads data and returns the object's public URL.
func (s *RemoteStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := Validate(contentType, len(data)); err != nil {
		return "", err
	}
	if !s.configured() {
		return "", ErrRemoteNotConfigured
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error("remote upload failed", "provider", s.name, "key", key, "error", err)
		return "", domainerrors.Backend(fmt.Errorf("put object: %w", err), "Upload failed.")
	}

	s.logger.Debug("stored upload", "provider", s.name, "key", key, "size", len(data))
	return s.objectURL(key), nil
}

func (s *RemoteStore) getClient(ctx context.Context) (objectPutter, error) {
	s.once.Do(func() {
		if s.client != nil {
			return
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(s.cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.cfg.AccessKeyID, s.cfg.AccessKeySecret, "")),
		)
		if err != nil {
			s.clientErr = domainerrors.Wrap(err, domainerrors.CodeConfiguration, "Failed to configure remote storage.")
			return
		}
		s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if s.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			}
			o.UsePathStyle = s.cfg.UsePathStyle
		})
	})
	return s.client, s.clientErr
}

// objectURL prefers the public base URL, then the endpoint's URL (virtual-hosted,
// or host/bucket/key with path-style addressing), then the Aliyun default host.
func (s *RemoteStore) objectURL(key string) string {
	if base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicBaseURL), "/"); base != "" {
		return base + "/" + key
	}
	if native := s.nativeURL(key); native != "" {
		return native
	}
	return fmt.Sprintf("https://%s.%s.aliyuncs.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func (s *RemoteStore) nativeURL(key string) string {
	if s.cfg.Endpoint == "" {
		return ""
	}
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	if s.cfg.UsePathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", scheme, u.Host, s.cfg.Bucket, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.cfg.Bucket, u.Host, key)
}
