package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	DefaultS3Prefix  = "vbg-temoignages"
	DefaultS3Timeout = 45 * time.Second
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	CustomDomain    string
	PathStyle       bool
	Prefix          string
	Timeout         time.Duration
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Backend stores blobs as objects under a key prefix and hands back the
// public URL at upload time.
type S3Backend struct {
	api          objectAPI
	endpoint     *url.URL
	bucket       string
	prefix       string
	customDomain string
	pathStyle    bool
	timeout      time.Duration
}

func NewS3Backend(opts S3Options) (*S3Backend, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	custom := endpoint != ""
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
	}

	// Non-AWS endpoints rarely support virtual-hosted buckets.
	pathStyle := opts.PathStyle || custom

	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}, func(o *s3.Options) {
		if custom {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return newS3Backend(client, parsed, bucket, opts.Prefix, opts.CustomDomain, pathStyle, opts.Timeout), nil
}

func newS3Backend(api objectAPI, endpoint *url.URL, bucket, prefix, customDomain string, pathStyle bool, timeout time.Duration) *S3Backend {
	prefix = strings.Trim(normalizeObjectKey(prefix), "/")
	if prefix == "" {
		prefix = DefaultS3Prefix
	}
	if timeout <= 0 {
		timeout = DefaultS3Timeout
	}
	return &S3Backend{
		api:          api,
		endpoint:     endpoint,
		bucket:       bucket,
		prefix:       prefix,
		customDomain: strings.TrimRight(strings.TrimSpace(customDomain), "/"),
		pathStyle:    pathStyle,
		timeout:      timeout,
	}
}

func (b *S3Backend) Kind() Kind { return KindRemote }

func (b *S3Backend) Store(ctx context.Context, body io.Reader, size int64, mimeType, originalName string) (Descriptor, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	key := b.prefix + "/" + randomName(originalName)

	var rs io.ReadSeeker
	if seeker, ok := body.(io.ReadSeeker); ok {
		rs = seeker
	} else {
		buf, err := io.ReadAll(body)
		if err != nil {
			return Descriptor{}, fmt.Errorf("buffer upload: %w", err)
		}
		rs = bytes.NewReader(buf)
		size = int64(len(buf))
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        rs,
		ContentType: aws.String(mimeType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.api.PutObject(ctx, input); err != nil {
		return Descriptor{}, fmt.Errorf("s3 upload failed: %w", err)
	}
	return Remote(b.publicURL(key), key, resourceTypeOf(mimeType)), nil
}

// Delete removes the object. Descriptors whose URL points at another host,
// or that carry no object id, fail with ErrForeignDescriptor and nothing is
// sent to the bucket.
func (b *S3Backend) Delete(ctx context.Context, d Descriptor) error {
	if d.Kind != KindRemote {
		return fmt.Errorf("%w: %q", ErrUnsupportedDescriptor, d.Kind)
	}
	key := normalizeObjectKey(d.PublicID)
	if key == "" || !b.owns(d.URL, key) {
		return fmt.Errorf("%w: %s", ErrForeignDescriptor, d.URL)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if _, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func (b *S3Backend) Resolve(d Descriptor) string {
	if d.URL != "" {
		return d.URL
	}
	if key := normalizeObjectKey(d.PublicID); key != "" {
		return b.publicURL(key)
	}
	return ""
}

// owns reports whether rawURL is served from the same host this backend
// would publish key under. An empty URL is taken as ours.
func (b *S3Backend) owns(rawURL, key string) bool {
	if rawURL == "" {
		return true
	}
	got, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	want, err := url.Parse(b.publicURL(key))
	if err != nil {
		return false
	}
	return strings.EqualFold(got.Host, want.Host)
}

func (b *S3Backend) publicURL(key string) string {
	if b.customDomain != "" {
		return b.customDomain + "/" + encodeObjectKey(key)
	}
	encoded := encodeObjectKey(key)
	basePath := strings.TrimSuffix(b.endpoint.Path, "/")
	if b.pathStyle {
		return b.endpoint.Scheme + "://" + b.endpoint.Host + joinURLPath(basePath, b.bucket, encoded)
	}
	host := b.endpoint.Host
	if !strings.HasPrefix(strings.ToLower(host), strings.ToLower(b.bucket)+".") {
		host = b.bucket + "." + host
	}
	return b.endpoint.Scheme + "://" + host + joinURLPath(basePath, encoded)
}
