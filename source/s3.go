package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/codes"

	"github.com/jpl-au/ldt"
)

// S3API is the part of the S3 client a source needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads ranges from one bucket with ranged GetObject requests.
type S3 struct {
	client S3API
	bucket string
}

// NewS3 returns a source over bucket.
func NewS3(client S3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// ReadRange implements ldt.RangeReader. A range that starts past the end of
// the object reads as empty.
func (s *S3) ReadRange(ctx context.Context, key string, r ldt.ByteRange) (io.ReadCloser, error) {
	ctx, span := startFetch(ctx, ProviderS3, key, r)
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.Start, r.End())),
	})
	if err != nil {
		switch {
		case s3ErrorIs404(err):
			recordFetch(ctx, ProviderS3, r, "not_found")
			return nil, fmt.Errorf("%w: s3://%s/%s", ldt.ErrNotFound, s.bucket, key)
		case s3ErrorIsRange(err):
			recordFetch(ctx, ProviderS3, r, "")
			return emptyBody(), nil
		}
		recordFetch(ctx, ProviderS3, r, "unknown")
		span.RecordError(err)
		span.SetStatus(codes.Error, "get object failed")
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	recordFetch(ctx, ProviderS3, r, "")
	return out.Body, nil
}

// Close is a no-op; the client is shared.
func (s *S3) Close() error {
	return nil
}

func s3ErrorIs404(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

func s3ErrorIsRange(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange"
}

type s3Config struct {
	region       string
	applyConfigs []func(*aws.Config)
	applyS3s     []func(*s3.Options)
}

// S3Option configures NewS3Client.
type S3Option func(*s3Config)

// WithRegion overrides the AWS region.
func WithRegion(region string) S3Option {
	return func(c *s3Config) {
		c.region = region
	}
}

// WithEndpoint forces a custom S3 endpoint (MinIO, Ceph, a test server).
func WithEndpoint(url string) S3Option {
	return func(c *s3Config) {
		c.applyS3s = append(c.applyS3s, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(url)
		})
	}
}

// WithPathStyle uses path-style addressing instead of virtual hosts.
func WithPathStyle() S3Option {
	return func(c *s3Config) {
		c.applyS3s = append(c.applyS3s, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
}

// WithStaticCredentials uses a fixed key pair instead of the default chain.
func WithStaticCredentials(accessKey, secretKey string) S3Option {
	return func(c *s3Config) {
		c.applyConfigs = append(c.applyConfigs, func(cfg *aws.Config) {
			cfg.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		})
	}
}

// WithInsecureTLS turns off certificate verification.
func WithInsecureTLS() S3Option {
	return func(c *s3Config) {
		c.applyConfigs = append(c.applyConfigs, func(cfg *aws.Config) {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			cfg.HTTPClient = &http.Client{Transport: tr}
		})
	}
}

// WithGCPProvider relaxes checksum handling for Cloud Storage's S3 API,
// which may transcode objects on the way out.
func WithGCPProvider() S3Option {
	return func(c *s3Config) {
		c.applyConfigs = append(c.applyConfigs, func(cfg *aws.Config) {
			cfg.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			cfg.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	}
}

// NewS3Client builds an S3 client from the default AWS configuration chain
// and opts.
func NewS3Client(ctx context.Context, opts ...S3Option) (*s3.Client, error) {
	var sc s3Config
	for _, o := range opts {
		o(&sc)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if sc.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(sc.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	for _, fn := range sc.applyConfigs {
		fn(&cfg)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		for _, fn := range sc.applyS3s {
			fn(o)
		}
	}), nil
}
