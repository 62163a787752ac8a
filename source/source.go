// Package source provides the byte sources records are fetched from.
//
// Every source implements ldt.RangeReader: given an object key and a byte
// range it returns a stream over exactly that range. Object stores serve the
// range natively (S3 Range requests, Azure ranged downloads). A local file is
// read through a section reader. Stores that cannot range at all are wrapped
// in Unranged, which skips to the offset instead of materialising the whole
// object. A Cache in front of any source keeps fetched ranges on local disk.
//
// New picks the implementation from a provider name, so callers never
// branch on storage types themselves.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jpl-au/ldt"
)

// Provider names.
const (
	ProviderFile  = "file"
	ProviderS3    = "s3"
	ProviderGCP   = "gcp" // S3-compatible access to Cloud Storage
	ProviderAzure = "azure"
)

// Config selects and configures a source.
type Config struct {
	Provider string `mapstructure:"provider"`

	// file
	Dir string `mapstructure:"dir"`

	// s3 and gcp
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// azure
	AccountURL       string `mapstructure:"account_url"`
	Container        string `mapstructure:"container"`
	ConnectionString string `mapstructure:"connection_string"`

	// local range cache, disabled when CacheDir is empty
	CacheDir string        `mapstructure:"cache_dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	Logger *slog.Logger `mapstructure:"-"` // default slog.Default()
}

// Source is an ldt.RangeReader that may hold resources.
type Source interface {
	ldt.RangeReader
	io.Closer
}

// New returns the source described by cfg.
func New(ctx context.Context, cfg Config) (Source, error) {
	var src Source
	switch cfg.Provider {
	case "", ProviderFile:
		f, err := NewFile(cfg.Dir)
		if err != nil {
			return nil, err
		}
		src = f
	case ProviderS3, ProviderGCP:
		opts := []S3Option{WithRegion(cfg.Region)}
		if cfg.Endpoint != "" {
			opts = append(opts, WithEndpoint(cfg.Endpoint))
		}
		if cfg.PathStyle {
			opts = append(opts, WithPathStyle())
		}
		if cfg.AccessKey != "" {
			opts = append(opts, WithStaticCredentials(cfg.AccessKey, cfg.SecretKey))
		}
		if cfg.Provider == ProviderGCP {
			opts = append(opts, WithGCPProvider())
		}
		client, err := NewS3Client(ctx, opts...)
		if err != nil {
			return nil, err
		}
		src = NewS3(client, cfg.Bucket)
	case ProviderAzure:
		client, err := NewAzureClient(cfg.AccountURL, cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		src = NewAzure(client, cfg.Container)
	default:
		return nil, fmt.Errorf("%w: unknown source provider %q", ldt.ErrConfiguration, cfg.Provider)
	}

	if cfg.CacheDir == "" {
		return src, nil
	}
	return NewCache(src, cfg.CacheDir, cfg.CacheTTL, cfg.Logger)
}

var (
	tracer = otel.Tracer("github.com/jpl-au/ldt/source")

	fetchCount  metric.Int64Counter
	fetchBytes  metric.Int64Counter
	fetchErrors metric.Int64Counter
	cacheHits   metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/jpl-au/ldt/source")

	var err error
	fetchCount, err = meter.Int64Counter("ldt.source.fetch.count",
		metric.WithDescription("Number of ranged fetches"))
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.count counter: %w", err))
	}
	fetchBytes, err = meter.Int64Counter("ldt.source.fetch.bytes",
		metric.WithDescription("Bytes requested by ranged fetches"))
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.bytes counter: %w", err))
	}
	fetchErrors, err = meter.Int64Counter("ldt.source.fetch.errors",
		metric.WithDescription("Number of failed ranged fetches"))
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.errors counter: %w", err))
	}
	cacheHits, err = meter.Int64Counter("ldt.source.cache.hits",
		metric.WithDescription("Ranged fetches served from the local cache"))
	if err != nil {
		panic(fmt.Errorf("failed to create cache.hits counter: %w", err))
	}
}

// startFetch opens a span for one ranged fetch.
func startFetch(ctx context.Context, provider, key string, r ldt.ByteRange) (context.Context, trace.Span) {
	return tracer.Start(ctx, "source."+provider+".ReadRange",
		trace.WithAttributes(
			attribute.String("key", key),
			attribute.Int64("start", r.Start),
			attribute.Int64("length", r.Length),
		),
	)
}

// recordFetch updates the fetch counters. reason is empty on success.
func recordFetch(ctx context.Context, provider string, r ldt.ByteRange, reason string) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if reason != "" {
		fetchErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("reason", reason),
		))
		return
	}
	fetchCount.Add(ctx, 1, attrs)
	fetchBytes.Add(ctx, r.Length, attrs)
}

// emptyBody is returned for ranges that start past the end of an object.
func emptyBody() io.ReadCloser {
	return io.NopCloser(eofReader{})
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// readCloser pairs a reader with the closer of the resource behind it.
type readCloser struct {
	io.Reader
	io.Closer
}
