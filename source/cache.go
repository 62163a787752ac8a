package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/jpl-au/ldt"
)

// DefaultCacheTTL is how long a cached range stays on disk unused.
const DefaultCacheTTL = time.Hour

// Cache keeps ranges fetched from a slower source on local disk, zstd
// compressed, one file per (key, range). Entries expire after a TTL without
// use and their files are removed. Cache is safe for concurrent use.
type Cache struct {
	next    Source
	root    *os.Root
	entries *ttlcache.Cache[string, int64] // file name -> range length
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	log     *slog.Logger
}

// NewCache wraps next with a disk cache in dir. A nil logger means
// slog.Default().
func NewCache(next Source, dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		root.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		root.Close()
		return nil, err
	}

	c := &Cache{
		next: next,
		root: root,
		entries: ttlcache.New(
			ttlcache.WithTTL[string, int64](ttl),
		),
		enc: enc,
		dec: dec,
		log: logger,
	}
	c.entries.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, int64]) {
		if err := c.root.Remove(item.Key()); err != nil && !os.IsNotExist(err) {
			c.log.Warn("failed to remove cached range", "file", item.Key(), "error", err)
		}
	})
	go c.entries.Start()
	return c, nil
}

// cacheName returns the file name for a range of key.
func cacheName(key string, r ldt.ByteRange) string {
	h := xxh3.HashString128(fmt.Sprintf("%s\x00%d\x00%d", key, r.Start, r.Length))
	b := h.Bytes()
	return fmt.Sprintf("%x.zst", b[:])
}

// ReadRange implements ldt.RangeReader.
func (c *Cache) ReadRange(ctx context.Context, key string, r ldt.ByteRange) (io.ReadCloser, error) {
	name := cacheName(key, r)
	if c.entries.Get(name) != nil {
		if data, err := c.load(name); err == nil {
			cacheHits.Add(ctx, 1)
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		c.entries.Delete(name)
	}

	rc, err := c.next.ReadRange(ctx, key, r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, r.Length))
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", key, err)
	}
	if err := c.store(name, data); err != nil {
		c.log.Warn("failed to cache range", "key", key, "start", r.Start, "length", r.Length, "error", err)
	} else {
		c.entries.Set(name, int64(len(data)), ttlcache.DefaultTTL)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *Cache) load(name string) ([]byte, error) {
	raw, err := c.root.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return c.dec.DecodeAll(raw, nil)
}

func (c *Cache) store(name string, data []byte) error {
	return c.root.WriteFile(name, c.enc.EncodeAll(data, nil), 0o644)
}

// Len returns the number of cached ranges.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Close stops expiry, removes every cached file and closes the wrapped
// source.
func (c *Cache) Close() error {
	c.entries.Stop()
	c.entries.DeleteAll()
	c.dec.Close()
	c.enc.Close()
	err := c.next.Close()
	if rerr := c.root.Close(); err == nil {
		err = rerr
	}
	return err
}
