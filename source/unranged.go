package source

import (
	"context"
	"fmt"
	"io"

	"github.com/jpl-au/ldt"
)

// Opener opens a whole object as a stream.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, key string) (io.ReadCloser, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return f(ctx, key)
}

// Unranged serves ranges from a store that can only stream whole objects.
// It discards the bytes before the range and stops reading at its end;
// nothing outside the range is buffered.
type Unranged struct {
	opener Opener
}

// NewUnranged wraps o.
func NewUnranged(o Opener) *Unranged {
	return &Unranged{opener: o}
}

// ReadRange implements ldt.RangeReader.
func (s *Unranged) ReadRange(ctx context.Context, key string, r ldt.ByteRange) (io.ReadCloser, error) {
	ctx, span := startFetch(ctx, "unranged", key, r)
	defer span.End()

	rc, err := s.opener.Open(ctx, key)
	if err != nil {
		recordFetch(ctx, "unranged", r, "open_failed")
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, rc, r.Start); err != nil {
		rc.Close()
		if err == io.EOF {
			recordFetch(ctx, "unranged", r, "")
			return emptyBody(), nil
		}
		recordFetch(ctx, "unranged", r, "skip_failed")
		return nil, fmt.Errorf("skip to %d: %w", r.Start, err)
	}
	recordFetch(ctx, "unranged", r, "")
	return readCloser{Reader: io.LimitReader(rc, r.Length), Closer: rc}, nil
}

// Close is a no-op; the opener owns its resources.
func (s *Unranged) Close() error {
	return nil
}
