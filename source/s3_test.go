package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/ldt"
)

// fakeS3 answers GetObject from a fixed error or from content.
type fakeS3 struct {
	mu  sync.Mutex
	in  []*s3.GetObjectInput
	err error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	f.in = append(f.in, in)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content[:4]))}, nil
}

func TestS3ReadRange(t *testing.T) {
	fake := &fakeS3{}
	src := NewS3(fake, "statements")
	defer src.Close()

	assert.Equal(t, "0123", string(readAll(t, src, "2023/march.ldt", ldt.ByteRange{Start: 100, Length: 50})))
	require.Len(t, fake.in, 1)
	assert.Equal(t, "statements", aws.ToString(fake.in[0].Bucket))
	assert.Equal(t, "2023/march.ldt", aws.ToString(fake.in[0].Key))
	assert.Equal(t, "bytes=100-149", aws.ToString(fake.in[0].Range))
}

func TestS3Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    error
		isEmpty bool
	}{
		{"no such key", &types.NoSuchKey{}, ldt.ErrNotFound, false},
		{"not found", &smithy.GenericAPIError{Code: "NotFound"}, ldt.ErrNotFound, false},
		{"invalid range", &smithy.GenericAPIError{Code: "InvalidRange"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewS3(&fakeS3{err: fmt.Errorf("operation error S3: GetObject: %w", tt.err)}, "statements")
			rc, err := src.ReadRange(context.Background(), "k", ldt.ByteRange{Start: 0, Length: 1})
			if tt.isEmpty {
				require.NoError(t, err)
				data, err := io.ReadAll(rc)
				require.NoError(t, err)
				assert.Empty(t, data)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	boom := errors.New("connection reset")
	_, err := NewS3(&fakeS3{err: boom}, "statements").ReadRange(context.Background(), "k", ldt.ByteRange{Start: 0, Length: 1})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ldt.ErrNotFound)
}

// TestS3Client runs a real client against a path-style test endpoint and
// checks that only the requested range travels.
func TestS3Client(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	var mu sync.Mutex
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath, gotRange = r.URL.Path, r.Header.Get("Range")
		mu.Unlock()

		if r.URL.Path != "/statements/march.ldt" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		var start, end int
		if _, err := fmt.Sscanf(gotRange, "bytes=%d-%d", &start, &end); err != nil || start >= len(content) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>InvalidRange</Code><Message>The requested range is not satisfiable</Message></Error>`)
			return
		}
		end = min(end, len(content)-1)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(content)))
		w.Header().Set("Content-Length", fmt.Sprint(end-start+1))
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, content[start:end+1])
	}))
	defer srv.Close()

	client, err := NewS3Client(context.Background(),
		WithRegion("us-east-1"),
		WithEndpoint(srv.URL),
		WithPathStyle(),
		WithStaticCredentials("test", "test"),
	)
	require.NoError(t, err)
	src := NewS3(client, "statements")

	assert.Equal(t, "abcde", string(readAll(t, src, "march.ldt", ldt.ByteRange{Start: 10, Length: 5})))
	mu.Lock()
	assert.Equal(t, "/statements/march.ldt", gotPath)
	assert.Equal(t, "bytes=10-14", gotRange)
	mu.Unlock()

	assert.Empty(t, readAll(t, src, "march.ldt", ldt.ByteRange{Start: 500, Length: 5}))

	_, err = src.ReadRange(context.Background(), "april.ldt", ldt.ByteRange{Start: 0, Length: 5})
	assert.ErrorIs(t, err, ldt.ErrNotFound)
}
