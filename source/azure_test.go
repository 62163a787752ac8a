package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/ldt"
)

func TestAzureReadRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/statements/march.ldt":
			var start, end int
			if _, err := fmt.Sscanf(r.Header.Get("x-ms-range"), "bytes=%d-%d", &start, &end); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(content)))
			w.Header().Set("Content-Length", fmt.Sprint(end-start+1))
			w.WriteHeader(http.StatusPartialContent)
			fmt.Fprint(w, content[start:end+1])
		default:
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := azblob.NewClientWithNoCredential(srv.URL+"/", nil)
	require.NoError(t, err)
	src := NewAzure(client, "statements")
	defer src.Close()

	assert.Equal(t, "cdef", string(readAll(t, src, "march.ldt", ldt.ByteRange{Start: 12, Length: 4})))

	_, err = src.ReadRange(context.Background(), "april.ldt", ldt.ByteRange{Start: 0, Length: 4})
	assert.ErrorIs(t, err, ldt.ErrNotFound)
}
