package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"github.com/gantrybuild/gantry"
)

// fakeObjectStore is just enough of the S3 API to serve object listing
// and deletion: list-type=2 GETs return the canned keys, DELETEs are
// recorded (or denied when denyDelete is set).
type fakeObjectStore struct {
	mu         sync.Mutex
	keys       []string
	deleted    []string
	denyDelete bool
}

const accessDeniedXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied.</Message><Resource>/outputs</Resource><RequestId>req</RequestId><HostId>host</HostId></Error>`

func (s *fakeObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodDelete:
		if s.denyDelete {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, accessDeniedXML)
			return
		}
		s.mu.Lock()
		s.deleted = append(s.deleted, strings.TrimPrefix(r.URL.Path, "/outputs/"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var contents strings.Builder
		n := 0
		for _, key := range s.keys {
			if strings.HasPrefix(key, prefix) {
				fmt.Fprintf(&contents, `<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>&quot;etag&quot;</ETag><Size>1</Size><StorageClass>STANDARD</StorageClass></Contents>`, key)
				n++
			}
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>outputs</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>%s</ListBucketResult>`, prefix, n, contents.String())

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (s *fakeObjectStore) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func newTestFS(t *testing.T, store *fakeObjectStore) *FS {
	t.Helper()

	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("test", "test-secret", ""),
		Secure: false,
		Region: "us-east-1", // skip the bucket-location lookup the fake doesn't serve
	})
	require.NoError(t, err)

	return NewFS(client, "outputs", "")
}

func TestKeyMapping(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		prefix, path, want string
	}{
		{"", "a/b.bin", "a/b.bin"},
		{"pipelines", "a/b.bin", "pipelines/a/b.bin"},
		{"pipelines/", "a/b.bin", "pipelines/a/b.bin"},
		{"/pipelines", "a/b.bin", "pipelines/a/b.bin"},
		{"pipelines", "/a/b.bin", "pipelines/a/b.bin"},
	} {
		s := NewFS(nil, "bucket", tc.prefix)
		require.Equal(t, tc.want, s.key(tc.path), "prefix %q path %q", tc.prefix, tc.path)
	}
}

func TestErrorTranslation(t *testing.T) {
	t.Parallel()

	require.NoError(t, translate(nil))

	err := translate(minio.ErrorResponse{Code: "NoSuchKey"})
	require.ErrorIs(t, err, gantry.ErrNotExist)

	err = translate(minio.ErrorResponse{Code: "NoSuchBucket"})
	require.ErrorIs(t, err, gantry.ErrNotExist)

	err = translate(minio.ErrorResponse{Code: "SlowDown"})
	require.Error(t, err)
	require.NotErrorIs(t, err, gantry.ErrNotExist)

	require.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestRemoveRecursiveDeletesPrefix(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{keys: []string{"run/a", "run/sub/b"}}
	s := newTestFS(t, store)

	require.NoError(t, s.Remove(context.Background(), "run", true))

	deleted := store.deletedKeys()
	require.ElementsMatch(t, []string{"run", "run/a", "run/sub/b"}, deleted)
}

// A failing delete must surface its own error, not the cancellation it
// triggers in the rest of the group.
func TestRemoveRecursiveSurfacesDeleteError(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{keys: []string{"run/a"}, denyDelete: true}
	s := newTestFS(t, store)

	err := s.Remove(context.Background(), "run", true)
	require.Error(t, err)

	var fse *gantry.FSError
	require.ErrorAs(t, err, &fse)
	require.Equal(t, "remove", fse.Op)
	require.Contains(t, strings.ToLower(err.Error()), "access denied")
	require.NotErrorIs(t, err, context.Canceled)
}
