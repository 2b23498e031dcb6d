package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache(t *testing.T) {
	c, err := OpenMemoryCache()
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("a", []byte("hello"), 0))
	v, ok, err := c.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(v))

	require.NoError(t, c.Delete("a"))
	_, ok, err = c.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskCachePersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := OpenDiskCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte("v"), time.Hour))
	require.NoError(t, c.Close())

	c, err = OpenDiskCache(dir)
	require.NoError(t, err)
	defer c.Close()
	v, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestGetCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/map.json":
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := OpenMemoryCache()
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		data, err := GetCached(ctx, c, srv.Client(), srv.URL+"/map.json", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, string(data), "FeatureCollection")
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err = GetCached(ctx, c, srv.Client(), srv.URL+"/nope", time.Hour)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = GetCached(ctx, nil, srv.Client(), srv.URL+"/broken", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")

	_, err = GetCached(ctx, nil, srv.Client(), srv.URL+"/map.json", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}
