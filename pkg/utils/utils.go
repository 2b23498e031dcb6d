// Package utils holds download helpers and the on-disk asset cache.
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("file not found on server")

type progressWriter struct {
	io.Writer
	total uint64
	last  uint64
	label string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 { // Log every 5MB
		log.Info().Str("file", pw.label).Uint64("mb", pw.total/1024/1024).Msg("Downloading")
		pw.last = pw.total
	}
	return n, err
}

// Download fetches url into memory.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing response body")
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var buf bytes.Buffer
	pw := &progressWriter{Writer: &buf, label: path.Base(url)}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

// GetCached returns the body of url, downloading it only when the cache has
// no live copy. A nil cache always downloads.
func GetCached(ctx context.Context, cache *DiskCache, client *http.Client, url string, ttl time.Duration) ([]byte, error) {
	if cache != nil {
		data, ok, err := cache.Get(url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Cache read failed")
		} else if ok {
			log.Debug().Str("url", url).Msg("Using cached copy")
			return data, nil
		}
	}

	log.Info().Str("url", url).Msg("Downloading")
	data, err := Download(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Set(url, data, ttl); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Cache write failed")
		}
	}
	return data, nil
}
