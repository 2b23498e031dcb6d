package sources

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sudorandom/donation-lights/pkg/geo"
	"github.com/sudorandom/donation-lights/pkg/utils"
)

// DefaultMapTTL is how long a downloaded map stays in the cache.
const DefaultMapTTL = 7 * 24 * time.Hour

// LoadWorldMap reads a GeoJSON map from a local file or, for http(s)
// locations, through the download cache. A cached copy that no longer parses
// is evicted and downloaded again.
func LoadWorldMap(ctx context.Context, cache *utils.DiskCache, location string, ttl time.Duration) (*geo.Map, error) {
	if !isURL(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("loading world map %s: %w", location, err)
		}
		m, err := geo.LoadMap(data)
		if err != nil {
			return nil, fmt.Errorf("parsing world map %s: %w", location, err)
		}
		return m, nil
	}

	client := &http.Client{Timeout: time.Minute}
	data, err := utils.GetCached(ctx, cache, client, location, ttl)
	if err != nil {
		return nil, fmt.Errorf("loading world map %s: %w", location, err)
	}
	m, err := geo.LoadMap(data)
	if err == nil {
		return m, nil
	}
	if cache == nil {
		return nil, fmt.Errorf("parsing world map %s: %w", location, err)
	}

	log.Warn().Err(err).Str("url", location).Msg("Cached world map is unreadable, downloading again")
	if derr := cache.Delete(location); derr != nil {
		return nil, fmt.Errorf("evicting world map %s: %w", location, derr)
	}
	data, err = utils.GetCached(ctx, cache, client, location, ttl)
	if err != nil {
		return nil, fmt.Errorf("loading world map %s: %w", location, err)
	}
	m, err = geo.LoadMap(data)
	if err != nil {
		return nil, fmt.Errorf("parsing world map %s: %w", location, err)
	}
	return m, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
