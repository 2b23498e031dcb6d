// Package sources feeds the engine from the outside world: donation totals
// over HTTP, websocket or a local mock, and the world map download.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Source reports the current donation total.
type Source interface {
	Fetch(ctx context.Context) (float64, error)
}

// Seeder is implemented by sources that continue from a known total.
type Seeder interface {
	Seed(total float64)
}

var ErrBadPayload = errors.New("unrecognised amount payload")

// HTTPSource polls a JSON endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPSource) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Cache-Control", "no-store")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing response body")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bad status: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	return ParseAmount(body)
}

// ParseAmount accepts {"amount": n}, {"amount": "n"} or a bare number.
func ParseAmount(body []byte) (float64, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 0, ErrBadPayload
	}
	if body[0] != '{' {
		v, err := strconv.ParseFloat(strings.Trim(string(body), `"`), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return v, nil
	}

	var payload struct {
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(payload.Amount) == 0 {
		return 0, fmt.Errorf("%w: missing amount", ErrBadPayload)
	}
	return ParseAmount(payload.Amount)
}

// MockSource starts at Base and grows by one to three points each fetch.
type MockSource struct {
	Base          float64
	PricePerPoint float64

	mu      sync.Mutex
	current float64
	rng     *rand.Rand
}

func NewMockSource(price float64, seed int64) *MockSource {
	return &MockSource{
		Base:          49000,
		PricePerPoint: price,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

func (s *MockSource) Fetch(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == 0 {
		s.current = s.Base
		return s.current, nil
	}
	s.current += float64(1+s.rng.Intn(3)) * s.PricePerPoint
	return s.current, nil
}

func (s *MockSource) Seed(total float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = total
}

// Poll fetches immediately and then every interval, sending each total to
// out. When src fails, fallback is used if set. It returns when ctx is done.
func Poll(ctx context.Context, src Source, interval time.Duration, fallback Source, out chan<- float64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if total, ok := fetchOnce(ctx, src, fallback); ok {
			select {
			case out <- total:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchOnce(ctx context.Context, src, fallback Source) (float64, bool) {
	total, err := src.Fetch(ctx)
	if err == nil {
		if s, ok := fallback.(Seeder); ok {
			s.Seed(total)
		}
		log.Debug().Float64("amount", total).Msg("Fetched amount")
		return total, true
	}
	if ctx.Err() != nil {
		return 0, false
	}
	log.Warn().Err(err).Msg("Amount fetch failed")
	if fallback == nil {
		return 0, false
	}
	total, err = fallback.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Fallback fetch failed")
		return 0, false
	}
	log.Info().Float64("amount", total).Msg("Using fallback amount")
	return total, true
}
