package sources

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 60 * time.Second
)

// WebsocketFeed receives pushed totals. Each text message is parsed like an
// HTTP body. The connection is re-established with exponential backoff.
type WebsocketFeed struct {
	URL    string
	Dialer *websocket.Dialer

	// MinBackoff and MaxBackoff default to one second and one minute.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Run forwards totals to out until ctx is done.
func (f *WebsocketFeed) Run(ctx context.Context, out chan<- float64) error {
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	lo, hi := f.MinBackoff, f.MaxBackoff
	if lo <= 0 {
		lo = minBackoff
	}
	if hi < lo {
		hi = max(maxBackoff, lo)
	}

	backoff := lo
	for {
		log.Info().Str("url", f.URL).Msg("Connecting to amount feed")
		c, _, err := dialer.DialContext(ctx, f.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Dur("retry", backoff).Msg("Dial error")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = min(backoff*2, hi)
			continue
		}
		backoff = lo

		err = f.read(ctx, c, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("Amount feed read error, reconnecting")
	}
}

func (f *WebsocketFeed) read(ctx context.Context, c *websocket.Conn, out chan<- float64) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()
	defer c.Close()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			return err
		}
		total, err := ParseAmount(message)
		if err != nil {
			log.Debug().Err(err).Msg("Ignoring feed message")
			continue
		}
		select {
		case out <- total:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
