package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		body    string
		want    float64
		wantErr bool
	}{
		{`{"amount": 49000}`, 49000, false},
		{`{"amount": "49150.5"}`, 49150.5, false},
		{`{"amount": 12, "goal": 100000}`, 12, false},
		{"  1234\n", 1234, false},
		{`"77"`, 77, false},
		{`{"total": 5}`, 0, true},
		{`{"amount": null}`, 0, true},
		{`<html>`, 0, true},
		{``, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAmount([]byte(tt.body))
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrBadPayload, tt.body)
			continue
		}
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"amount": 51000}`))
		case "/text":
			_, _ = w.Write([]byte(`52000`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	got, err := (&HTTPSource{URL: srv.URL + "/ok", Client: srv.Client()}).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 51000.0, got)

	got, err = (&HTTPSource{URL: srv.URL + "/text"}).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 52000.0, got)

	_, err = NewHTTPSource(srv.URL + "/down").Fetch(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestMockSource(t *testing.T) {
	m := NewMockSource(50, 1)
	ctx := context.Background()

	first, err := m.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 49000.0, first)

	prev := first
	for i := 0; i < 20; i++ {
		v, err := m.Fetch(ctx)
		require.NoError(t, err)
		delta := v - prev
		assert.Contains(t, []float64{50, 100, 150}, delta)
		prev = v
	}

	m.Seed(60000)
	v, _ := m.Fetch(ctx)
	assert.Greater(t, v, 60000.0)
	assert.LessOrEqual(t, v, 60150.0)
}

type stubSource struct {
	values []float64
	err    error
	calls  int
}

func (s *stubSource) Fetch(context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	v := s.values[min(s.calls-1, len(s.values)-1)]
	return v, nil
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan float64)
	src := &stubSource{values: []float64{100, 200, 300}}

	done := make(chan error, 1)
	go func() { done <- Poll(ctx, src, 5*time.Millisecond, nil, out) }()

	assert.Equal(t, 100.0, <-out)
	assert.Equal(t, 200.0, <-out)
	assert.Equal(t, 300.0, <-out)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPollFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan float64)
	src := &stubSource{err: errors.New("boom")}
	fallback := NewMockSource(50, 3)

	go func() { _ = Poll(ctx, src, 5*time.Millisecond, fallback, out) }()

	assert.Equal(t, 49000.0, <-out)
	assert.Greater(t, <-out, 49000.0)
}

func TestFetchOnceSeedsFallback(t *testing.T) {
	fallback := NewMockSource(50, 3)
	total, ok := fetchOnce(context.Background(), &stubSource{values: []float64{70000}}, fallback)
	require.True(t, ok)
	assert.Equal(t, 70000.0, total)

	total, ok = fetchOnce(context.Background(), &stubSource{err: errors.New("down")}, fallback)
	require.True(t, ok)
	assert.Greater(t, total, 70000.0)

	_, ok = fetchOnce(context.Background(), &stubSource{err: errors.New("down")}, nil)
	assert.False(t, ok)
}
