// Package hotelapi is the desk's client for the persistence API. It maps
// HTTP statuses and problem bodies back onto domain errors.
package hotelapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/domain"
)

type Config struct {
	BaseURL string
	RPS     int
	// ReadRetries is how many extra attempts a GET gets on 429/5xx or a
	// transport error. Mutations are never retried.
	ReadRetries int
	Timeout     time.Duration
}

type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("API base URL: %w", err)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		hc:      &http.Client{Timeout: cfg.Timeout},
		rl:      rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		retries: max(0, cfg.ReadRetries),
	}, nil
}

// problem mirrors the API's error body.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Field  string `json:"field"`
	Data   *struct {
		RequiresAction bool   `json:"requiresAction"`
		BookingID      string `json:"bookingId"`
	} `json:"data"`
}

type call struct {
	method   string
	path     string
	endpoint string // metrics label
	query    url.Values
	body     any
	out      any
}

// do sends one request with client-side rate limiting. GETs are retried on
// 429 and transient 5xx when the client was configured to, honoring
// Retry-After when provided.
func (c *Client) do(ctx context.Context, cl call) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return err
		}
		payload = b
	}
	u := c.base + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		// build a fresh request each attempt
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "frontdesk/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("hotelapi", cl.endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("hotelapi", cl.endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			defer resp.Body.Close()
			if cl.out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
				return fmt.Errorf("decode %s: %w", cl.endpoint, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
			if i < attempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			err := decodeError(resp)
			resp.Body.Close()
			return err
		}
	}
	return lastErr
}

// decodeError turns a 4xx response into the matching domain error.
func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var p problem
	_ = json.Unmarshal(b, &p)

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		reason := p.Detail
		if reason == "" {
			reason = "rejected by server"
		}
		return domain.NewValidationError(p.Field, reason)
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		if p.Data != nil && p.Data.RequiresAction {
			return &domain.RoomHasActiveBookingError{BookingID: p.Data.BookingID}
		}
		return domain.ErrRoomUnavailable
	}
	return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// withRoom fills in the room id of a conflict decoded from a response.
func withRoom(err error, roomID string) error {
	if ce, ok := domain.IsRoomConflict(err); ok && ce.RoomID == "" {
		ce.RoomID = roomID
	}
	return err
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
