// Package timings fetches daily prayer times from the Aladhan API.
//
// Requests are rate limited with a token bucket and successful responses are
// kept in an LRU cache, since the timings for a date and coordinate never change.
package timings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
)

// ErrBadStatus is returned when the provider answers with a non-200 status.
var ErrBadStatus = errors.New("timings provider: bad status")

// Options configures a Client.
type Options struct {
	BaseURL           string        // e.g. http://api.aladhan.com/v1
	Method            int           // calculation method, 3 = Muslim World League
	RequestsPerMinute int           // 0 disables rate limiting
	CacheSize         int           // 0 disables caching
	Timeout           time.Duration // per HTTP request
}

// Client is the Aladhan timings client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	method     int
	limiter    *rate.Limiter
	cache      *lru.Cache[string, domain.Timings]
	log        *zap.Logger
}

// NewClient creates a rate-limited, caching timings client.
func NewClient(opts Options, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		method:     opts.Method,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, domain.Timings](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("timings cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

type apiResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// Fetch returns the six prayer times for date at (lat, lon) as local "HH:MM" strings.
func (c *Client) Fetch(ctx context.Context, date time.Time, lat, lon float64) (domain.Timings, error) {
	dateStr := domain.FormatDate(date)
	key := cacheKey(dateStr, lat, lon)
	if c.cache != nil {
		if t, ok := c.cache.Get(key); ok {
			return clone(t), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("method", strconv.Itoa(c.method))
	u := c.baseURL + "/timings/" + dateStr + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d: %s", ErrBadStatus, resp.StatusCode, truncate(body, 200))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	t := make(domain.Timings, domain.PrayerCount)
	for _, p := range domain.Prayers {
		if v := parsed.Data.Timings[p.String()]; v != "" {
			t[p] = v
		}
	}
	if len(t) == 0 {
		return nil, errors.New("timings provider: empty timings")
	}

	if c.cache != nil {
		c.cache.Add(key, clone(t))
	}
	c.log.Debug("timings fetched", zap.String("date", dateStr), zap.Float64("lat", lat), zap.Float64("lon", lon))
	return t, nil
}

func cacheKey(date string, lat, lon float64) string {
	return fmt.Sprintf("%s|%.5f|%.5f", date, lat, lon)
}

func clone(t domain.Timings) domain.Timings {
	out := make(domain.Timings, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
