// Package location resolves free-text place names with the TomTom geocoder
// and looks up their UTC offset with an offline timezone polygon finder.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ringsaturn/tzf"
	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/retry"
)

// Status is the outcome of a place search.
type Status int

const (
	StatusNotFound Status = iota
	StatusAmbiguous
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusAmbiguous:
		return "ambiguous"
	case StatusFound:
		return "found"
	default:
		return "not_found"
	}
}

// Result of Search; Location is set only for StatusFound.
type Result struct {
	Status   Status
	Location domain.Location
}

// Options configures a Resolver.
type Options struct {
	GeocodeURL string // e.g. https://api.tomtom.com
	TomTomKey  string
	Timeout    time.Duration // per HTTP request
	Retry      retry.Policy
	Zones      ZoneFinder // nil loads the bundled tzf polygons
}

// Resolver implements place search and timezone lookup.
type Resolver struct {
	httpClient *http.Client
	opts       Options
	zones      ZoneFinder
	log        *zap.Logger
	now        func() time.Time
}

// NewResolver creates a Resolver; transient geocoder errors are retried per opts.Retry.
// Without opts.Zones the tzf polygon data is loaded, which takes a moment.
func NewResolver(opts Options, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	zones := opts.Zones
	if zones == nil {
		f, err := tzf.NewDefaultFinder()
		if err != nil {
			return nil, fmt.Errorf("load timezone polygons: %w", err)
		}
		zones = f
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: timeout},
		opts:       opts,
		zones:      zones,
		log:        log,
		now:        time.Now,
	}, nil
}

// Search geocodes a free-text query, keeping only municipality matches.
// The returned error is non-nil only when every attempt failed.
func (r *Resolver) Search(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Status: StatusNotFound}, nil
	}

	var res Result
	err := retry.Do(ctx, r.opts.Retry, func(ctx context.Context) error {
		var err error
		res, err = r.search(ctx, query)
		if err != nil {
			r.log.Warn("geocode attempt failed", zap.String("query", query), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	return res, nil
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	Type       string            `json:"type"`
	EntityType string            `json:"entityType"`
	Address    map[string]string `json:"address"`
	Position   struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"position"`
}

// addressParts lists the address entities joined into a display name, most specific first.
var addressParts = []string{
	"municipality",
	"countryTertiarySubdivision",
	"countrySecondarySubdivision",
	"countrySubdivision",
	"country",
}

func (r *Resolver) search(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("key", r.opts.TomTomKey)
	params.Set("typeahead", "true")
	u := r.opts.GeocodeURL + "/search/2/geocode/" + url.PathEscape(query) + ".json?" + params.Encode()

	var resp geocodeResponse
	if err := r.getJSON(ctx, u, &resp); err != nil {
		return Result{}, err
	}

	var matches []geocodeResult
	for _, g := range resp.Results {
		if g.Type == "Geography" && g.EntityType == "Municipality" {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return Result{Status: StatusNotFound}, nil
	case 1:
		m := matches[0]
		return Result{
			Status: StatusFound,
			Location: domain.Location{
				Name: displayName(m.Address),
				Lat:  m.Position.Lat,
				Lon:  m.Position.Lon,
			},
		}, nil
	default:
		return Result{Status: StatusAmbiguous}, nil
	}
}

func displayName(addr map[string]string) string {
	var names []string
	seen := make(map[string]bool)
	for _, key := range addressParts {
		name := addr[key]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (r *Resolver) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
