package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "barrace/1.0"
	DefaultMaxBytes  = 32 << 20
)

// Fetcher retrieves the raw dataset text from a local path or an HTTP URL.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	cache   *gocache.Cache
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher with the given HTTP timeout and size limit.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// DefaultFetcher returns a Fetcher with package defaults.
func DefaultFetcher() *Fetcher {
	return NewFetcher(DefaultTimeout, DefaultUserAgent, DefaultMaxBytes)
}

// WithCache keeps remote bodies in memory for ttl so that replays of the
// same URL do not hit the network again. Local files are always re-read.
func (f *Fetcher) WithCache(ttl time.Duration) *Fetcher {
	f.cache = gocache.New(ttl, 2*ttl)
	return f
}

// WithRateLimit caps remote requests at rps per second.
func (f *Fetcher) WithRateLimit(rps float64) *Fetcher {
	f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return f
}

// IsRemote reports whether source names an HTTP resource.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the raw bytes behind source. Any failure is a *LoadError
// wrapping ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if IsRemote(source) {
		body, err = f.fetchHTTP(ctx, source)
	} else {
		body, err = f.readFile(source)
	}
	if err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("%w: %v", ErrFetch, err)}
	}
	return body, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(rawURL); ok {
			return v.([]byte), nil
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := f.readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.cache != nil {
		f.cache.SetDefault(rawURL, body)
	}
	return body, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readAll(file)
}

// readAll reads r whole, failing instead of truncating past maxBytes.
func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("input exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}
