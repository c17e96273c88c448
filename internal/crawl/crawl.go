// Package crawl downloads HLTV forum index and thread pages and parses them
// into structured records.
package crawl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// TimestampLayout is the format of post timestamps on thread pages.
const TimestampLayout = "2006-01-02 15:04"

// FetchError reports a failed download or a page that does not have the
// expected shape.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads forum pages. Requests are spaced by a rate limiter so the
// crawler never bursts against the site.
type Fetcher struct {
	BaseURL   string
	UserAgent string
	// Location is the time zone post timestamps are written in.
	Location *time.Location

	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher for the site at baseURL. minInterval is the
// minimum spacing between two requests; zero disables spacing.
func NewFetcher(baseURL, userAgent string, timeout, minInterval time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Fetcher{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Location:  time.UTC,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// get downloads pageURL and parses it. The byte count is returned even when
// parsing fails.
func (f *Fetcher) get(ctx context.Context, pageURL string) (*goquery.Document, int64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, &FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: pageURL, Err: err}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	n := int64(len(body))
	if err != nil {
		return nil, n, &FetchError{URL: pageURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, n, &FetchError{URL: pageURL, Err: fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, n, &FetchError{URL: pageURL, Err: fmt.Errorf("parsing HTML: %w", err)}
	}
	return doc, n, nil
}
