// Package arxiv fetches paper metadata from the arXiv export API.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/paperdup/internal/reference"
)

const (
	// BaseURL is the arXiv export API query endpoint.
	BaseURL = "https://export.arxiv.org/api/query"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateInterval is the minimum spacing between requests that arXiv
	// asks API clients to respect.
	DefaultRateInterval = 3 * time.Second

	// DefaultPageSize is the number of entries requested per page.
	DefaultPageSize = 100

	// DefaultMaxResults is the number of papers fetched when none is given.
	DefaultMaxResults = 100

	// maxBodySize bounds how much of a response is read.
	maxBodySize = 32 << 20
)

// Client is a rate-limited HTTP client for the arXiv export API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	pageSize   int
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateInterval sets the minimum time between requests. Zero or less
// disables rate limiting.
func WithRateInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithPageSize sets how many entries are requested per page.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new arXiv API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultRateInterval), 1),
		baseURL:    BaseURL,
		pageSize:   DefaultPageSize,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

var (
	// dottedCategory matches categories such as cs.CL, q-bio.NC or physics.bio-ph.
	dottedCategory = regexp.MustCompile(`^[a-z]+(-[a-z]+)?\.[A-Za-z]+(-[a-z]+)?$`)

	// archiveCategories are categories without a subject-class suffix.
	archiveCategories = map[string]bool{
		"astro-ph": true, "cond-mat": true, "gr-qc": true, "hep-ex": true,
		"hep-lat": true, "hep-ph": true, "hep-th": true, "math-ph": true,
		"nlin": true, "nucl-ex": true, "nucl-th": true, "quant-ph": true,
	}
)

// IsCategory reports whether s looks like an arXiv category.
func IsCategory(s string) bool {
	return dottedCategory.MatchString(s) || archiveCategories[s]
}

// BuildQuery turns a domain into an arXiv search_query. Categories become
// cat: queries, explicit field:value queries pass through unchanged and
// anything else is a keyword search over all fields.
func BuildQuery(domain string) string {
	domain = strings.TrimSpace(domain)
	switch {
	case domain == "":
		return ""
	case strings.Contains(domain, ":"):
		return domain
	case IsCategory(domain):
		return "cat:" + domain
	}

	words := strings.Fields(domain)
	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = "all:" + w
	}
	return strings.Join(terms, " AND ")
}

// get performs one rate-limited request and parses the feed.
func (c *Client) get(ctx context.Context, params url.Values) (*feed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("arXiv request",
		zap.String("url", reqURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetworkError, err)
	}

	return parseFeed(body)
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(fmt.Sprintf("HTTP %d %s", resp.StatusCode, msg)),
		}
	}
	return nil
}

// Search fetches up to maxResults papers matching domain, newest submissions
// first. Results are requested page by page and every request waits on the
// rate limiter.
func (c *Client) Search(ctx context.Context, domain string, maxResults int) ([]reference.Reference, error) {
	query := BuildQuery(domain)
	if query == "" {
		return nil, fmt.Errorf("empty search domain")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	refs := make([]reference.Reference, 0, maxResults)
	for start := 0; len(refs) < maxResults; {
		want := min(c.pageSize, maxResults-len(refs))
		params := url.Values{
			"search_query": {query},
			"start":        {strconv.Itoa(start)},
			"max_results":  {strconv.Itoa(want)},
			"sortBy":       {"submittedDate"},
			"sortOrder":    {"descending"},
		}

		f, err := c.get(ctx, params)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				apiErr.Query = query
			}
			return nil, fmt.Errorf("fetching results %d-%d: %w", start, start+want, err)
		}

		for _, e := range f.Entries {
			refs = append(refs, e.toReference())
		}

		c.logger.Info("Fetched arXiv page",
			zap.String("query", query),
			zap.Int("start", start),
			zap.Int("entries", len(f.Entries)),
			zap.Int("total", f.TotalResults),
		)

		start += len(f.Entries)
		if len(f.Entries) < want || (f.TotalResults > 0 && start >= f.TotalResults) {
			break
		}
	}

	if len(refs) > maxResults {
		refs = refs[:maxResults]
	}
	return refs, nil
}

// GetPaper fetches a single paper by arXiv identifier.
func (c *Client) GetPaper(ctx context.Context, id string) (*reference.Reference, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty arXiv identifier")
	}

	f, err := c.get(ctx, url.Values{"id_list": {id}})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Query = id
		}
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}

	for _, e := range f.Entries {
		ref := e.toReference()
		// Missing identifiers come back as an entry with no id or title.
		if ref.ArXivID == "" || ref.Title == "" {
			continue
		}
		return &ref, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
