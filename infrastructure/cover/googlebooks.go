package cover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heinscr/books-library/application/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Google Books API root
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// DefaultTimeout bounds a single lookup
const DefaultTimeout = 3 * time.Second

var errNoResults = errors.New("no results")

// Config holds Google Books client settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client looks up covers and authors on Google Books. Lookups never fail:
// every problem is logged and reported as not found.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var (
	_ ports.CoverFinder  = (*Client)(nil)
	_ ports.AuthorFinder = (*Client)(nil)
)

// volumesResponse matches the part of the Google Books response we read.
type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title      string   `json:"title"`
			Authors    []string `json:"authors"`
			ImageLinks struct {
				Medium         string `json:"medium"`
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// NewClient creates a client. A nil httpClient gets a plain client with the
// configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		breaker: newBreaker("google-books", logger),
		logger:  logger,
	}
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// An empty result is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoResults)
		},
	})
}

// SearchQuery builds the volumes query for a title and optional author.
// Filename separators become spaces.
func SearchQuery(title, author string) string {
	query := title
	if author != "" {
		query = title + " " + author
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(query)
}

// FindCover returns the best available cover image for title and author
func (c *Client) FindCover(ctx context.Context, title, author string) (string, bool) {
	vol, err := c.search(ctx, SearchQuery(title, author))
	if err != nil {
		c.logFailure("cover", title, err)
		return "", false
	}

	links := vol.Items[0].VolumeInfo.ImageLinks
	for _, candidate := range []string{links.Medium, links.Thumbnail, links.SmallThumbnail} {
		if candidate != "" {
			return strings.Replace(candidate, "http://", "https://", 1), true
		}
	}
	return "", false
}

// FindAuthors returns the authors of the best match for title
func (c *Client) FindAuthors(ctx context.Context, title string) ([]string, bool) {
	vol, err := c.search(ctx, strings.TrimSpace(strings.TrimSuffix(title, ".zip")))
	if err != nil {
		c.logFailure("authors", title, err)
		return nil, false
	}

	authors := vol.Items[0].VolumeInfo.Authors
	return authors, len(authors) > 0
}

func (c *Client) logFailure(kind, title string, err error) {
	if errors.Is(err, errNoResults) {
		c.logger.Debug("No Google Books match", zap.String("lookup", kind), zap.String("title", title))
		return
	}
	c.logger.Warn("Google Books lookup failed",
		zap.String("lookup", kind),
		zap.String("title", title),
		zap.Error(err),
	)
}

func (c *Client) search(ctx context.Context, query string) (*volumesResponse, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return result.(*volumesResponse), nil
}

func (c *Client) fetch(ctx context.Context, query string) (*volumesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", "1")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google Books API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google Books API returned non-200 status code: %d", resp.StatusCode)
	}

	var result volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Google Books response: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, errNoResults
	}
	return &result, nil
}
