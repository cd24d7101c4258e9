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

// DefaultOpenLibraryURL is the Open Library API root
const DefaultOpenLibraryURL = "https://openlibrary.org"

// openLibraryMaxAuthors caps the authors taken from one match
const openLibraryMaxAuthors = 2

// OpenLibrary looks up authors by title on Open Library. It is used when
// Google Books has no answer.
type OpenLibrary struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.AuthorFinder = (*OpenLibrary)(nil)

type searchResponse struct {
	NumFound int `json:"num_found"`
	Docs     []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
	} `json:"docs"`
}

// NewOpenLibrary creates a client. BaseURL defaults to
// DefaultOpenLibraryURL; the API key is unused.
func NewOpenLibrary(cfg Config, httpClient *http.Client, logger *zap.Logger) *OpenLibrary {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenLibraryURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenLibrary{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		breaker: newBreaker("open-library", logger),
		logger:  logger,
	}
}

// FindAuthors returns up to two authors of the first title match
func (o *OpenLibrary) FindAuthors(ctx context.Context, title string) ([]string, bool) {
	title = strings.TrimSpace(strings.TrimSuffix(title, ".zip"))
	result, err := o.breaker.Execute(func() (any, error) {
		return o.fetch(ctx, title)
	})
	if err != nil {
		if errors.Is(err, errNoResults) {
			o.logger.Debug("No Open Library match", zap.String("title", title))
		} else {
			o.logger.Warn("Open Library lookup failed", zap.String("title", title), zap.Error(err))
		}
		return nil, false
	}

	authors := result.([]string)
	if len(authors) > openLibraryMaxAuthors {
		authors = authors[:openLibraryMaxAuthors]
	}
	return authors, true
}

func (o *OpenLibrary) fetch(ctx context.Context, title string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("title", title)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open Library request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open Library returned non-200 status code: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Open Library response: %w", err)
	}
	if result.NumFound == 0 || len(result.Docs) == 0 || len(result.Docs[0].AuthorName) == 0 {
		return nil, errNoResults
	}
	return result.Docs[0].AuthorName, nil
}

// AuthorChain asks each finder in turn and returns the first answer
type AuthorChain []ports.AuthorFinder

var _ ports.AuthorFinder = AuthorChain(nil)

// FindAuthors implements ports.AuthorFinder
func (c AuthorChain) FindAuthors(ctx context.Context, title string) ([]string, bool) {
	for _, finder := range c {
		if authors, ok := finder.FindAuthors(ctx, title); ok && len(authors) > 0 {
			return authors, true
		}
	}
	return nil, false
}
