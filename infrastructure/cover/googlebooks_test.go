package cover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, Timeout: time.Second}, server.Client(), zap.NewNop())
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "The Hobbit", SearchQuery("The_Hobbit", ""))
	assert.Equal(t, "Dune Frank Herbert", SearchQuery("Dune", "Frank Herbert"))
	assert.Equal(t, "Spider Man Stan Lee", SearchQuery("Spider-Man", "Stan Lee"))
}

func TestFindCover_PrefersMediumAndUpgradesScheme(t *testing.T) {
	// Arrange
	var gotQuery, gotMax string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"volumeInfo":{"imageLinks":{
			"smallThumbnail":"http://img/small","thumbnail":"http://img/thumb","medium":"http://img/medium"}}}]}`))
	})

	// Act
	url, ok := client.FindCover(context.Background(), "Dune", "Frank Herbert")

	// Assert
	assert.True(t, ok)
	assert.Equal(t, "https://img/medium", url)
	assert.Equal(t, "Dune Frank Herbert", gotQuery)
	assert.Equal(t, "1", gotMax)
}

func TestFindCover_FallsBackThroughResolutions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"imageLinks":{"smallThumbnail":"http://img/small"}}}]}`))
	})

	url, ok := client.FindCover(context.Background(), "Dune", "")

	assert.True(t, ok)
	assert.Equal(t, "https://img/small", url)
}

func TestFindCover_AbsentCases(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no items", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"totalItems":0}`))
		}},
		{"no images", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{}}]}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)

			url, ok := client.FindCover(context.Background(), "Dune", "")

			assert.False(t, ok)
			assert.Empty(t, url)
		})
	}
}

func TestFindCover_TimesOut(t *testing.T) {
	// Arrange
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	client := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil, zap.NewNop())

	// Act
	start := time.Now()
	_, ok := client.FindCover(context.Background(), "Dune", "")

	// Assert
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFindCover_SendsAPIKey(t *testing.T) {
	var key string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()
	client := NewClient(Config{BaseURL: server.URL, APIKey: "secret"}, nil, zap.NewNop())

	client.FindCover(context.Background(), "Dune", "")

	assert.Equal(t, "secret", key)
}

func TestFindCover_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	// Act
	for range 10 {
		client.FindCover(context.Background(), "Dune", "")
	}

	// Assert
	assert.Equal(t, int32(5), calls.Load())
}

func TestFindAuthors(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"authors":["Terry Pratchett","Neil Gaiman"]}}]}`))
	})

	authors, ok := client.FindAuthors(context.Background(), "Good Omens.zip")

	require.True(t, ok)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, authors)
	assert.Equal(t, "Good Omens", gotQuery)
}
