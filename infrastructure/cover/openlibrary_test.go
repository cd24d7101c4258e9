package cover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOpenLibrary(t *testing.T, handler http.HandlerFunc) *OpenLibrary {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenLibrary(Config{BaseURL: server.URL, Timeout: time.Second}, server.Client(), zap.NewNop())
}

func TestOpenLibrary_FindAuthorsKeepsFirstTwo(t *testing.T) {
	// Arrange
	var gotTitle, gotLimit string
	client := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		gotTitle = r.URL.Query().Get("title")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"num_found":1,"docs":[{"title":"Good Omens","author_name":["Terry Pratchett","Neil Gaiman","Someone Else"]}]}`))
	})

	// Act
	authors, ok := client.FindAuthors(context.Background(), "Good Omens.zip")

	// Assert
	require.True(t, ok)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, authors)
	assert.Equal(t, "Good Omens", gotTitle)
	assert.Equal(t, "1", gotLimit)
}

func TestOpenLibrary_AbsentCases(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"nothing found", http.StatusOK, `{"num_found":0,"docs":[]}`},
		{"no author names", http.StatusOK, `{"num_found":1,"docs":[{"title":"Anon"}]}`},
		{"server error", http.StatusInternalServerError, `{}`},
		{"bad json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			})

			authors, ok := client.FindAuthors(context.Background(), "Anon")

			assert.False(t, ok)
			assert.Nil(t, authors)
		})
	}
}

func TestAuthorChain_FallsThroughToSecondFinder(t *testing.T) {
	// Arrange
	var googleCalls, openLibraryCalls int
	google := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		googleCalls++
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	})
	openLibrary := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		openLibraryCalls++
		_, _ = w.Write([]byte(`{"num_found":1,"docs":[{"author_name":["Ursula K. Le Guin"]}]}`))
	})
	chain := AuthorChain{google, openLibrary}

	// Act
	authors, ok := chain.FindAuthors(context.Background(), "The Dispossessed")

	// Assert
	require.True(t, ok)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, authors)
	assert.Equal(t, 1, googleCalls)
	assert.Equal(t, 1, openLibraryCalls)
}

func TestAuthorChain_StopsAtFirstAnswer(t *testing.T) {
	openLibraryCalls := 0
	google := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"authors":["Frank Herbert"]}}]}`))
	})
	openLibrary := newTestOpenLibrary(t, func(w http.ResponseWriter, r *http.Request) {
		openLibraryCalls++
	})

	authors, ok := AuthorChain{google, openLibrary}.FindAuthors(context.Background(), "Dune")

	require.True(t, ok)
	assert.Equal(t, []string{"Frank Herbert"}, authors)
	assert.Zero(t, openLibraryCalls)
}
