package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/application/ports/mocks"
	"github.com/heinscr/books-library/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMaintenance(books *mocks.BookRepository, store *mocks.ObjectStore, covers *mocks.CoverFinder) *MaintenanceService {
	return NewMaintenanceService(books, store, covers, covers, nil, DefaultSettings(), zap.NewNop())
}

func TestMaintenance_BackfillCovers(t *testing.T) {
	// Arrange
	withCover := book("has", "2024-01-01T00:00:00.000000Z")
	withCover.CoverImageURL = domain.KnownCover("https://covers/has.jpg")
	absent := book("absent", "2024-01-01T00:00:00.000000Z")
	absent.CoverImageURL = domain.KnownCover("")
	hit := book("hit", "2024-01-01T00:00:00.000000Z")
	miss := book("miss", "2024-01-01T00:00:00.000000Z")

	books := mocks.NewBookRepository(withCover, absent, hit, miss)
	covers := new(mocks.CoverFinder)
	covers.On("FindCover", mock.Anything, "hit", "").Return("https://covers/hit.jpg", true)
	covers.On("FindCover", mock.Anything, "miss", "").Return("", false)
	svc := newMaintenance(books, &mocks.ObjectStore{}, covers)

	// Act
	report, err := svc.BackfillCovers(context.Background(), BackfillOptions{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 4, Candidates: 2, Updated: 1, NotFound: 1}, report)
	stored, _ := books.Stored("hit")
	assert.Equal(t, domain.KnownCover("https://covers/hit.jpg"), stored.CoverImageURL)
	stored, _ = books.Stored("miss")
	assert.Equal(t, domain.KnownCover(""), stored.CoverImageURL)
	covers.AssertNotCalled(t, "FindCover", mock.Anything, "absent", mock.Anything)
}

func TestMaintenance_BackfillDryRunWritesNothing(t *testing.T) {
	absent := book("absent", "2024-01-01T00:00:00.000000Z")
	absent.CoverImageURL = domain.KnownCover("")
	books := mocks.NewBookRepository(absent)
	covers := new(mocks.CoverFinder)
	covers.On("FindCover", mock.Anything, "absent", "").Return("https://covers/now.jpg", true)
	svc := newMaintenance(books, &mocks.ObjectStore{}, covers)

	report, err := svc.BackfillCovers(context.Background(), BackfillOptions{DryRun: true, IncludeAbsent: true})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.False(t, books.Called("Update"))
}

func TestMaintenance_BackfillCountsFailures(t *testing.T) {
	books := mocks.NewBookRepository(book("a", "2024-01-01T00:00:00.000000Z"))
	books.Errors["Update"] = errors.New("throttled")
	covers := new(mocks.CoverFinder)
	covers.On("FindCover", mock.Anything, mock.Anything, mock.Anything).Return("https://covers/a.jpg", true)
	svc := newMaintenance(books, &mocks.ObjectStore{}, covers)

	report, err := svc.BackfillCovers(context.Background(), BackfillOptions{})

	require.NoError(t, err)
	assert.True(t, report.HasErrors())
	assert.Equal(t, []string{"a: throttled"}, report.Failures)
}

func TestMaintenance_MigrateBooks(t *testing.T) {
	// Arrange
	modified := time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC)
	books := mocks.NewBookRepository(book("existing", "2020-01-01T00:00:00.000000Z"))
	store := &mocks.ObjectStore{BucketName: "library"}
	store.On("List", mock.Anything, "books/").Return([]ports.ObjectInfo{
		{Key: "books/"},
		{Key: "books/notes.txt", Size: 3},
		{Key: "books/existing.zip", Size: 5},
		{Key: "books/Ursula K. Le Guin - The Dispossessed.zip", Size: 7, LastModified: modified},
	}, nil)
	svc := newMaintenance(books, store, new(mocks.CoverFinder))

	// Act
	report, err := svc.MigrateBooks(context.Background(), false)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 4, Candidates: 2, Updated: 1, Skipped: 1}, report)
	got, ok := books.Stored("Ursula K. Le Guin - The Dispossessed")
	require.True(t, ok)
	assert.Equal(t, "The Dispossessed", got.Name)
	assert.Equal(t, "Ursula K. Le Guin", got.Author)
	assert.Equal(t, domain.Timestamp(modified), got.Created)
	assert.Equal(t, int64(7), got.SizeBytes)
	assert.Equal(t, "s3://library/books/Ursula K. Le Guin - The Dispossessed.zip", got.BlobURL)
	assert.Nil(t, got.CoverImageURL, "left for backfill-covers")
}

func TestMaintenance_MigrateListError(t *testing.T) {
	store := &mocks.ObjectStore{BucketName: "library"}
	store.On("List", mock.Anything, "books/").Return(nil, errors.New("no such bucket"))
	svc := newMaintenance(mocks.NewBookRepository(), store, new(mocks.CoverFinder))

	_, err := svc.MigrateBooks(context.Background(), true)

	assert.ErrorContains(t, err, "no such bucket")
}

func TestMaintenance_PopulateAuthors(t *testing.T) {
	// Arrange
	known := book("known", "2024-01-01T00:00:00.000000Z")
	known.Author = "Someone"
	books := mocks.NewBookRepository(known, book("Good Omens", "2024-01-01T00:00:00.000000Z"), book("Obscure", "2024-01-01T00:00:00.000000Z"))
	covers := new(mocks.CoverFinder)
	covers.On("FindAuthors", mock.Anything, "Good Omens").Return([]string{"Terry Pratchett", "Neil Gaiman"}, true)
	covers.On("FindAuthors", mock.Anything, "Obscure").Return(nil, false)
	svc := newMaintenance(books, &mocks.ObjectStore{}, covers)

	// Act
	report, err := svc.PopulateAuthors(context.Background(), false)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 3, Candidates: 2, Updated: 1, NotFound: 1}, report)
	got, _ := books.Stored("Good Omens")
	assert.Equal(t, "Terry Pratchett, Neil Gaiman", got.Author)
}

func TestMaintenance_LimiterHonoursCancellation(t *testing.T) {
	books := mocks.NewBookRepository(book("a", "2024-01-01T00:00:00.000000Z"), book("b", "2024-01-01T00:00:00.000000Z"))
	covers := new(mocks.CoverFinder)
	covers.On("FindAuthors", mock.Anything, mock.Anything).Return(nil, false)
	svc := NewMaintenanceService(books, &mocks.ObjectStore{}, covers, covers, NewLookupLimiter(0.001), DefaultSettings(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.PopulateAuthors(ctx, true)

	assert.Error(t, err)
}
