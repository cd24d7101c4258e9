package di

import (
	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/cover"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies. It is built once per
// process and shared across invocations.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Tracer        *observability.Tracer
	Metrics       *observability.Metrics
	Collector     *observability.Collector
	ErrorHandler  *apperrors.ErrorHandler
	Books         ports.BookRepository
	Statuses      ports.ReadStatusRepository
	Store         ports.ObjectStore
	Publisher     ports.EventPublisher
	Covers        *cover.Client
	Authors       ports.AuthorFinder
	BookService   *services.BookService
	IngestService *services.IngestService
	Maintenance   *services.MaintenanceService
}

// Sync flushes buffered log entries
func (c *Container) Sync() {
	_ = c.Logger.Sync()
}
