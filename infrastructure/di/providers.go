package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/cover"
	"github.com/heinscr/books-library/infrastructure/logging"
	"github.com/heinscr/books-library/infrastructure/messaging/eventbridge"
	"github.com/heinscr/books-library/infrastructure/persistence/dynamodb"
	"github.com/heinscr/books-library/infrastructure/storage"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ServiceName names trace segments
const ServiceName = "books-library"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg)
}

// ProvideTracer creates the X-Ray tracer; it is inert unless tracing is enabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(ServiceName, cfg.EnableTracing)
}

// ProvideAWSConfig creates AWS configuration. SDK clients built from it are
// traced when tracing is enabled.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config, tracer *observability.Tracer) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	tracer.InstrumentAWS(&awsCfg)
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideS3Client creates an S3 client
func ProvideS3Client(awsCfg aws.Config) *awss3.Client {
	return awss3.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideBookRepository creates the Books table gateway
func ProvideBookRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.BookRepository {
	return dynamodb.NewBookRepository(client, cfg.BooksTable, logger)
}

// ProvideReadStatusRepository creates the UserBooks table gateway
func ProvideReadStatusRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ReadStatusRepository {
	return dynamodb.NewReadStatusRepository(client, cfg.UserBooksTable, logger)
}

// ProvideObjectStore selects S3 or a local MinIO server
func ProvideObjectStore(client *awss3.Client, cfg *config.Config, logger *zap.Logger) (ports.ObjectStore, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreMinIO:
		return storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.BucketName,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinIOUseSSL,
		}, logger)
	default:
		return storage.NewS3Store(client, cfg.BucketName, logger), nil
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewNoopPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideCollector creates the Prometheus collector served by the local server
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(promNamespace(cfg.MetricsNamespace))
}

// ProvideOutcomeObserver logs best-effort failures and counts every outcome
func ProvideOutcomeObserver(logger *zap.Logger, metrics *observability.Metrics, collector *observability.Collector) *services.LoggingObserver {
	return services.NewLoggingObserver(logger, metrics, collector)
}

// ProvideErrorHandler creates the HTTP error writer; stack traces are
// logged outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, !cfg.IsProduction())
}

// ProvideCoverClient creates the Google Books client
func ProvideCoverClient(cfg *config.Config, tracer *observability.Tracer, logger *zap.Logger) *cover.Client {
	httpClient := tracer.HTTPClient(&http.Client{Timeout: cfg.CoverTimeout})
	return cover.NewClient(cover.Config{
		BaseURL: cfg.CoverAPIBaseURL,
		APIKey:  cfg.CoverAPIKey,
		Timeout: cfg.CoverTimeout,
	}, httpClient, logger)
}

// ProvideAuthorFinder tries Google Books first and falls back to Open
// Library for titles Google does not know.
func ProvideAuthorFinder(google *cover.Client, cfg *config.Config, tracer *observability.Tracer, logger *zap.Logger) ports.AuthorFinder {
	httpClient := tracer.HTTPClient(&http.Client{Timeout: cfg.CoverTimeout})
	openLibrary := cover.NewOpenLibrary(cover.Config{Timeout: cfg.CoverTimeout}, httpClient, logger)
	return cover.AuthorChain{google, openLibrary}
}

// ProvideSettings maps configuration onto service settings
func ProvideSettings(cfg *config.Config) services.Settings {
	return SettingsFromConfig(cfg)
}

// SettingsFromConfig maps configuration onto service settings
func SettingsFromConfig(cfg *config.Config) services.Settings {
	settings := services.DefaultSettings()
	settings.URLExpiry = cfg.URLExpiry
	settings.MaxFileSize = cfg.MaxFileSizeBytes
	settings.MaxStringLength = cfg.MaxStringLength
	settings.MinSeriesOrder = cfg.MinSeriesOrder
	settings.MaxSeriesOrder = cfg.MaxSeriesOrder
	settings.BooksPrefix = cfg.BooksPrefix
	settings.AdminGroup = cfg.AdminGroup
	return settings
}

// ProvideLookupLimiter paces maintenance lookups against Google Books
func ProvideLookupLimiter() *rate.Limiter {
	return services.NewLookupLimiter(float64(time.Second / services.DefaultLookupInterval))
}

// promNamespace turns a CloudWatch namespace into a valid metric prefix
func promNamespace(ns string) string {
	out := make([]rune, 0, len(ns))
	for _, r := range ns {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case len(out) > 0 && out[len(out)-1] != '_':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "books_library"
	}
	return string(out)
}
