package main

import (
	"context"
	"log"
	"time"

	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/di"
	"github.com/heinscr/books-library/interfaces/http/rest"
	"github.com/heinscr/books-library/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container

	coldStart     = true
	coldStartTime time.Time
)

func init() {
	coldStartTime = time.Now()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// API Gateway has already verified the caller; claims arrive in the
	// request context.
	router := rest.NewRouter(
		container.BookService,
		container.ErrorHandler,
		rest.Identity(middleware.LambdaIdentity(container.Logger)),
		rest.Observability{Metrics: container.Metrics, Tracer: container.Tracer},
		container.Logger,
	)
	chiLambda = chiadapter.NewV2(router.Setup())

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	container.Logger.Debug("Lambda response",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Int("status_code", resp.StatusCode),
		zap.Bool("cold_start", coldStart),
	)
	coldStart = false

	if err != nil {
		container.Logger.Error("Proxy failed", zap.Error(err))
	}
	return resp, err
}

func main() {
	defer container.Sync()
	lambda.Start(Handler)
}
