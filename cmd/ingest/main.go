// Command ingest is the Lambda triggered by S3 object-created
// notifications on the books prefix. It records one Book per uploaded
// archive and never reports failure back to S3.
package main

import (
	"context"
	"log"

	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/di"
	s3lambda "github.com/heinscr/books-library/interfaces/lambda"

	"github.com/aws/aws-lambda-go/lambda"
)

var handler *s3lambda.S3Handler

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	handler = s3lambda.NewS3Handler(container.IngestService, container.Metrics, container.Logger)
}

func main() {
	lambda.Start(handler.Handle)
}
