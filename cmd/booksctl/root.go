package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/di"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	container *di.Container

	rootCmd = &cobra.Command{
		Use:          "booksctl",
		Short:        "Maintenance jobs for the books library",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			applyOverrides(cfg)

			container, err = di.InitializeContainer(cmd.Context(), cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if container != nil {
				container.Sync()
			}
		},
	}
)

// Flag names double as viper keys; FOO_BAR in the environment sets foo-bar.
const (
	flagBooksTable = "books-table"
	flagBucket     = "bucket-name"
	flagPrefix     = "books-prefix"
	flagRegion     = "aws-region"
	flagLogLevel   = "log-level"
	flagOutput     = "output"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String(flagBooksTable, "", "Books table name (env BOOKS_TABLE)")
	pf.String(flagBucket, "", "Bucket holding the archives (env BUCKET_NAME)")
	pf.String(flagPrefix, "", "Key prefix of the archives (env BOOKS_PREFIX)")
	pf.String(flagRegion, "", "AWS region (env AWS_REGION)")
	pf.String(flagLogLevel, "", "Log level (env LOG_LEVEL)")
	pf.StringP(flagOutput, "o", "text", "Summary format: text or json")

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(pf))

	rootCmd.AddCommand(backfillCoversCmd(), migrateBooksCmd(), populateAuthorsCmd())
}

// applyOverrides layers flags and their environment variables over the
// configuration loaded from the service's own variables.
func applyOverrides(cfg *config.Config) {
	override := func(key string, target *string) {
		if v := viper.GetString(key); v != "" {
			*target = v
		}
	}
	override(flagBooksTable, &cfg.BooksTable)
	override(flagBucket, &cfg.BucketName)
	override(flagPrefix, &cfg.BooksPrefix)
	override(flagRegion, &cfg.AWSRegion)
	override(flagLogLevel, &cfg.LogLevel)
}

// maintenance returns the container's service, or one paced at perSecond
// when the --rate flag was given.
func maintenance(cmd *cobra.Command, perSecond float64) *services.MaintenanceService {
	if !cmd.Flags().Changed("rate") {
		return container.Maintenance
	}
	return services.NewMaintenanceService(
		container.Books,
		container.Store,
		container.Covers,
		container.Authors,
		services.NewLookupLimiter(perSecond),
		di.SettingsFromConfig(container.Config),
		container.Logger,
	)
}

func run(cmd *cobra.Command, name string, job func(ctx context.Context) (services.Report, error)) error {
	report, err := job(cmd.Context())
	if printErr := printReport(cmd.OutOrStdout(), viper.GetString(flagOutput), name, report); printErr != nil {
		return printErr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return reportError(name, report)
}
