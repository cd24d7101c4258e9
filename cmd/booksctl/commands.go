package main

import (
	"context"
	"time"

	"github.com/heinscr/books-library/application/services"

	"github.com/spf13/cobra"
)

var defaultRate = float64(time.Second / services.DefaultLookupInterval)

func backfillCoversCmd() *cobra.Command {
	var (
		opts      services.BackfillOptions
		perSecond float64
	)
	cmd := &cobra.Command{
		Use:   "backfill-covers",
		Short: "Look up covers for books that never had one",
		Long: `Scan the Books table and look up cover art for every book whose cover
was never looked up. With --include-absent, books whose previous lookup
found nothing are retried. A miss is stored as known absent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := maintenance(cmd, perSecond)
			return run(cmd, "backfill-covers", func(ctx context.Context) (services.Report, error) {
				return svc.BackfillCovers(ctx, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&opts.IncludeAbsent, "include-absent", false, "Retry books whose last lookup found no cover")
	cmd.Flags().Float64Var(&perSecond, "rate", defaultRate, "Lookups per second (0 disables pacing)")
	return cmd
}

func migrateBooksCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate-books",
		Short: "Create missing book records from archives in the bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := container.Maintenance
			return run(cmd, "migrate-books", func(ctx context.Context) (services.Report, error) {
				return svc.MigrateBooks(ctx, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func populateAuthorsCmd() *cobra.Command {
	var (
		dryRun    bool
		perSecond float64
	)
	cmd := &cobra.Command{
		Use:   "populate-authors",
		Short: "Look up authors for books that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := maintenance(cmd, perSecond)
			return run(cmd, "populate-authors", func(ctx context.Context) (services.Report, error) {
				return svc.PopulateAuthors(ctx, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().Float64Var(&perSecond, "rate", defaultRate, "Lookups per second (0 disables pacing)")
	return cmd
}
