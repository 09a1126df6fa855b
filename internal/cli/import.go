package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"certquiz-service/internal/importer"
	pgstore "certquiz-service/internal/infra/postgres"
)

// NewImportCmd loads exported question records into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		file     string
		category string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from a JSON export, replacing their categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			records, err := importer.ReadFile(file)
			if err != nil {
				return err
			}
			res := importer.Convert(records, category, log)
			if len(res.Questions) == 0 {
				return fmt.Errorf("no valid questions in %s", file)
			}

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgstore.NewPool(ctx, cfg.Postgres.URL, pgstore.PoolConfig{MaxConns: cfg.Postgres.MaxConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			written, err := pgstore.NewQuestionLoader(pool).ReplaceCategories(ctx, res.Categories, res.Questions)
			if err != nil {
				return err
			}
			log.Info("questions imported",
				zap.Int("written", written),
				zap.Int("skipped", res.Skipped),
				zap.Strings("categories", res.Categories))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file of question records")
	cmd.Flags().StringVar(&category, "category", "", "category to assign to every record")
	return cmd
}
