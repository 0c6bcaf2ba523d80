package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-api/app"
	"github.com/upb/recipe-api/config"
	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/repositories/files"
	"github.com/upb/recipe-api/repositories/postgres"
	"github.com/upb/recipe-api/services/retrieval"
	"go.uber.org/zap"
)

// datasetFlags override the configured dataset location
type datasetFlags struct {
	source     string
	recipes    string
	embeddings string
	table      string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "dataset source override (files, postgres)")
	cmd.Flags().StringVar(&f.recipes, "recipes", "", "recipes CSV path override")
	cmd.Flags().StringVar(&f.embeddings, "embeddings", "", "embeddings .npy path override")
	cmd.Flags().StringVar(&f.table, "table", "", "recipe table override")
}

func (f *datasetFlags) apply(cfg *config.Config) error {
	if f.source != "" {
		cfg.Dataset.Source = f.source
	}
	if f.recipes != "" {
		cfg.Dataset.RecipesPath = f.recipes
	}
	if f.embeddings != "" {
		cfg.Dataset.EmbeddingsPath = f.embeddings
	}
	if f.table != "" {
		cfg.Dataset.Table = f.table
	}
	return cfg.Validate()
}

// DatasetSummary is printed by check-dataset
type DatasetSummary struct {
	Source    string `json:"source"`
	Records   int    `json:"records"`
	Dimension int    `json:"dimension"`
}

func newCheckDatasetCmd(c *cli) *cobra.Command {
	flags := &datasetFlags{}
	cmd := &cobra.Command{
		Use:   "check-dataset",
		Short: "Load the configured dataset and report its shape",
		Long: `Load recipes and embeddings exactly as the server would at startup and
print the record count and embedding dimension. Fails when the dataset is
missing, empty, misaligned or contains non-finite embeddings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(c.cfg); err != nil {
				return err
			}

			ds, err := c.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := retrieval.NewRetriever(ds.Embeddings()); err != nil {
				return fmt.Errorf("embeddings cannot be indexed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(DatasetSummary{
				Source:    c.cfg.Dataset.Source,
				Records:   ds.Len(),
				Dimension: ds.Dim(),
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newImportDatasetCmd(c *cli) *cobra.Command {
	var recipesPath, embeddingsPath, table string
	cmd := &cobra.Command{
		Use:   "import-dataset",
		Short: "Copy the CSV and .npy dataset into PostgreSQL",
		Long: `Read recipes from a CSV file and embeddings from a .npy file, create the
recipe table if needed and replace its contents in one transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if recipesPath == "" {
				recipesPath = c.cfg.Dataset.RecipesPath
			}
			if embeddingsPath == "" {
				embeddingsPath = c.cfg.Dataset.EmbeddingsPath
			}
			if table == "" {
				table = c.cfg.Dataset.Table
			}

			ds, err := files.NewSource(recipesPath, embeddingsPath, c.logger).Load(ctx)
			if err != nil {
				return err
			}

			db, err := postgres.NewDB(c.cfg.Database, c.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(ctx, table); err != nil {
				return err
			}
			if err := postgres.NewRecipeRepository(db.DB, table, c.logger).Import(ctx, ds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d recipes into %s\n", ds.Len(), table)
			return nil
		},
	}
	cmd.Flags().StringVar(&recipesPath, "recipes", "", "recipes CSV path (default from RECIPES_CSV_PATH)")
	cmd.Flags().StringVar(&embeddingsPath, "embeddings", "", "embeddings .npy path (default from EMBEDDINGS_NPY_PATH)")
	cmd.Flags().StringVar(&table, "table", "", "destination table (default from DATASET_TABLE)")
	return cmd
}

func newExportDatasetCmd(c *cli) *cobra.Command {
	flags := &datasetFlags{}
	var recipesOut, embeddingsOut string
	cmd := &cobra.Command{
		Use:   "export-dataset",
		Short: "Write the configured dataset to CSV and .npy files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(c.cfg); err != nil {
				return err
			}

			ctx := cmd.Context()
			ds, err := c.loadDataset(ctx)
			if err != nil {
				return err
			}
			if err := files.NewSource(recipesOut, embeddingsOut, c.logger).Save(ctx, ds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported %d recipes to %s and %s\n", ds.Len(), recipesOut, embeddingsOut)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&recipesOut, "recipes-out", "", "destination recipes CSV path")
	cmd.Flags().StringVar(&embeddingsOut, "embeddings-out", "", "destination embeddings .npy path")
	_ = cmd.MarkFlagRequired("recipes-out")
	_ = cmd.MarkFlagRequired("embeddings-out")
	return cmd
}

// loadDataset reads the dataset from the configured source, connecting to
// PostgreSQL only for the duration of the load.
func (c *cli) loadDataset(ctx context.Context) (*repositories.Dataset, error) {
	var db *postgres.DB
	if c.cfg.Dataset.Source == config.DatasetSourcePostgres {
		var err error
		if db, err = postgres.NewDB(c.cfg.Database, c.logger); err != nil {
			return nil, err
		}
		defer db.Close()
	}

	source, err := app.NewDatasetSource(c.cfg, db, c.logger)
	if err != nil {
		return nil, err
	}

	ds, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("dataset loaded",
		zap.String("source", c.cfg.Dataset.Source),
		zap.Int("records", ds.Len()))
	return ds, nil
}
