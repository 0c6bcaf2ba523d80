package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-api/app"
	"github.com/upb/recipe-api/services/recipes"
)

// queryFlags mirror the request body of the HTTP endpoints
type queryFlags struct {
	ingredients string
	preferences []string
	topN        int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ingredients, "ingredients", "i", "", "available ingredients")
	cmd.Flags().StringSliceVarP(&f.preferences, "preferences", "p", nil, "dietary or taste preferences (repeatable or comma separated)")
	cmd.Flags().IntVarP(&f.topN, "top-n", "n", recipes.DefaultTopN, "number of recipes to retrieve")
}

func (f *queryFlags) validate() error {
	if f.topN <= 0 {
		return fmt.Errorf("--top-n must be positive, got %d", f.topN)
	}
	return nil
}

func newRecommendCmd(c *cli) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:     "recommend",
		Aliases: []string{"rec"},
		Short:   "Print the recipes closest to a query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := app.NewDependencies(ctx, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close(ctx)

			results, err := deps.Recipes.Recommend(ctx, recipes.RecommendRequest{
				Ingredients: flags.ingredients,
				Preferences: flags.preferences,
				TopN:        flags.topN,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	flags.register(cmd)
	return cmd
}

func newGenerateCmd(c *cli) *cobra.Command {
	flags := &queryFlags{}
	var maxNewTokens int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a recipe grounded on the closest dataset recipes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			if maxNewTokens < 0 {
				return fmt.Errorf("--max-new-tokens must not be negative, got %d", maxNewTokens)
			}

			ctx := cmd.Context()
			deps, err := app.NewDependencies(ctx, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close(ctx)

			text, err := deps.Recipes.GenerateAIRecipe(ctx, recipes.GenerateRequest{
				Ingredients:  flags.ingredients,
				Preferences:  flags.preferences,
				ContextSize:  flags.topN,
				MaxNewTokens: maxNewTokens,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxNewTokens, "max-new-tokens", 0, "generation length cap (0 uses GENERATION_MAX_NEW_TOKENS)")
	return cmd
}
