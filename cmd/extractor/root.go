package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"comment-extractor/internal/di"
	"comment-extractor/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "extractor",
		Short: "Extract user comments from web pages",
		Long: `extractor pulls the comment thread out of a page. Known domains use the
stored extraction config; unknown ones fall back to AI-assisted discovery.

Configuration is read from .env / .env.<APP_ENV> and EXTRACTOR_* variables.

Examples:
  extractor extract https://example.com/post/1 --max 100
  extractor extract https://example.com/post/1 --file saved.html
  extractor configs list`,
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd(), newConfigsCmd())
	return root
}

// openContainer builds the container from the environment.
func openContainer(ctx context.Context, task string) (*di.Container, error) {
	cfg := di.ConfigFromEnv(env.NewEnvService(), task)
	return di.NewContainer(ctx, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
