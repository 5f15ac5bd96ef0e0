package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/browser/rod"
	"comment-extractor/internal/infrastructure/document/htmldoc"

	"github.com/spf13/cobra"
)

type extractFlags struct {
	file       string
	domain     string
	max        int
	strategy   string
	screenshot string
	timeout    time.Duration
}

func newExtractCmd() *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract comments from a URL and print them as JSON",
		Long: `Extract opens the URL in the configured document source (browser by
default) and runs the tiers in order: config-driven, ai-discovery,
ai-progressive. With --file the page is read from a saved HTML file instead;
the URL then only names the domain.

Interrupting with Ctrl+C cancels the run and prints what was collected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "Read the page from an HTML file")
	cmd.Flags().StringVar(&f.domain, "domain", "", "Domain key (default: URL host)")
	cmd.Flags().IntVar(&f.max, "max", 0, "Stop after this many comments (0 = all)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Force one tier: config-driven, ai-discovery or ai-progressive")
	cmd.Flags().StringVar(&f.screenshot, "screenshot", "", "Write a JPEG of the page here when extraction fails (browser only)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Minute, "Overall time limit")
	return cmd
}

func runExtract(cmd *cobra.Command, rawURL string, f extractFlags) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	container, err := openContainer(ctx, "extract")
	if err != nil {
		return err
	}
	defer container.Close()

	doc, release, err := openDocument(ctx, container.Documents, rawURL, f.file)
	if err != nil {
		return err
	}
	defer release()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			container.Extractor.Cancel()
		}
	}()

	res, err := container.Extractor.Execute(ctx, doc, input.ExtractRequest{
		URL:         rawURL,
		Domain:      f.domain,
		MaxComments: f.max,
		Strategy:    entity.StrategyKind(f.strategy),
	})
	if err != nil {
		container.Logger.Error("extraction failed", "url", rawURL, "error", err)
		saveScreenshot(ctx, doc, f.screenshot, container.Logger)
		return err
	}
	if len(res.Comments) == 0 {
		saveScreenshot(ctx, doc, f.screenshot, container.Logger)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func openDocument(ctx context.Context, src output.DocumentSource, rawURL, file string) (output.DocumentPort, func(), error) {
	if file == "" {
		return src.Open(ctx, rawURL)
	}
	fh, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("open page file: %w", err)
	}
	defer fh.Close()
	doc, err := htmldoc.Parse(fh)
	if err != nil {
		return nil, nil, err
	}
	return doc, func() {}, nil
}

func saveScreenshot(ctx context.Context, doc output.DocumentPort, path string, log output.LoggerPort) {
	if path == "" {
		return
	}
	browser, ok := doc.(*rod.BrowserAdapter)
	if !ok {
		log.Warn("screenshot needs the browser document source", "path", path)
		return
	}
	shot, err := browser.Screenshot(context.WithoutCancel(ctx))
	if err != nil {
		log.Warn("screenshot failed", "error", err)
		return
	}
	if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
		log.Warn("screenshot not written", "path", path, "error", err)
		return
	}
	log.Info("screenshot saved", "path", path, "width", shot.Width, "height", shot.Height)
}
