package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atlastales/storygraph/internal/util"
	"github.com/atlastales/storygraph/pkg/convert"
	"github.com/atlastales/storygraph/pkg/fetch"
	"github.com/atlastales/storygraph/pkg/logger"
	"github.com/atlastales/storygraph/pkg/story"
)

var convertCmd = &cobra.Command{
	Use:   "convert [input.json]",
	Short: "Convert a legacy story export into graph documents",
	Long:  `Reads a legacy story export from a file, or fetches it by item id, converts it, and writes one graph document per output story plus a media manifest.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConvert,
}

var (
	convertOut     string
	convertItemID  string
	convertEngine  string
	convertNoMeta  bool
	convertOffline bool
)

func init() {
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", ".", "Output directory")
	convertCmd.Flags().StringVar(&convertItemID, "item", "", "Fetch the legacy export by portal item id instead of reading a file")
	convertCmd.Flags().StringVar(&convertEngine, "engine", "", "Markup parser engine: dom or regex")
	convertCmd.Flags().BoolVar(&convertNoMeta, "no-metadata", false, "Skip the converter metadata resource")
	convertCmd.Flags().BoolVar(&convertOffline, "offline", false, "Skip all portal requests; map resources stay placeholders")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if convertEngine != "" {
		cfg.Engine = convertEngine
	}
	if convertNoMeta {
		cfg.SuppressMetadata = true
	}

	ctx := cmd.Context()

	var fetcher *fetch.HTTPFetcher
	if !convertOffline {
		fetcher = fetch.NewHTTPFetcher(cfg.Portal)
		fetcher.Token = cfg.Token
	}

	var raw []byte
	switch {
	case len(args) == 1:
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
	case convertItemID != "":
		if fetcher == nil {
			return fmt.Errorf("--item cannot be combined with --offline")
		}
		raw, err = fetcher.AppData(ctx, convertItemID)
		if err != nil {
			return fmt.Errorf("failed to fetch item %s: %w", convertItemID, err)
		}
	default:
		return fmt.Errorf("an input file or --item is required")
	}

	opts := convert.Options{
		Engine:              cfg.Engine,
		SuppressMetadata:    cfg.SuppressMetadata,
		ParallelEnrichments: cfg.ParallelEnrichments,
		Progress:            logProgress,
	}
	if fetcher != nil {
		opts.Fetcher = fetcher
		opts.Apps = fetcher
	}

	res, err := util.RetryWithContext(ctx, cfg.Retries, func(ctx2 context.Context) (*convert.Result, error) {
		return convert.Convert(ctx2, raw, opts)
	})
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return err
	}

	if err := writeResult(res, convertOut); err != nil {
		return err
	}
	logger.Info("conversion finished",
		"template", res.Template,
		"documents", len(res.Documents),
		"media", len(res.Media))
	return nil
}

func logProgress(ev convert.Event) {
	if ev.Total > 0 {
		logger.Info("conversion progress", "stage", ev.Stage, "message", ev.Message, "current", ev.Current, "total", ev.Total)
		return
	}
	logger.Info("conversion progress", "stage", ev.Stage, "message", ev.Message)
}

func writeResult(res *convert.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for i, doc := range res.Documents {
		name := "story.json"
		if len(res.Documents) > 1 {
			name = fmt.Sprintf("story-%d.json", i+1)
		}
		if err := writeDocument(doc, filepath.Join(outDir, name)); err != nil {
			return err
		}
	}

	manifest := struct {
		Template   string                      `json:"template"`
		Media      []string                    `json:"media"`
		Collection *convert.CollectionSettings `json:"collection,omitempty"`
	}{
		Template:   string(res.Template),
		Media:      res.Media,
		Collection: res.Collection,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode media manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "media.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write media manifest: %w", err)
	}
	return nil
}

func writeDocument(doc *story.Document, path string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
