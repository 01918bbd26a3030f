package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbordoc/arbordoc/cmd/config"
	"github.com/arbordoc/arbordoc/pkg/builder"
	"github.com/arbordoc/arbordoc/pkg/fsutil"
	"github.com/arbordoc/arbordoc/pkg/locale"
	"github.com/arbordoc/arbordoc/pkg/materialize"
	"github.com/arbordoc/arbordoc/pkg/oracle"
	"github.com/arbordoc/arbordoc/pkg/render"
	"github.com/arbordoc/arbordoc/pkg/stats"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

type generateMode int

const (
	modeAll generateMode = iota
	modeStructure
	modeFilesOnly
)

type generateFlags struct {
	industry  string
	path      string
	language  string
	model     string
	role      string
	ollamaURL string
	short     bool
	dateStart string
	dateEnd   string
}

func addGenerateFlags(cmd *cobra.Command, f *generateFlags, industryRequired bool) {
	cmd.Flags().StringVarP(&f.industry, "industry", "i", "", "industry the generated tree is for")
	cmd.Flags().StringVarP(&f.path, "path", "p", "", `output directory (default "./out")`)
	cmd.Flags().StringVarP(&f.language, "language", "l", "", `language for folder names and content (default "en-US")`)
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model served by Ollama")
	cmd.Flags().StringVarP(&f.role, "role", "r", "", "specific role within the industry")
	cmd.Flags().StringVar(&f.ollamaURL, "ollama-url", "", "Ollama base URL")
	cmd.Flags().BoolVar(&f.short, "short", false, "stop after a small number of folders and files")
	cmd.Flags().StringVar(&f.dateStart, "date-start", "", "start of the timeseries date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.dateEnd, "date-end", "", "end of the timeseries date range (YYYY-MM-DD)")
	if industryRequired {
		_ = cmd.MarkFlagRequired("industry")
	}
}

func runGenerate(ctx context.Context, f *generateFlags, mode generateMode) error {
	outPath := config.Pick(f.path, "path")
	req := tree.Request{
		Industry: f.industry,
		Language: locale.Normalize(config.Pick(f.language, "language")),
		Role:     f.role,
		Dates:    tree.DateRange{Start: f.dateStart, End: f.dateEnd},
	}

	// Files-only runs can recover their parameters from the root sidecar
	// of the tree being resumed.
	if mode == modeFilesOnly {
		if sc, ok := materialize.ReadSidecar(outPath); ok {
			if req.Industry == "" {
				req.Industry = sc.Industry
			}
			if f.language == "" && sc.Language != "" {
				req.Language = sc.Language
			}
			if req.Role == "" {
				req.Role = sc.Role
			}
			if req.Dates.Start == "" {
				req.Dates = tree.DateRange{Start: sc.DateStart, End: sc.DateEnd}
			}
		}
		if req.Industry == "" {
			return fmt.Errorf("no industry given and none recorded in %s", outPath)
		}
	}

	client := oracle.New(
		config.Pick(f.ollamaURL, "ollama_url"),
		config.Pick(f.model, "model"),
		oracle.WithTimeout(time.Duration(viper.GetInt("timeout_seconds"))*time.Second),
		oracle.WithRetries(viper.GetInt("max_retries"), time.Second),
	)

	tracker := openTracker(outPath)
	if err := tracker.Begin(req.Industry, req.Language); err != nil {
		logrus.Warnf("%v", err)
	}
	defer func() {
		tracker.Summary(os.Stdout, req.Language)
		tracker.Close()
	}()

	var governor *materialize.Governor
	if f.short {
		governor = materialize.NewGovernor(mode == modeFilesOnly)
	}

	m := &materialize.Materializer{
		Request:       req,
		Oracle:        client,
		Renderers:     render.NewRegistry(client),
		Tracker:       tracker,
		Governor:      governor,
		StructureOnly: mode == modeStructure,
	}

	var err error
	switch mode {
	case modeFilesOnly:
		err = m.RunFilesOnly(ctx, outPath)
	default:
		var root *tree.Node
		root, err = builder.New(client).Build(ctx, req)
		if err != nil {
			return err
		}
		fmt.Print(tree.Format(root))
		err = m.Run(ctx, root, outPath)
	}

	if errors.Is(err, materialize.ErrLimitReached) {
		logrus.Info("generation limit reached, stopping early")
		return nil
	}
	return err
}

// openTracker sets up the run ledger under the output path. Bookkeeping
// failures never block generation, so errors degrade to a nil tracker.
func openTracker(outPath string) *stats.Tracker {
	dir := filepath.Join(outPath, ".arbordoc")
	if err := fsutil.EnsureDirectory(dir); err != nil {
		logrus.Warnf("stats ledger unavailable: %v", err)
		return nil
	}
	tracker, err := stats.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		logrus.Warnf("stats ledger unavailable: %v", err)
		return nil
	}
	return tracker
}
