package parse

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/cmd/util"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/pkg/extract"
	"github.com/mpapenbr/racetiming-analytics/pkg/pipeline"
	"github.com/mpapenbr/racetiming-analytics/pkg/storage"
)

func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "converts downloaded report pdfs into cleaned parquet files",
	}
	cmd.PersistentFlags().BoolVar(&config.ValidatePDF,
		"validate-pdf",
		false,
		"run a strict pdf validation before extraction")

	cmd.AddCommand(newKindCmd("sections", "section results reports", storage.SectionResults))
	cmd.AddCommand(newKindCmd("results", "official results reports", storage.Results))
	return cmd
}

func newKindCmd(use, what string, kind storage.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [file...|ALL]",
		Short: "parses " + what,
		Long: fmt.Sprintf(`Parses %s.
Files are looked up in <pdf-dir>/%s. ALL processes every pdf found there.`,
			what, kind.Report),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), kind, args)
		},
	}
}

func runPipeline(ctx context.Context, kind storage.Kind, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if telemetry := util.StartTelemetry(ctx); telemetry != nil {
		defer telemetry.Shutdown()
	}
	notifier, closeNotifier, err := util.NewNotifier()
	if err != nil {
		log.Error("could not setup notifications", log.ErrorField(err))
		return err
	}
	defer closeNotifier()

	tabula := extract.NewTabula(extract.WithLogger(log.Default().Named("extract")))
	opts := []pipeline.Option{
		pipeline.WithExtractor(tabula),
		pipeline.WithTableDetector(tabula),
		pipeline.WithNotifier(notifier),
		pipeline.WithPreflight(config.ValidatePDF),
		pipeline.WithLogger(log.Default().Named("pipeline")),
	}
	var p *pipeline.Pipeline
	if kind == storage.SectionResults {
		p = pipeline.NewSections(util.Layout(), opts...)
	} else {
		p = pipeline.NewResults(util.Layout(), opts...)
	}

	docs, err := p.Select(args)
	if err != nil {
		return err
	}
	sum, err := p.Run(ctx, docs)
	if err != nil {
		return err
	}
	log.Info(sum.String())
	for _, f := range sum.Failed {
		log.Warn("failed", log.String("document", f.Document), log.ErrorField(f.Err))
	}
	return nil
}
