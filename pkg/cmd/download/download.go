package download

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/cmd/util"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/pkg/download"
)

var (
	fromYear int
	toYear   int
	reports  []string
)

func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "downloads the report pdfs of one or more seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context())
		},
	}
	thisYear := time.Now().Year()
	cmd.Flags().IntVar(&fromYear, "from", thisYear, "first season")
	cmd.Flags().IntVar(&toYear, "to", thisYear, "last season")
	cmd.Flags().StringSliceVar(&reports, "reports", download.ReportTypes,
		"report types to download")
	cmd.Flags().BoolVar(&config.Headless, "headless", true,
		"run the browser headless")
	cmd.Flags().StringVar(&config.ResultsURL, "results-url",
		"https://www.indycar.com/Results",
		"season results page")
	return cmd
}

func runDownload(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if toYear < fromYear {
		toYear = fromYear
	}
	session, err := download.NewSession(ctx, config.ResultsURL,
		download.WithHeadless(config.Headless),
		download.WithSessionLogger(log.Default().Named("browser")))
	if err != nil {
		log.Error("could not start browser", log.ErrorField(err))
		return err
	}
	defer session.Close()

	d := download.NewDownloader(session, util.Layout().PDFDir,
		download.WithReportTypes(reports...),
		download.WithLogger(log.Default().Named("download")))
	sum, err := d.Run(ctx, fromYear, toYear)
	if sum != nil {
		log.Info("download finished",
			log.Int("downloaded", sum.Downloaded),
			log.Int("existing", sum.Existing),
			log.Int("missing", sum.Missing),
			log.Int("failed", sum.Failed))
	}
	return err
}
