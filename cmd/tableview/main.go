package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aces/bvlfeedback/internal/adapters/presenters"
	"github.com/aces/bvlfeedback/internal/application/datatable"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/tabledata"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
	"github.com/aces/bvlfeedback/pkg/config"
)

var (
	dataURL  string
	freeze   string
	xlsxPath string
	timeout  time.Duration
)

var errNotLoaded = errors.New("table did not load")

var rootCmd = &cobra.Command{
	Use:   "tableview",
	Short: "Load a dynamic data table and print it",
	Long: `Fetch a {"Headers": [...], "Data": [...]} document from a data source URL,
showing byte progress while it downloads, then print the table or the load error.`,
	SilenceUsage: true,
	RunE:         runTableView,
}

func init() {
	rootCmd.Flags().StringVar(&dataURL, "url", "", "Data source URL (default $DATA_TABLE_URL)")
	rootCmd.Flags().StringVar(&freeze, "freeze", "", "Column to keep first")
	rootCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also save the loaded table to this .xlsx file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Request timeout")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTableView(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	observability.InitLogger("tableview", cfg.Env)

	if dataURL == "" {
		dataURL = cfg.DataTable.DataURL
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter := presenters.NewTextPresenter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	tableCfg := datatable.Config{DataURL: dataURL, FreezeColumn: freeze}

	loader := datatable.NewLoader(
		tableCfg,
		tabledata.NewClient(&http.Client{Timeout: timeout}),
		datatable.WithOnChange(func(s datatable.State) {
			if s.Phase == datatable.PhaseLoading {
				_ = datatable.Present(datatable.Render(s, tableCfg), presenter)
			}
		}),
	)
	defer loader.Close()

	if err := loader.Mount(ctx); err != nil {
		_ = datatable.Present(loader.View(), presenter)
		return err
	}

	select {
	case <-loader.Done():
	case <-ctx.Done():
		log.Warn().Msg("interrupted")
	}
	loader.Close()

	view := loader.View()
	if err := datatable.Present(view, presenter); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if view.Kind != datatable.ViewTable {
		return errNotLoaded
	}

	if xlsxPath != "" {
		if err := presenters.NewXLSXRenderer(xlsxPath).RenderTable(view.Table); err != nil {
			return err
		}
		log.Info().Str("path", xlsxPath).Int("rows", len(view.Table.Rows)).Msg("table saved")
	}
	return nil
}
