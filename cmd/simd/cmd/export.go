package cmd

import (
	"encoding/json"
	"errors"
	"os"

	"equity_sim/internal/domain"
	"equity_sim/internal/infra"
	"equity_sim/internal/infra/storage"

	"github.com/spf13/cobra"
)

var (
	exportLimit  int
	exportSymbol string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the journaled transaction log as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := infra.LoadConfig(cfgFile)
		if err != nil {
			if !errors.Is(err, domain.ErrConfigNotFound) {
				return err
			}
			cfg = infra.DefaultConfig()
		}

		journal, err := storage.NewJournal(cfg.Storage.Path)
		if err != nil {
			return err
		}

		var recs []domain.TradeRecord
		if exportSymbol != "" {
			recs, err = journal.BySymbol(exportSymbol, exportLimit)
		} else {
			recs, err = journal.Recent(exportLimit)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportLimit, "limit", 100, "maximum number of records")
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "restrict to one instrument")
	rootCmd.AddCommand(exportCmd)
}
