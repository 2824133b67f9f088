package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/David-Botos/warehouse-ingress/pkg/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the ingestion ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every committed bronze load",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := openLedger().Entries()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tFILE\tTARGET")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Source, e.FileName, e.Target)
		}
		return w.Flush()
	},
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "check SOURCE FILE TARGET",
	Short: "Report whether a file was already loaded into a bronze table",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		processed, err := openLedger().IsProcessed(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if processed {
			fmt.Println("processed")
			return nil
		}
		fmt.Println("not processed")
		return nil
	},
}

// openLedger resolves a relative ledger path against the data directory
func openLedger() *ledger.Ledger {
	path := cfg.Paths.LedgerFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Paths.DataDir, path)
	}
	return ledger.New(path, logger)
}

func init() {
	ledgerCmd.AddCommand(ledgerListCmd, ledgerCheckCmd)
	RootCmd.AddCommand(ledgerCmd)
}
