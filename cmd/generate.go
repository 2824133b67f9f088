package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/David-Botos/warehouse-ingress/pkg/generator"
)

var genOpts = generator.DefaultOptions()
var genOut string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic CRM and ERP extracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := genOut
		if out == "" {
			out = cfg.Paths.DataDir
		}

		g, err := generator.New(logger, genOpts)
		if err != nil {
			return err
		}
		files, err := g.Write(out)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genOut, "out", "", "output directory (default is the data directory)")
	generateCmd.Flags().IntVar(&genOpts.Rows, "rows", genOpts.Rows, "number of customers")
	generateCmd.Flags().Int64Var(&genOpts.Seed, "seed", 0, "random seed, 0 for a random one")
	generateCmd.Flags().Float64Var(&genOpts.DefectRate, "defect-rate", genOpts.DefectRate, "share of rows given a defect")
	RootCmd.AddCommand(generateCmd)
}
