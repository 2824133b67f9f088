package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entities the pipeline loads",
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := loadEntities()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tSOURCE\tFILE\tBRONZE\tSILVER\tKEY")
		for _, e := range entities {
			key := "-"
			if e.Deduplicates() {
				key = fmt.Sprint(e.BusinessKey)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Name, e.Source, e.File, e.BronzeTable, e.SilverTable, key)
		}
		return w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(entitiesCmd)
}
