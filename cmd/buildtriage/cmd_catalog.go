package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"buildtriage/internal/catalog"
)

var catalogFlags struct {
	path string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate the signature catalog and summarise its contents",
	Long: `Load the catalog, failing on malformed patterns or duplicate signature
names, and print one row per signature in catalog order. A clean exit
means every pattern compiles.`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFlags.path, "catalog", "", "Path to the failure signature catalog")
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog.Path = catalogFlags.path
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Signature", "Patterns", "Literals", "Bug URL"})
	for _, sig := range cat.Signatures() {
		bug := ""
		if sig.Bug != nil {
			bug = sig.Bug.URL
		}
		tw.AppendRow(table.Row{sig.Name, len(sig.Patterns), len(sig.Literals), bug})
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d signatures", cat.Len())})
	fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return nil
}
