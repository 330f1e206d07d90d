package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fidctail/internal/sources"
)

type sourceView struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	Label   string `json:"label"`
	Debug   bool   `json:"debug"`
	Default bool   `json:"default"`
}

func newSourcesCommand() *cobra.Command {
	var product string
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "sources",
		Short:       "List the log sources the tail endpoint accepts",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			product = strings.ToLower(strings.TrimSpace(product))
			views := make([]sourceView, 0)
			for _, src := range sources.All() {
				if product != "" && src.Product != product {
					continue
				}
				views = append(views, sourceView{
					Name:    src.Name,
					Product: src.Product,
					Label:   src.Label(),
					Debug:   src.Debug,
					Default: src.Name == sources.Default,
				})
			}
			if product != "" && len(views) == 0 {
				return fmt.Errorf("no sources for product %q", product)
			}
			if asJSON {
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				marker := ""
				if v.Default {
					marker = "*"
				}
				rows = append(rows, []string{v.Name, v.Label, yesNo(v.Debug), marker})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]tableColumn{
				{header: "Source"},
				{header: "Label"},
				{header: "Debug"},
				{header: "Default"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&product, "product", "p", "", "Only list sources for a product (am, idm, ctsstore, userstore)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
